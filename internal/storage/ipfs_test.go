package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/add" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		w.Write([]byte(`{"Name":"meta.json","Hash":"QmUploaded","Size":"42"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/ipfs", 2*time.Second, zap.NewNop())
	cid, err := c.Upload(context.Background(), []byte(`{"title":"t"}`), "meta.json")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if cid != "QmUploaded" {
		t.Errorf("cid = %q, want QmUploaded", cid)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"node error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("nope"))
		}},
		{"missing hash", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Name":"x"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL+"/ipfs", 2*time.Second, zap.NewNop())
			_, err := c.Upload(context.Background(), []byte("x"), "f")
			if !errors.Is(err, ErrStorageUnavailable) {
				t.Errorf("error = %v, want ErrStorageUnavailable", err)
			}
		})
	}
}

func TestUploadUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "http://127.0.0.1:1/ipfs", 200*time.Millisecond, zap.NewNop())
	_, err := c.Upload(context.Background(), []byte("x"), "f")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("error = %v, want ErrStorageUnavailable", err)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmData" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/ipfs", 2*time.Second, zap.NewNop())

	data, err := c.Fetch(context.Background(), "QmData")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}

	if _, err := c.Fetch(context.Background(), "QmMissing"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("404 fetch error = %v, want ErrStorageUnavailable", err)
	}
}
