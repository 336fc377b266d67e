package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(srv.URL+"/ipfs", 2*time.Second, zap.NewNop())
}

func TestResolveHappyPath(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/ipfs/QmTest123" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		w.Write([]byte(`{"title":"Solar Farm","description":"Panels for the village","image":"QmImg1"}`))
	})

	m := r.Resolve(context.Background(), "QmTest123", 0)
	if m.Title != "Solar Farm" || m.Description != "Panels for the village" || m.Image != "QmImg1" {
		t.Errorf("unexpected metadata: %+v", m)
	}
}

func TestResolveEmptyRefSkipsNetwork(t *testing.T) {
	called := false
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		called = true
	})

	m := r.Resolve(context.Background(), "", 7)
	if called {
		t.Error("empty ref must not hit the content store")
	}
	if m.Title != "Campaign #7" || m.Description != "" || m.Image != "" {
		t.Errorf("unexpected fallback: %+v", m)
	}
}

// Resolve must degrade, never fail, for every broken input.
func TestResolveNeverFails(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"http 404", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"not json", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte("<html>gateway error</html>"))
		}},
		{"missing title", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"description":"x"}`))
		}},
		{"missing description", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"title":"x"}`))
		}},
		{"title wrong type", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"title":42,"description":"x"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.handler)
			m := r.Resolve(context.Background(), "QmBroken", 3)
			if m.Title != "Campaign #3" {
				t.Errorf("expected fallback title, got %+v", m)
			}
		})
	}
}

func TestResolveUnreachableStore(t *testing.T) {
	r := NewResolver("http://127.0.0.1:1/ipfs", 200*time.Millisecond, zap.NewNop())
	m := r.Resolve(context.Background(), "QmAny", 9)
	if m.Title != "Campaign #9" {
		t.Errorf("expected fallback on unreachable store, got %+v", m)
	}
}

func TestResolveCachesPerRef(t *testing.T) {
	calls := 0
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.Write([]byte(`{"title":"Once","description":"only"}`))
	})

	for i := 0; i < 3; i++ {
		r.Resolve(context.Background(), "QmCached", 1)
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
}

func TestResolveTestSentinelHidesImage(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"title":"Demo","description":"demo data","image":"QmImg"}`))
	})

	m := r.Resolve(context.Background(), "test-campaign-1", 2)
	if m.Image != "" {
		t.Errorf("test sentinel refs must not expose images, got %q", m.Image)
	}
	if m.Title != "Demo" {
		t.Errorf("non-image fields should survive: %+v", m)
	}
}

func TestImageURL(t *testing.T) {
	r := NewResolver("https://gateway.example/ipfs/", time.Second, zap.NewNop())

	tests := []struct {
		image    string
		expected string
	}{
		{"", PlaceholderImage},
		{"ipfs://QmABC", "https://gateway.example/ipfs/QmABC"},
		{"https://cdn.example/pic.png", "https://cdn.example/pic.png"},
		{"http://cdn.example/pic.png", "http://cdn.example/pic.png"},
		{"QmBareCID", "https://gateway.example/ipfs/QmBareCID"},
	}

	for _, tt := range tests {
		if got := r.ImageURL(tt.image); got != tt.expected {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.image, got, tt.expected)
		}
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		max      int
		expected string
	}{
		{"plain", "hello world", 50, "hello world"},
		{"html stripped", "<p>hello <b>world</b></p>", 50, "hello world"},
		{"whitespace collapsed", "a\n\n  b", 50, "a b"},
		{"truncated at word", "one two three four", 9, "one two…"},
		{"no limit", "anything", 0, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.in, tt.max); got != tt.expected {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.expected)
			}
		})
	}
}
