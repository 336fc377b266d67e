// Package storage is the client for the content-addressed off-chain store
// (an IPFS node plus public gateway). Campaign metadata and images live
// there; the chain only carries their CIDs.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrStorageUnavailable = errors.New("content store unavailable")

type Client struct {
	apiURL        string // node API, used for uploads
	gatewayPrefix string // public gateway, used for fetches
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(apiURL, gatewayPrefix string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		apiURL:        strings.TrimRight(apiURL, "/"),
		gatewayPrefix: strings.TrimRight(gatewayPrefix, "/") + "/",
		httpClient:    &http.Client{Timeout: timeout},
		log:           log,
	}
}

// GatewayURL builds the fetchable URL for a CID.
func (c *Client) GatewayURL(cid string) string {
	return c.gatewayPrefix + cid
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload pins a blob on the node and returns its CID.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v0/add?pin=true", c.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: node returned %d: %s", ErrStorageUnavailable, resp.StatusCode, string(body))
	}

	var result addResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: bad add response: %v", ErrStorageUnavailable, err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("%w: add response missing hash", ErrStorageUnavailable)
	}

	c.log.Info("content uploaded",
		zap.String("cid", result.Hash),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return result.Hash, nil
}

// UploadJSON marshals v and uploads it as a JSON document.
func (c *Client) UploadJSON(ctx context.Context, v any, filename string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.Upload(ctx, data, filename)
}

// Fetch reads a blob back through the gateway.
func (c *Client) Fetch(ctx context.Context, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GatewayURL(cid), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrStorageUnavailable, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
