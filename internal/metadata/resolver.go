// Package metadata fetches and normalizes off-chain campaign content.
// Metadata is decorative: every failure path degrades to a placeholder,
// nothing here ever propagates an error to the caller.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chainraise/backend/internal/models"
	"go.uber.org/zap"
)

const (
	// TestRefSentinel marks demo campaigns whose metadata_ref is not a real
	// CID. They resolve like campaigns without metadata.
	TestRefSentinel = "test"

	ipfsScheme       = "ipfs://"
	PlaceholderImage = "/assets/campaign-placeholder.png"

	maxBodySize = 1 << 20 // 1 MiB, metadata documents are tiny
)

type Resolver struct {
	gatewayPrefix string
	httpClient    *http.Client
	log           *zap.Logger

	mu    sync.Mutex
	cache map[string]models.Metadata // keyed by metadata ref, session lifetime
}

func NewResolver(gatewayPrefix string, timeout time.Duration, log *zap.Logger) *Resolver {
	return &Resolver{
		gatewayPrefix: strings.TrimRight(gatewayPrefix, "/") + "/",
		httpClient:    &http.Client{Timeout: timeout},
		log:           log,
		cache:         make(map[string]models.Metadata),
	}
}

// Fallback is the placeholder content shown when a campaign has no usable
// metadata.
func Fallback(campaignID int64) models.Metadata {
	return models.Metadata{Title: fmt.Sprintf("Campaign #%d", campaignID)}
}

// Resolve returns the campaign's metadata, fetching it from the content
// store at most once per ref for the resolver's lifetime. Empty refs, the
// test sentinel, fetch failures and malformed documents all resolve to the
// fallback.
func (r *Resolver) Resolve(ctx context.Context, ref string, campaignID int64) models.Metadata {
	if ref == "" {
		return Fallback(campaignID)
	}

	r.mu.Lock()
	if m, ok := r.cache[ref]; ok {
		r.mu.Unlock()
		return r.withImagePolicy(m, ref)
	}
	r.mu.Unlock()

	m, err := r.fetch(ctx, ref)
	if err != nil {
		r.log.Debug("metadata fetch failed, using fallback",
			zap.String("ref", ref),
			zap.Int64("campaign_id", campaignID),
			zap.Error(err),
		)
		return Fallback(campaignID)
	}

	r.mu.Lock()
	r.cache[ref] = m
	r.mu.Unlock()

	return r.withImagePolicy(m, ref)
}

// withImagePolicy hides images behind the test sentinel so demo refs are
// never rendered as real content.
func (r *Resolver) withImagePolicy(m models.Metadata, ref string) models.Metadata {
	if strings.HasPrefix(ref, TestRefSentinel) {
		m.Image = ""
	}
	return m
}

func (r *Resolver) fetch(ctx context.Context, ref string) (models.Metadata, error) {
	url := r.gatewayPrefix + ref
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Metadata{}, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("content store unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Metadata{}, fmt.Errorf("content store returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.Metadata{}, err
	}

	// title and description must be present strings; decode into a loose map
	// first so a document with e.g. a numeric title is rejected, not zeroed.
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.Metadata{}, fmt.Errorf("malformed metadata json: %w", err)
	}

	var m models.Metadata
	if err := requireString(doc, "title", &m.Title); err != nil {
		return models.Metadata{}, err
	}
	if err := requireString(doc, "description", &m.Description); err != nil {
		return models.Metadata{}, err
	}
	if raw, ok := doc["image"]; ok {
		_ = json.Unmarshal(raw, &m.Image) // optional, ignore type mismatch
	}

	return m, nil
}

func requireString(doc map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("metadata missing %q", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("metadata field %q is not a string", key)
	}
	return nil
}

// ImageURL normalizes the stored image reference into something fetchable:
// ipfs:// refs and bare CIDs go through the gateway, full URLs pass through,
// absent images get the placeholder asset.
func (r *Resolver) ImageURL(image string) string {
	switch {
	case image == "":
		return PlaceholderImage
	case strings.HasPrefix(image, ipfsScheme):
		return r.gatewayPrefix + strings.TrimPrefix(image, ipfsScheme)
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
		return image
	default:
		return r.gatewayPrefix + image
	}
}

// Snippet reduces a (possibly HTML) description to a plain-text excerpt for
// list views.
func Snippet(description string, max int) string {
	text := description
	if strings.ContainsAny(description, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
			text = doc.Text()
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if max > 0 && len(text) > max {
		cut := text[:max]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		text = cut + "…"
	}
	return text
}
