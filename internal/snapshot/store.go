// Package snapshot holds the in-memory view of the on-chain campaign set.
// The snapshot is rebuilt wholesale on every refresh — campaigns are never
// mutated or deleted locally.
package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/models"
)

// CampaignSource is the contract read needed to rebuild the snapshot.
type CampaignSource interface {
	GetAllCampaigns(ctx context.Context) ([]chain.RawCampaign, error)
}

type Store struct {
	source CampaignSource
	log    *zap.Logger

	// seq hands out refresh tokens; applied is the token of the snapshot
	// currently installed. A refresh result older than applied is stale and
	// discarded, so a slow early refresh can never clobber a later one.
	seq     atomic.Uint64
	mu      sync.RWMutex
	applied uint64
	items   []models.Campaign

	onRefresh func()
}

func NewStore(source CampaignSource, log *zap.Logger) *Store {
	return &Store{source: source, log: log}
}

// OnRefresh registers a callback invoked after each applied refresh.
// Must be set before polling starts.
func (s *Store) OnRefresh(fn func()) {
	s.onRefresh = fn
}

// Refresh re-reads the full campaign enumeration and installs it, assigning
// local ids from the contract's enumeration order. Last-completed-wins:
// concurrent refreshes are safe, stale results are dropped.
func (s *Store) Refresh(ctx context.Context) error {
	token := s.seq.Add(1)

	raw, err := s.source.GetAllCampaigns(ctx)
	if err != nil {
		return err
	}

	campaigns := make([]models.Campaign, 0, len(raw))
	for i, r := range raw {
		c, err := build(int64(i), r)
		if err != nil {
			return fmt.Errorf("campaign %d: %w", i, err)
		}
		campaigns = append(campaigns, c)
	}

	s.install(token, campaigns)
	return nil
}

// install applies a refresh result unless a newer one already landed.
func (s *Store) install(token uint64, campaigns []models.Campaign) {
	s.mu.Lock()
	if token < s.applied {
		s.mu.Unlock()
		s.log.Debug("discarding stale snapshot refresh", zap.Uint64("token", token))
		return
	}
	s.applied = token
	s.items = campaigns
	s.mu.Unlock()

	s.log.Debug("snapshot refreshed", zap.Int("campaigns", len(campaigns)))
	if s.onRefresh != nil {
		s.onRefresh()
	}
}

func build(id int64, r chain.RawCampaign) (models.Campaign, error) {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return models.Campaign{}, err
	}
	return models.Campaign{
		ID:              id,
		Creator:         r.Creator.Hex(),
		AcceptedToken:   r.AcceptedToken.Hex(),
		TargetAmount:    r.TargetAmount,
		RaisedAmount:    r.RaisedAmount,
		TotalEverRaised: r.TotalEverRaised,
		MetadataRef:     r.MetadataCID,
		EndTime:         bigToInt64(r.EndTime),
		Status:          status,
		CreatedAt:       bigToInt64(r.CreationTimestamp),
		ReclaimDeadline: bigToInt64(r.ReclaimDeadline),
		Type:            models.CampaignType(r.CampaignType),
	}, nil
}

func bigToInt64(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	return v.Int64()
}

// Campaigns returns a copy of the current snapshot.
func (s *Store) Campaigns() []models.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Campaign, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the campaign with the given local id.
func (s *Store) Get(id int64) (models.Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= int64(len(s.items)) {
		return models.Campaign{}, false
	}
	return s.items[id], true
}

// StartPolling refreshes on a fixed interval until ctx is cancelled.
func (s *Store) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("snapshot polling stopped")
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					s.log.Warn("scheduled refresh failed", zap.Error(err))
				}
			}
		}
	}()
}
