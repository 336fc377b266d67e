package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/events"
	"github.com/chainraise/backend/internal/lifecycle"
	"github.com/chainraise/backend/internal/metadata"
	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/snapshot"
	"github.com/chainraise/backend/internal/token"
	"github.com/chainraise/backend/internal/views"
)

var (
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrActionNotAvailable = errors.New("action not available for this viewer")
)

const snippetLength = 140

// ContractActions are the write calls the campaign service submits.
type ContractActions interface {
	Donate(ctx context.Context, localID int64, tokenAddr string, amount *big.Int) (string, error)
	InitiateClosure(ctx context.Context, localID int64) (string, error)
	WithdrawFunds(ctx context.Context, localID int64) (string, error)
	ClaimRefund(ctx context.Context, localID int64) (string, error)
	CancelCampaign(ctx context.Context, localID int64) (string, error)
	WaitConfirmed(ctx context.Context, txHash string) error
}

// CampaignView is the enriched per-viewer view-model served to clients.
type CampaignView struct {
	models.Campaign
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Snippet       string               `json:"snippet"`
	ImageURL      string               `json:"image_url"`
	Progress      float64              `json:"progress"`
	RaisedDisplay string               `json:"raised_display"`
	TargetDisplay string               `json:"target_display"`
	Assessment    lifecycle.Assessment `json:"assessment"`
}

type CampaignService struct {
	store     *snapshot.Store
	engine    *lifecycle.Engine
	resolver  *metadata.Resolver
	contract  ContractActions
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewCampaignService(
	store *snapshot.Store,
	engine *lifecycle.Engine,
	resolver *metadata.Resolver,
	contract ContractActions,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		store:     store,
		engine:    engine,
		resolver:  resolver,
		contract:  contract,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// ListFilter narrows the campaign listing.
type ListFilter struct {
	Status  string // "", "all", or a status label
	Type    string // "", "startup", "charity"
	Creator string
	Sort    string
}

// List returns the filtered, sorted campaign collection enriched for the
// viewer. Metadata resolution runs per campaign, independently; a failure
// for one campaign never affects another.
func (s *CampaignService) List(ctx context.Context, viewer string, f ListFilter) []CampaignView {
	filter := views.Filter{Creator: f.Creator}
	if st, ok := models.ParseStatusLabel(f.Status); ok {
		filter.Status = &st
	}
	switch f.Type {
	case "startup":
		t := models.TypeStartup
		filter.Type = &t
	case "charity":
		t := models.TypeCharity
		filter.Type = &t
	}

	campaigns := views.Sort(views.Apply(s.store.Campaigns(), filter), views.ParseSortKey(f.Sort))
	return s.enrich(ctx, campaigns, viewer)
}

func (s *CampaignService) enrich(ctx context.Context, campaigns []models.Campaign, viewer string) []CampaignView {
	now := time.Now().Unix()
	out := make([]CampaignView, len(campaigns))

	var wg sync.WaitGroup
	for i, c := range campaigns {
		wg.Add(1)
		go func(i int, c models.Campaign) {
			defer wg.Done()
			out[i] = s.view(ctx, c, viewer, now)
		}(i, c)
	}
	wg.Wait()
	return out
}

func (s *CampaignService) view(ctx context.Context, c models.Campaign, viewer string, now int64) CampaignView {
	meta := s.resolver.Resolve(ctx, c.MetadataRef, c.ID)
	return CampaignView{
		Campaign:      c,
		Title:         meta.Title,
		Description:   meta.Description,
		Snippet:       metadata.Snippet(meta.Description, snippetLength),
		ImageURL:      s.resolver.ImageURL(meta.Image),
		Progress:      token.ProgressPercent(c.RaisedAmount, c.TargetAmount),
		RaisedDisplay: token.Format(c.RaisedAmount, s.cfg.TokenDecimals),
		TargetDisplay: token.Format(c.TargetAmount, s.cfg.TokenDecimals),
		Assessment:    s.engine.Evaluate(ctx, c, viewer, now),
	}
}

// Get returns one campaign enriched for the viewer.
func (s *CampaignService) Get(ctx context.Context, id int64, viewer string) (CampaignView, error) {
	c, ok := s.store.Get(id)
	if !ok {
		return CampaignView{}, ErrCampaignNotFound
	}
	return s.view(ctx, c, viewer, time.Now().Unix()), nil
}

// Refresh re-reads the on-chain snapshot on demand (the retry affordance for
// failed reads).
func (s *CampaignService) Refresh(ctx context.Context) error {
	return s.store.Refresh(ctx)
}

// Stats aggregates the whole snapshot.
func (s *CampaignService) Stats() views.Stats {
	return views.Aggregate(s.store.Campaigns())
}

// requireAction re-evaluates the lifecycle table and rejects actions the
// viewer is not currently offered. Advisory only — the contract enforces —
// but it keeps the API honest with what the UI shows.
func (s *CampaignService) requireAction(ctx context.Context, id int64, viewer string, action models.Action) (models.Campaign, error) {
	c, ok := s.store.Get(id)
	if !ok {
		return models.Campaign{}, ErrCampaignNotFound
	}
	a := s.engine.Evaluate(ctx, c, viewer, time.Now().Unix())
	for _, offered := range a.Actions {
		if offered == action {
			return c, nil
		}
	}
	return models.Campaign{}, fmt.Errorf("%w: %s", ErrActionNotAvailable, action)
}

// Donate submits and confirms a donation of amountDisplay tokens.
func (s *CampaignService) Donate(ctx context.Context, id int64, viewer, amountDisplay string) (string, error) {
	c, err := s.requireAction(ctx, id, viewer, models.ActionDonate)
	if err != nil {
		return "", err
	}

	amount, err := token.Parse(amountDisplay, s.cfg.TokenDecimals)
	if err != nil {
		return "", err
	}
	if amount.Sign() <= 0 {
		return "", token.ErrInvalidAmount
	}

	txHash, err := s.contract.Donate(ctx, id, c.AcceptedToken, amount)
	if err != nil {
		return "", err
	}
	if err := s.contract.WaitConfirmed(ctx, txHash); err != nil {
		return "", err
	}

	s.confirmed(ctx, events.EventDonationConfirmed, id, txHash, map[string]any{
		"amount": amount.String(),
	})
	return txHash, nil
}

// InitiateClosure moves an active campaign into Closing (creator only).
func (s *CampaignService) InitiateClosure(ctx context.Context, id int64, viewer string) (string, error) {
	return s.simpleAction(ctx, id, viewer, models.ActionInitiateClosure, s.contract.InitiateClosure)
}

// Withdraw pays out to the creator.
func (s *CampaignService) Withdraw(ctx context.Context, id int64, viewer string) (string, error) {
	return s.simpleAction(ctx, id, viewer, models.ActionWithdraw, s.contract.WithdrawFunds)
}

// ClaimRefund returns the viewer's donation from a failed/closing campaign.
func (s *CampaignService) ClaimRefund(ctx context.Context, id int64, viewer string) (string, error) {
	txHash, err := s.simpleAction(ctx, id, viewer, models.ActionClaimRefund, s.contract.ClaimRefund)
	if err != nil {
		return "", err
	}
	// remember locally so the session stops offering the action immediately
	s.engine.MarkReclaimed(id, viewer)
	return txHash, nil
}

// Cancel is the creator's administrative escape hatch; the lifecycle table
// never advertises it, so it is gated on creatorship only and the contract
// has the final word.
func (s *CampaignService) Cancel(ctx context.Context, id int64, viewer string) (string, error) {
	c, ok := s.store.Get(id)
	if !ok {
		return "", ErrCampaignNotFound
	}
	if !c.IsCreator(viewer) {
		return "", fmt.Errorf("%w: cancel", ErrActionNotAvailable)
	}

	txHash, err := s.contract.CancelCampaign(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.contract.WaitConfirmed(ctx, txHash); err != nil {
		return "", err
	}
	s.confirmed(ctx, events.EventActionConfirmed, id, txHash, map[string]any{"action": "cancel"})
	return txHash, nil
}

func (s *CampaignService) simpleAction(
	ctx context.Context,
	id int64,
	viewer string,
	action models.Action,
	submit func(context.Context, int64) (string, error),
) (string, error) {
	if _, err := s.requireAction(ctx, id, viewer, action); err != nil {
		return "", err
	}

	txHash, err := submit(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.contract.WaitConfirmed(ctx, txHash); err != nil {
		return "", err
	}

	s.confirmed(ctx, events.EventActionConfirmed, id, txHash, map[string]any{"action": string(action)})
	return txHash, nil
}

// confirmed publishes the event and refreshes the snapshot so the next read
// sees the new on-chain state.
func (s *CampaignService) confirmed(ctx context.Context, eventType string, id int64, txHash string, extra map[string]any) {
	payload := map[string]any{
		"campaign_id": id,
		"tx":          txHash,
	}
	for k, v := range extra {
		payload[k] = v
	}
	_ = s.publisher.Publish(ctx, events.StreamCampaigns, events.Event{Type: eventType, Payload: payload})

	if err := s.store.Refresh(ctx); err != nil {
		s.log.Warn("post-transaction refresh failed", zap.Error(err))
	}
}
