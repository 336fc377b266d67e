package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/token"
	"github.com/chainraise/backend/internal/views"
)

// DonationSource reads the viewer's donation history. The indexer-backed
// repository is the primary source; the chain client serves as fallback when
// the database has nothing (fresh deployment, indexer lag).
type DonationSource interface {
	DonationsByDonor(ctx context.Context, donor string) ([]models.DonationRecord, error)
}

// CreationSource reads the viewer's campaign creations.
type CreationSource interface {
	CreationsByCreator(ctx context.Context, creator string) ([]models.CreationRecord, error)
}

// DonationItem is one row of the account's donation feed.
type DonationItem struct {
	models.DonationRecord
	AmountDisplay string `json:"amount_display"`
	CampaignTitle string `json:"campaign_title"`
}

// ActivityPage is one slice of an account feed.
type ActivityPage[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// AccountService serves per-address views: donation history, created
// campaigns, and the "donated to" listing.
type AccountService struct {
	campaigns *CampaignService
	repo      DonationSource
	creations CreationSource
	chainDon  DonationSource // fallback when the repo is empty or down
	decimals  int
	log       *zap.Logger
}

func NewAccountService(
	campaigns *CampaignService,
	repo DonationSource,
	creations CreationSource,
	chainDon DonationSource,
	decimals int,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		campaigns: campaigns,
		repo:      repo,
		creations: creations,
		chainDon:  chainDon,
		decimals:  decimals,
		log:       log,
	}
}

// donations reads the feed repo-first. An empty repo result falls through to
// the chain so a freshly deployed indexer does not present a blank history.
func (s *AccountService) donations(ctx context.Context, donor string) ([]models.DonationRecord, error) {
	records, err := s.repo.DonationsByDonor(ctx, donor)
	if err != nil {
		s.log.Warn("donation feed: repository read failed, falling back to chain",
			zap.String("donor", donor), zap.Error(err))
		records = nil
	}
	if len(records) > 0 {
		return records, nil
	}
	return s.chainDon.DonationsByDonor(ctx, donor)
}

// Donations returns one page of the viewer's donation history, newest first,
// each row carrying the campaign title for display.
func (s *AccountService) Donations(ctx context.Context, donor string, offset int) (ActivityPage[DonationItem], error) {
	records, err := s.donations(ctx, donor)
	if err != nil {
		return ActivityPage[DonationItem]{}, err
	}

	page, more := views.Page(records, offset)
	items := make([]DonationItem, len(page))
	for i, r := range page {
		item := DonationItem{
			DonationRecord: r,
			AmountDisplay:  token.Format(r.Amount, s.decimals),
		}
		if v, err := s.campaigns.Get(ctx, r.CampaignID, donor); err == nil {
			item.CampaignTitle = v.Title
		}
		items[i] = item
	}
	return ActivityPage[DonationItem]{Items: items, HasMore: more}, nil
}

// Creations returns one page of the campaigns the viewer created.
func (s *AccountService) Creations(ctx context.Context, creator string, offset int) (ActivityPage[models.CreationRecord], error) {
	records, err := s.creations.CreationsByCreator(ctx, creator)
	if err != nil {
		return ActivityPage[models.CreationRecord]{}, err
	}
	page, more := views.Page(records, offset)
	return ActivityPage[models.CreationRecord]{Items: page, HasMore: more}, nil
}

// MyCampaigns lists the viewer's own campaigns, optionally narrowed to one
// status tab.
func (s *AccountService) MyCampaigns(ctx context.Context, viewer, statusTab string) []CampaignView {
	return s.campaigns.List(ctx, viewer, ListFilter{Status: statusTab, Creator: viewer})
}

// DonatedCampaigns lists the campaigns the viewer has donated to, with the
// viewer's cumulative contribution attached per campaign.
func (s *AccountService) DonatedCampaigns(ctx context.Context, viewer string) ([]CampaignView, map[int64]string, error) {
	records, err := s.donations(ctx, viewer)
	if err != nil {
		return nil, nil, err
	}

	set := views.DonatedSet(records)
	filtered := views.Apply(s.campaigns.store.Campaigns(), views.Filter{DonatedTo: set})
	enriched := s.campaigns.enrich(ctx, views.Sort(filtered, views.SortNewest), viewer)

	contributed := make(map[int64]string, len(set))
	for id, total := range views.DonatedTotals(records) {
		contributed[id] = token.Format(total, s.decimals)
	}
	return enriched, contributed, nil
}
