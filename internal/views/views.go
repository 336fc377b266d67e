// Package views derives list views and aggregate statistics from a campaign
// snapshot. Everything here is a pure function over copies; the snapshot
// store stays the single owner of campaign data.
package views

import (
	"math/big"
	"sort"
	"strings"

	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/token"
)

// PageSize is the fixed page length for activity feeds.
const PageSize = 5

type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortProgress SortKey = "progress"
	SortTarget   SortKey = "target"
)

// ParseSortKey falls back to newest for unknown values.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortOldest, SortProgress, SortTarget:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// Filter selects campaigns. Zero-valued fields match everything.
type Filter struct {
	Status    *models.Status
	Type      *models.CampaignType
	Creator   string
	DonatedTo map[int64]bool // membership filter, from the viewer's donation set
}

func Apply(campaigns []models.Campaign, f Filter) []models.Campaign {
	out := make([]models.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Type != nil && c.Type != *f.Type {
			continue
		}
		if f.Creator != "" && !strings.EqualFold(c.Creator, f.Creator) {
			continue
		}
		if f.DonatedTo != nil && !f.DonatedTo[c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sort orders campaigns by the given key. Stable, so equal keys keep
// snapshot order.
func Sort(campaigns []models.Campaign, key SortKey) []models.Campaign {
	out := make([]models.Campaign, len(campaigns))
	copy(out, campaigns)

	switch key {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	case SortProgress:
		sort.SliceStable(out, func(i, j int) bool {
			return token.ProgressPercent(out[i].RaisedAmount, out[i].TargetAmount) >
				token.ProgressPercent(out[j].RaisedAmount, out[j].TargetAmount)
		})
	case SortTarget:
		sort.SliceStable(out, func(i, j int) bool {
			return cmpBig(out[i].TargetAmount, out[j].TargetAmount) > 0
		})
	default: // newest
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	}
	return out
}

func cmpBig(a, b *big.Int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return a.Cmp(b)
}

// Stats are platform-wide aggregates for the landing view.
type Stats struct {
	Total       int      `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	TotalRaised *big.Int `json:"total_raised"`
	TotalTarget *big.Int `json:"total_target"`
}

func Aggregate(campaigns []models.Campaign) Stats {
	s := Stats{
		Total:       len(campaigns),
		ByStatus:    make(map[string]int),
		TotalRaised: new(big.Int),
		TotalTarget: new(big.Int),
	}
	for _, c := range campaigns {
		s.ByStatus[c.Status.String()]++
		if c.RaisedAmount != nil {
			s.TotalRaised.Add(s.TotalRaised, c.RaisedAmount)
		}
		if c.TargetAmount != nil {
			s.TotalTarget.Add(s.TotalTarget, c.TargetAmount)
		}
	}
	return s
}

// Page slices items for incremental "show more" pagination. Returns the page
// and whether more items remain.
func Page[T any](items []T, offset int) ([]T, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}, false
	}
	end := offset + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], end < len(items)
}

// DonatedTotals sums donation amounts per campaign.
func DonatedTotals(records []models.DonationRecord) map[int64]*big.Int {
	totals := make(map[int64]*big.Int)
	for _, r := range records {
		if r.Amount == nil {
			continue
		}
		if _, ok := totals[r.CampaignID]; !ok {
			totals[r.CampaignID] = new(big.Int)
		}
		totals[r.CampaignID].Add(totals[r.CampaignID], r.Amount)
	}
	return totals
}

// DonatedSet is the membership set used by the "campaigns I donated to"
// filter.
func DonatedSet(records []models.DonationRecord) map[int64]bool {
	set := make(map[int64]bool, len(records))
	for _, r := range records {
		set[r.CampaignID] = true
	}
	return set
}
