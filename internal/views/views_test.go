package views

import (
	"math/big"
	"testing"

	"github.com/chainraise/backend/internal/models"
)

func testCampaigns() []models.Campaign {
	return []models.Campaign{
		{ID: 0, Creator: "0xAA", Status: models.StatusActive, Type: models.TypeStartup,
			TargetAmount: big.NewInt(1000), RaisedAmount: big.NewInt(100), CreatedAt: 100},
		{ID: 1, Creator: "0xBB", Status: models.StatusSuccessful, Type: models.TypeCharity,
			TargetAmount: big.NewInt(500), RaisedAmount: big.NewInt(500), CreatedAt: 300},
		{ID: 2, Creator: "0xaa", Status: models.StatusFailed, Type: models.TypeStartup,
			TargetAmount: big.NewInt(2000), RaisedAmount: big.NewInt(50), CreatedAt: 200},
	}
}

func ids(cs []models.Campaign) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func idsEqual(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplyFilters(t *testing.T) {
	cs := testCampaigns()
	active := models.StatusActive
	startup := models.TypeStartup

	tests := []struct {
		name string
		f    Filter
		want []int64
	}{
		{"all", Filter{}, []int64{0, 1, 2}},
		{"by status", Filter{Status: &active}, []int64{0}},
		{"by type", Filter{Type: &startup}, []int64{0, 2}},
		{"by creator case-insensitive", Filter{Creator: "0xAA"}, []int64{0, 2}},
		{"by donated set", Filter{DonatedTo: map[int64]bool{1: true, 2: true}}, []int64{1, 2}},
		{"combined", Filter{Type: &startup, Creator: "0xaa", DonatedTo: map[int64]bool{2: true}}, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(cs, tt.f))
			if !idsEqual(got, tt.want...) {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	cs := testCampaigns()

	tests := []struct {
		key  SortKey
		want []int64
	}{
		{SortNewest, []int64{1, 2, 0}},
		{SortOldest, []int64{0, 2, 1}},
		{SortProgress, []int64{1, 0, 2}}, // 100%, 10%, 2.5%
		{SortTarget, []int64{2, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := ids(Sort(cs, tt.key))
			if !idsEqual(got, tt.want...) {
				t.Errorf("Sort(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	// input order untouched
	if !idsEqual(ids(cs), 0, 1, 2) {
		t.Error("Sort mutated its input")
	}
}

func TestParseSortKey(t *testing.T) {
	if ParseSortKey("oldest") != SortOldest {
		t.Error("oldest not recognized")
	}
	if ParseSortKey("bogus") != SortNewest {
		t.Error("unknown keys must fall back to newest")
	}
	if ParseSortKey("") != SortNewest {
		t.Error("empty key must fall back to newest")
	}
}

func TestAggregate(t *testing.T) {
	s := Aggregate(testCampaigns())

	if s.Total != 3 {
		t.Errorf("total = %d", s.Total)
	}
	if s.ByStatus["Active"] != 1 || s.ByStatus["Successful"] != 1 || s.ByStatus["Failed"] != 1 {
		t.Errorf("by_status = %v", s.ByStatus)
	}
	if s.TotalRaised.Int64() != 650 {
		t.Errorf("total raised = %v", s.TotalRaised)
	}
	if s.TotalTarget.Int64() != 3500 {
		t.Errorf("total target = %v", s.TotalTarget)
	}
}

func TestPage(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	page, more := Page(items, 0)
	if len(page) != PageSize || !more {
		t.Errorf("first page = %v, more=%v", page, more)
	}
	page, more = Page(items, 5)
	if len(page) != 2 || more {
		t.Errorf("second page = %v, more=%v", page, more)
	}
	page, more = Page(items, 100)
	if len(page) != 0 || more {
		t.Errorf("past-end page = %v, more=%v", page, more)
	}
	page, _ = Page(items, -3)
	if len(page) != PageSize {
		t.Errorf("negative offset page = %v", page)
	}
}

func TestDonatedTotals(t *testing.T) {
	records := []models.DonationRecord{
		{CampaignID: 1, Amount: big.NewInt(100)},
		{CampaignID: 1, Amount: big.NewInt(50)},
		{CampaignID: 2, Amount: big.NewInt(7)},
		{CampaignID: 3, Amount: nil},
	}

	totals := DonatedTotals(records)
	if totals[1].Int64() != 150 {
		t.Errorf("campaign 1 total = %v", totals[1])
	}
	if totals[2].Int64() != 7 {
		t.Errorf("campaign 2 total = %v", totals[2])
	}
	if _, ok := totals[3]; ok {
		t.Error("nil amounts must not create totals")
	}

	set := DonatedSet(records)
	if !set[1] || !set[2] || !set[3] {
		t.Errorf("donated set = %v", set)
	}
}
