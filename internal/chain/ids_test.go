package chain

import (
	"math/big"
	"testing"
)

func TestCampaignIDTranslation(t *testing.T) {
	tests := []struct {
		local    int64
		contract int64
	}{
		{0, 1},
		{1, 2},
		{41, 42},
	}

	for _, tt := range tests {
		if got := ContractCampaignID(tt.local); got.Int64() != tt.contract {
			t.Errorf("ContractCampaignID(%d) = %v, want %d", tt.local, got, tt.contract)
		}
		if got := LocalCampaignID(big.NewInt(tt.contract)); got != tt.local {
			t.Errorf("LocalCampaignID(%d) = %d, want %d", tt.contract, got, tt.local)
		}
	}
}

func TestLocalCampaignIDRejectsImpossible(t *testing.T) {
	for _, id := range []*big.Int{nil, big.NewInt(0), big.NewInt(-3)} {
		if got := LocalCampaignID(id); got != -1 {
			t.Errorf("LocalCampaignID(%v) = %d, want -1", id, got)
		}
	}
}

func TestTranslationRoundTrip(t *testing.T) {
	for local := int64(0); local < 100; local++ {
		if got := LocalCampaignID(ContractCampaignID(local)); got != local {
			t.Fatalf("round trip of %d = %d", local, got)
		}
	}
}
