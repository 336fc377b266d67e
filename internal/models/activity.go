package models

import (
	"math/big"
	"time"
)

// DonationRecord is one DonationReceived event, as stored by the indexer.
// CampaignID is local (zero-based).
type DonationRecord struct {
	CampaignID int64     `json:"campaign_id"`
	Donor      string    `json:"donor"`
	Amount     *big.Int  `json:"amount"`
	Timestamp  int64     `json:"timestamp"`
	TxHash     string    `json:"tx_hash"`
	LogIndex   uint      `json:"log_index"`
	IndexedAt  time.Time `json:"indexed_at,omitempty"`
}

// CreationRecord is one CampaignCreated event.
type CreationRecord struct {
	CampaignID   int64     `json:"campaign_id"`
	Creator      string    `json:"creator"`
	TargetAmount *big.Int  `json:"target_amount"`
	Timestamp    int64     `json:"timestamp"`
	TxHash       string    `json:"tx_hash"`
	LogIndex     uint      `json:"log_index"`
	IndexedAt    time.Time `json:"indexed_at,omitempty"`
}
