package models

import (
	"fmt"
	"math/big"
	"strings"
)

// Campaign statuses. Canonical on-chain encoding — the contract stores these
// as uint8, decode goes through ParseStatus only.
type Status uint8

const (
	StatusActive     Status = 0
	StatusSuccessful Status = 1
	StatusFailed     Status = 2
	StatusClosing    Status = 3
	StatusClosed     Status = 4
)

var statusLabels = map[Status]string{
	StatusActive:     "Active",
	StatusSuccessful: "Successful",
	StatusFailed:     "Failed",
	StatusClosing:    "Closing",
	StatusClosed:     "Closed",
}

func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// ParseStatus decodes the raw on-chain status byte.
func ParseStatus(raw uint8) (Status, error) {
	s := Status(raw)
	if _, ok := statusLabels[s]; !ok {
		return 0, fmt.Errorf("unknown campaign status code %d", raw)
	}
	return s, nil
}

// ParseStatusLabel maps a lowercase filter value ("active", "failed"...)
// back to a status. Used by list endpoints.
func ParseStatusLabel(label string) (Status, bool) {
	for s, l := range statusLabels {
		if strings.EqualFold(l, label) {
			return s, true
		}
	}
	return 0, false
}

// Campaign types
type CampaignType uint8

const (
	TypeStartup CampaignType = 0
	TypeCharity CampaignType = 1
)

func (t CampaignType) String() string {
	switch t {
	case TypeStartup:
		return "startup"
	case TypeCharity:
		return "charity"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Viewer actions computed by the lifecycle engine.
type Action string

const (
	ActionDonate          Action = "donate"
	ActionInitiateClosure Action = "initiate_closure"
	ActionWithdraw        Action = "withdraw"
	ActionClaimRefund     Action = "claim_refund"
	ActionCancel          Action = "cancel"
)

// Campaign is one on-chain fundraising record. ID is the local zero-based
// snapshot index; the contract numbers campaigns from one, and the translation
// lives in internal/chain. Amounts are token base units.
type Campaign struct {
	ID              int64        `json:"id"`
	Creator         string       `json:"creator"`
	AcceptedToken   string       `json:"accepted_token"`
	TargetAmount    *big.Int     `json:"target_amount"`
	RaisedAmount    *big.Int     `json:"raised_amount"`
	TotalEverRaised *big.Int     `json:"total_ever_raised"`
	MetadataRef     string       `json:"metadata_ref"`
	EndTime         int64        `json:"end_time"`
	Status          Status       `json:"status"`
	CreatedAt       int64        `json:"created_at"`
	ReclaimDeadline int64        `json:"reclaim_deadline"` // meaningful only while Closing
	Type            CampaignType `json:"type"`
}

// IsCreator compares the viewer address against the campaign creator.
// On-chain addresses are hex and case carries no meaning (checksum casing).
func (c *Campaign) IsCreator(viewer string) bool {
	return viewer != "" && strings.EqualFold(viewer, c.Creator)
}

// Metadata is the off-chain campaign content fetched from the content store.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}
