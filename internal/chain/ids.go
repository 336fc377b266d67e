package chain

import "math/big"

// The contract numbers campaigns from one; the snapshot assigns local ids
// from zero. These two functions are the only place that translation is
// allowed to happen — every call crossing the contract boundary goes through
// them, never an inline +1/-1.

// ContractCampaignID converts a local snapshot id to the contract's id.
func ContractCampaignID(localID int64) *big.Int {
	return big.NewInt(localID + 1)
}

// LocalCampaignID converts a contract campaign id to the local snapshot id.
// Returns -1 for ids the contract can never emit (zero or negative).
func LocalCampaignID(contractID *big.Int) int64 {
	if contractID == nil || !contractID.IsInt64() || contractID.Int64() < 1 {
		return -1
	}
	return contractID.Int64() - 1
}
