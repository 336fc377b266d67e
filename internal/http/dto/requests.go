package dto

type NonceRequest struct {
	Address string `json:"address"`
}

type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type CreateCampaignRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TargetAmount string `json:"target_amount"` // display units
	EndTime      string `json:"end_time"`      // RFC3339 or datetime-local
	Type         string `json:"type"`          // "startup" / "charity"
	ImageBase64  string `json:"image_base64,omitempty"`
	ImageName    string `json:"image_name,omitempty"`
}

type DonateRequest struct {
	Amount string `json:"amount"` // display units
}
