package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type NonceResponse struct {
	Message string `json:"message"` // the exact text the wallet must sign
}

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type TxResponse struct {
	Tx string `json:"tx"`
}
