package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type OpenGiftResponse struct {
	OK       bool `json:"ok"`
	Replayed bool `json:"replayed,omitempty"`
	Gift     any  `json:"gift"`
	Escrow   any  `json:"escrow,omitempty"`
	Ledger   any  `json:"ledger,omitempty"`
}
