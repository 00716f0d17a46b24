package dto

type QuoteRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	DisplayCurrency string `json:"display_currency,omitempty"`
	ReceiverID      string `json:"receiver_id"`
}

type LimitCheckRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Category string `json:"category"`
}

type CreateGiftRequest struct {
	ReceiverID     string `json:"receiver_id"`
	MomentID       string `json:"moment_id"`
	Category       string `json:"category"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	RequiresProof  *bool  `json:"requires_proof,omitempty"` // defaults to true
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type SubmitProofRequest struct {
	ProofURL string `json:"proof_url"`
}

type OpenDisputeRequest struct {
	Reason      string  `json:"reason"` // not_completed / not_as_described / fraud / other
	Description string  `json:"description"`
	Evidence    *string `json:"evidence,omitempty"`
}

type RespondDisputeRequest struct {
	Text     string  `json:"text"`
	Evidence *string `json:"evidence,omitempty"`
}

type ResolveDisputeRequest struct {
	Resolution   string  `json:"resolution"` // refund / partial / release / cancel / expire
	RefundAmount *string `json:"refund_amount,omitempty"`
	Note         *string `json:"note,omitempty"`
}

type UpsertRateRequest struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	Rate         string `json:"rate"`
}
