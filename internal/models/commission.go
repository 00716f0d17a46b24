package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receiver account types for commission overrides
const (
	AccountTypeStandard   = "standard"
	AccountTypeVIP        = "vip"
	AccountTypeInfluencer = "influencer"
	AccountTypeExempt     = "exempt"
)

// Escrow policies derived from the USD bracket
const (
	EscrowPolicyRequired    = "required"
	EscrowPolicyNotRequired = "not_required"
)

// CommissionTier is a USD-denominated [min, max) bracket with a total rate
// and a giver/receiver split. Read-only at transaction time.
type CommissionTier struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	MinAmountUSD decimal.Decimal  `json:"min_amount_usd"`
	MaxAmountUSD *decimal.Decimal `json:"max_amount_usd,omitempty"` // nil = open-ended
	TotalRate    decimal.Decimal  `json:"total_rate"`
	GiverShare   decimal.Decimal  `json:"giver_share"`
	CreatedAt    time.Time        `json:"created_at"`
}

// EscrowThreshold is keyed the same way as commission tiers.
type EscrowThreshold struct {
	ID              uuid.UUID        `json:"id"`
	MinAmountUSD    decimal.Decimal  `json:"min_amount_usd"`
	MaxAmountUSD    *decimal.Decimal `json:"max_amount_usd,omitempty"`
	EscrowPolicy    string           `json:"escrow_policy"` // required / not_required
	MaxContributors int              `json:"max_contributors"`
}

// UserCommissionSettings overrides tier-derived values for one receiver.
type UserCommissionSettings struct {
	UserID      uuid.UUID        `json:"user_id"`
	AccountType string           `json:"account_type"`
	CustomRate  *decimal.Decimal `json:"custom_rate,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CommissionLedgerEntry is the immutable audit record of the commission
// computation applied to one gift. Written once at gift creation.
type CommissionLedgerEntry struct {
	ID                 uuid.UUID       `json:"id"`
	GiftID             uuid.UUID       `json:"gift_id"`
	EscrowID           *uuid.UUID      `json:"escrow_id,omitempty"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	Currency           string          `json:"currency"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	GiverCommission    decimal.Decimal `json:"giver_commission"`
	ReceiverCommission decimal.Decimal `json:"receiver_commission"`
	GiverPays          decimal.Decimal `json:"giver_pays"`
	ReceiverGets       decimal.Decimal `json:"receiver_gets"`
	GiverPaysTRY       decimal.Decimal `json:"giver_pays_try"`
	ReceiverGetsTRY    decimal.Decimal `json:"receiver_gets_try"`
	RateToTRY          decimal.Decimal `json:"rate_to_try"`
	BufferPercent      decimal.Decimal `json:"buffer_percent"`
	TierName           string          `json:"tier_name"`
	CreatedAt          time.Time       `json:"created_at"`
}
