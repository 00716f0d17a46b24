package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User types for limit resolution
const (
	UserTypeNew      = "new" // account younger than 30 days
	UserTypeStandard = "standard"
	UserTypeVerified = "verified" // KYC approved
)

// KYC statuses (read-only here; computed by the KYC collaborator)
const (
	KYCStatusNone     = "none"
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
)

// NewUserAge is the account age below which a user is treated as "new".
const NewUserAge = 30 * 24 * time.Hour

// TransactionLimit is one row of per-(plan, user type, category, currency)
// limits. Nil fields mean "no cap at that window".
type TransactionLimit struct {
	ID                uuid.UUID        `json:"id"`
	Plan              string           `json:"plan"`
	UserType          string           `json:"user_type"`
	Category          string           `json:"category"`
	Currency          string           `json:"currency"`
	PerTransactionMax *decimal.Decimal `json:"per_transaction_max,omitempty"`
	DailyMax          *decimal.Decimal `json:"daily_max,omitempty"`
	MonthlyMax        *decimal.Decimal `json:"monthly_max,omitempty"`
}

// KYCThreshold holds the global soft-prompt / hard-require amounts for one
// currency, independent of plan.
type KYCThreshold struct {
	ID         uuid.UUID       `json:"id"`
	Currency   string          `json:"currency"`
	SoftAmount decimal.Decimal `json:"soft_amount"`
	HardAmount decimal.Decimal `json:"hard_amount"`
}

// DeriveUserType resolves the user type used for limit lookup.
func DeriveUserType(kycStatus string, createdAt, now time.Time) string {
	if kycStatus == KYCStatusApproved {
		return UserTypeVerified
	}
	if now.Sub(createdAt) < NewUserAge {
		return UserTypeNew
	}
	return UserTypeStandard
}
