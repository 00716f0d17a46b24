package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Escrow custody statuses
const (
	EscrowStatusPending  = "pending"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
	EscrowStatusDisputed = "disputed"
)

// Release conditions
const (
	ReleaseConditionProofVerified = "proof_verified"
	ReleaseConditionTimerExpiry   = "timer_expiry"
)

// Valid custody transitions: from -> []to.
// "disputed -> pending" is the cancelled-dispute path; timers resume as if
// the dispute never happened.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:  {EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusDisputed},
	EscrowStatusDisputed: {EscrowStatusPending, EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

func IsValidEscrowTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalEscrowStatus(status string) bool {
	return status == EscrowStatusReleased || status == EscrowStatusRefunded
}

// EscrowTransaction is the custody record for one gift's funds. Amount is the
// net payout (commission already deducted at creation) and is immutable after
// creation.
type EscrowTransaction struct {
	ID               uuid.UUID       `json:"id"`
	GiftID           *uuid.UUID      `json:"gift_id,omitempty"`
	SenderID         uuid.UUID       `json:"sender_id"`
	RecipientID      uuid.UUID       `json:"recipient_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	ReleaseCondition string          `json:"release_condition"` // proof_verified / timer_expiry
	ProofSubmitted   bool            `json:"proof_submitted"`
	ProofURL         *string         `json:"proof_url,omitempty"`
	ProofTitle       *string         `json:"proof_title,omitempty"`
	ProofVerifiedAt  *time.Time      `json:"proof_verified_at,omitempty"`
	ExpiresAt        time.Time       `json:"expires_at"`
	ReleasedAt       *time.Time      `json:"released_at,omitempty"`
	RefundedAt       *time.Time      `json:"refunded_at,omitempty"`
	ReleasedBy       *uuid.UUID      `json:"released_by,omitempty"`
	RefundedBy       *uuid.UUID      `json:"refunded_by,omitempty"`
	ReleaseReason    *string         `json:"release_reason,omitempty"`
	DisputeID        *uuid.UUID      `json:"dispute_id,omitempty"`
	IdempotencyKey   *string         `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsParty reports whether the user is the giver or the receiver of the escrow.
func (e *EscrowTransaction) IsParty(userID uuid.UUID) bool {
	return e.SenderID == userID || e.RecipientID == userID
}

// Counterparty returns the other side of the escrow relative to userID.
func (e *EscrowTransaction) Counterparty(userID uuid.UUID) uuid.UUID {
	if e.SenderID == userID {
		return e.RecipientID
	}
	return e.SenderID
}

// EligibleForAutoRelease: a verified proof has aged past delay, or a
// timer-release escrow has reached its deadline.
func (e *EscrowTransaction) EligibleForAutoRelease(now time.Time, delay time.Duration) bool {
	if e.Status != EscrowStatusPending {
		return false
	}
	if e.ReleaseCondition == ReleaseConditionTimerExpiry {
		return !now.Before(e.ExpiresAt)
	}
	return e.ProofSubmitted &&
		e.ProofVerifiedAt != nil &&
		now.Sub(*e.ProofVerifiedAt) >= delay
}

// EligibleForAutoRefund: deadline passed with no proof on file. Timer-release
// escrows never auto-refund; expiry releases them instead.
func (e *EscrowTransaction) EligibleForAutoRefund(now time.Time) bool {
	return e.Status == EscrowStatusPending &&
		e.ReleaseCondition != ReleaseConditionTimerExpiry &&
		!e.ProofSubmitted &&
		!now.Before(e.ExpiresAt)
}
