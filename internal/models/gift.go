package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gift statuses
const (
	GiftStatusPending   = "pending"
	GiftStatusCompleted = "completed"
	GiftStatusRefunded  = "refunded"
	GiftStatusCancelled = "cancelled"
)

// Moment statuses this core cares about. Moments themselves are managed by an
// external collaborator; we only read the status.
const MomentStatusActive = "active"

// Gift is the financial record of one giver-to-receiver transfer tied to a
// hosted moment. Never hard-deleted.
type Gift struct {
	ID             uuid.UUID       `json:"id"`
	GiverID        uuid.UUID       `json:"giver_id"`
	ReceiverID     uuid.UUID       `json:"receiver_id"`
	MomentID       uuid.UUID       `json:"moment_id"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	RequiresProof  bool            `json:"requires_proof"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
