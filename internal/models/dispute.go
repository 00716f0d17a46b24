package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dispute statuses. A dispute is created directly in awaiting_response:
// opening is a single atomic write, so there is no staged initial state.
const (
	DisputeStatusAwaitingResponse = "awaiting_response"
	DisputeStatusUnderReview      = "under_review"
	DisputeStatusResolvedRefund   = "resolved_refund"
	DisputeStatusResolvedPartial  = "resolved_partial"
	DisputeStatusResolvedRelease  = "resolved_release"
	DisputeStatusCancelled        = "cancelled"
	DisputeStatusExpired          = "expired"
)

// Dispute reasons
const (
	DisputeReasonNotCompleted   = "not_completed"
	DisputeReasonNotAsDescribed = "not_as_described"
	DisputeReasonFraud          = "fraud"
	DisputeReasonOther          = "other"
)

// Resolution types set by admin action
const (
	ResolutionRefund  = "refund"
	ResolutionPartial = "partial"
	ResolutionRelease = "release"
	ResolutionCancel  = "cancel"
	ResolutionExpire  = "expire"
)

// Valid dispute transitions: from -> []to. Admin may resolve before the
// counterparty responds, so terminal statuses are reachable from
// awaiting_response as well as under_review.
var ValidDisputeTransitions = map[string][]string{
	DisputeStatusAwaitingResponse: {
		DisputeStatusUnderReview,
		DisputeStatusResolvedRefund, DisputeStatusResolvedPartial, DisputeStatusResolvedRelease,
		DisputeStatusCancelled, DisputeStatusExpired,
	},
	DisputeStatusUnderReview: {
		DisputeStatusResolvedRefund, DisputeStatusResolvedPartial, DisputeStatusResolvedRelease,
		DisputeStatusCancelled, DisputeStatusExpired,
	},
	DisputeStatusResolvedRefund:  {},
	DisputeStatusResolvedPartial: {},
	DisputeStatusResolvedRelease: {},
	DisputeStatusCancelled:       {},
	DisputeStatusExpired:         {},
}

func IsValidDisputeTransition(from, to string) bool {
	allowed, ok := ValidDisputeTransitions[from]
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

func IsActiveDisputeStatus(status string) bool {
	switch status {
	case DisputeStatusAwaitingResponse, DisputeStatusUnderReview:
		return true
	}
	return false
}

// ResolutionToDisputeStatus maps an admin resolution type onto the dispute's
// terminal status.
func ResolutionToDisputeStatus(resolution string) (string, bool) {
	switch resolution {
	case ResolutionRefund:
		return DisputeStatusResolvedRefund, true
	case ResolutionPartial:
		return DisputeStatusResolvedPartial, true
	case ResolutionRelease:
		return DisputeStatusResolvedRelease, true
	case ResolutionCancel:
		return DisputeStatusCancelled, true
	case ResolutionExpire:
		return DisputeStatusExpired, true
	}
	return "", false
}

func IsValidDisputeReason(reason string) bool {
	switch reason {
	case DisputeReasonNotCompleted, DisputeReasonNotAsDescribed, DisputeReasonFraud, DisputeReasonOther:
		return true
	}
	return false
}

// Dispute is attached 1:1 to an escrow transaction once opened. At most one
// active dispute may exist per escrow.
type Dispute struct {
	ID               uuid.UUID        `json:"id"`
	EscrowID         uuid.UUID        `json:"escrow_id"`
	OpenerID         uuid.UUID        `json:"opener_id"`
	Reason           string           `json:"reason"`
	Description      string           `json:"description"`
	Evidence         *string          `json:"evidence,omitempty"`
	Status           string           `json:"status"`
	ResponseText     *string          `json:"response_text,omitempty"`
	ResponseEvidence *string          `json:"response_evidence,omitempty"`
	RespondedAt      *time.Time       `json:"responded_at,omitempty"`
	ResponseDeadline time.Time        `json:"response_deadline"`
	ReviewDeadline   time.Time        `json:"review_deadline"`
	Escalated        bool             `json:"escalated"`
	ResolutionType   *string          `json:"resolution_type,omitempty"`
	RefundAmount     *decimal.Decimal `json:"refund_amount,omitempty"`
	ResolvedBy       *uuid.UUID       `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NeedsEscalation: an unresolved dispute whose relevant deadline has passed
// and which has not yet been flagged for admin attention.
func (d *Dispute) NeedsEscalation(now time.Time) bool {
	if d.Escalated {
		return false
	}
	switch d.Status {
	case DisputeStatusAwaitingResponse:
		return now.After(d.ResponseDeadline)
	case DisputeStatusUnderReview:
		return now.After(d.ReviewDeadline)
	}
	return false
}
