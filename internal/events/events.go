package events

import "context"

// Settlement event types. Downstream collaborators (notifications, analytics)
// subscribe to these instead of watching table writes.
const (
	EventEscrowOpened     = "escrow_opened"
	EventEscrowReleased   = "escrow_released"
	EventEscrowRefunded   = "escrow_refunded"
	EventProofSubmitted   = "proof_submitted"
	EventProofVerified    = "proof_verified"
	EventDisputeOpened    = "dispute_opened"
	EventDisputeResponded = "dispute_responded"
	EventDisputeResolved  = "dispute_resolved"
	EventDisputeEscalated = "dispute_escalated"
)

// StreamSettlement is the single channel all settlement events go to.
const StreamSettlement = "events:settlement"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
