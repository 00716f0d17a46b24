package services

import "errors"

// Sentinel errors handlers map onto machine-readable responses. State
// conflicts are distinguished from validation failures so callers can treat
// "already released" as idempotent success.
var (
	// Validation (caller's fault)
	ErrUnknownCurrency  = errors.New("unknown currency pair")
	ErrMomentNotActive  = errors.New("moment is not active")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidReason    = errors.New("invalid dispute reason")
	ErrNotParty         = errors.New("user is not a party to this escrow")
	ErrNotCounterparty  = errors.New("only the counterparty can respond to a dispute")
	ErrNotRecipient     = errors.New("only the recipient can submit proof")
	ErrSelfGift         = errors.New("giver and receiver must differ")
	ErrProofUnreachable = errors.New("proof url could not be fetched")

	// State conflicts
	ErrAlreadyReleased       = errors.New("escrow already released")
	ErrAlreadyRefunded       = errors.New("escrow already refunded")
	ErrEscrowNotPending      = errors.New("escrow is not pending")
	ErrEscrowNotDisputed     = errors.New("escrow is not disputed")
	ErrProofAlreadySubmitted = errors.New("proof already submitted")
	ErrNoProofSubmitted      = errors.New("no proof submitted")
	ErrExpiryNotReached      = errors.New("escrow has not expired yet")
	ErrReleasesOnTimer       = errors.New("escrow releases automatically at expiry")
	ErrActiveDisputeExists   = errors.New("an active dispute already exists for this escrow")
	ErrDisputeNotOpen        = errors.New("dispute is not awaiting a response")
	ErrDisputeResolved       = errors.New("dispute is already resolved")

	// Resource errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRateStale           = errors.New("exchange rate is stale")
	ErrRefundExceedsAmount = errors.New("refund amount exceeds escrowed amount")
)
