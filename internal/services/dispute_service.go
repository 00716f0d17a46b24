package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/events"
	"github.com/giftmoments/backend/internal/models"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DisputeService owns the dispute workflow. Resolutions that move money
// delegate to the escrow service inside the same transaction, so the dispute
// status and the custody status can never diverge.
type DisputeService struct {
	pool        *pgxpool.Pool
	disputeRepo *repositories.DisputeRepo
	escrowRepo  *repositories.EscrowRepo
	escrows     *EscrowService
	publisher   events.Publisher
	cfg         *config.Config
	log         *zap.Logger
}

func NewDisputeService(
	pool *pgxpool.Pool,
	disputeRepo *repositories.DisputeRepo,
	escrowRepo *repositories.EscrowRepo,
	escrows *EscrowService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *DisputeService {
	return &DisputeService{
		pool:        pool,
		disputeRepo: disputeRepo,
		escrowRepo:  escrowRepo,
		escrows:     escrows,
		publisher:   publisher,
		cfg:         cfg,
		log:         log,
	}
}

type OpenDisputeInput struct {
	EscrowID    uuid.UUID
	OpenerID    uuid.UUID
	Reason      string
	Description string
	Evidence    *string
}

// OpenDispute freezes a pending escrow. Either party may open; at most one
// active dispute per escrow.
func (s *DisputeService) OpenDispute(ctx context.Context, in OpenDisputeInput) (*models.Dispute, error) {
	if !models.IsValidDisputeReason(in.Reason) {
		return nil, ErrInvalidReason
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err := txEscrows.GetByIDForUpdate(ctx, in.EscrowID)
	if err != nil {
		return nil, err
	}
	if !escrow.IsParty(in.OpenerID) {
		return nil, ErrNotParty
	}
	switch escrow.Status {
	case models.EscrowStatusReleased:
		return nil, ErrAlreadyReleased
	case models.EscrowStatusRefunded:
		return nil, ErrAlreadyRefunded
	case models.EscrowStatusPending:
	default:
		return nil, ErrEscrowNotPending
	}

	txDisputes := s.disputeRepo.WithTx(tx)
	if _, err := txDisputes.GetActiveByEscrow(ctx, in.EscrowID); err == nil {
		return nil, ErrActiveDisputeExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active dispute: %w", err)
	}

	now := time.Now()
	dispute := &models.Dispute{
		EscrowID:         in.EscrowID,
		OpenerID:         in.OpenerID,
		Reason:           in.Reason,
		Description:      in.Description,
		Evidence:         in.Evidence,
		Status:           models.DisputeStatusAwaitingResponse,
		ResponseDeadline: now.Add(s.cfg.DisputeResponseDeadline),
		ReviewDeadline:   now.Add(s.cfg.DisputeReviewDeadline),
	}
	if err := txDisputes.Create(ctx, dispute); err != nil {
		return nil, fmt.Errorf("create dispute: %w", err)
	}

	ok, err := txEscrows.MarkDisputed(ctx, in.EscrowID, dispute.ID)
	if err != nil {
		return nil, fmt.Errorf("mark disputed: %w", err)
	}
	if !ok {
		return nil, ErrEscrowNotPending
	}

	s.escrows.auditTx(ctx, tx, &in.OpenerID, "user", "dispute_opened", "dispute", dispute.ID, map[string]any{
		"escrow_id": in.EscrowID,
		"reason":    in.Reason,
	})
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventDisputeOpened, map[string]any{
		"dispute_id": dispute.ID.String(),
		"escrow_id":  in.EscrowID.String(),
		"opener_id":  in.OpenerID.String(),
		"reason":     in.Reason,
	})
	return dispute, nil
}

// RespondToDispute records the counterparty's side and moves the dispute to
// under_review.
func (s *DisputeService) RespondToDispute(ctx context.Context, disputeID, userID uuid.UUID, text string, evidence *string) (*models.Dispute, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txDisputes := s.disputeRepo.WithTx(tx)
	dispute, err := txDisputes.GetByIDForUpdate(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusAwaitingResponse {
		if !models.IsActiveDisputeStatus(dispute.Status) {
			return nil, ErrDisputeResolved
		}
		return nil, ErrDisputeNotOpen
	}

	escrow, err := s.escrowRepo.WithTx(tx).GetByID(ctx, dispute.EscrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Counterparty(dispute.OpenerID) != userID {
		return nil, ErrNotCounterparty
	}

	if err := txDisputes.SetResponse(ctx, disputeID, text, evidence); err != nil {
		return nil, fmt.Errorf("record response: %w", err)
	}
	ok, err := txDisputes.UpdateStatus(ctx, disputeID, models.DisputeStatusAwaitingResponse, models.DisputeStatusUnderReview)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return nil, ErrDisputeNotOpen
	}

	s.escrows.auditTx(ctx, tx, &userID, "user", "dispute_responded", "dispute", disputeID, nil)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventDisputeResponded, map[string]any{
		"dispute_id": disputeID.String(),
		"escrow_id":  dispute.EscrowID.String(),
	})
	return s.disputeRepo.GetByID(ctx, disputeID)
}

type ResolveDisputeInput struct {
	DisputeID    uuid.UUID
	AdminID      uuid.UUID
	Resolution   string // refund / partial / release / cancel / expire
	RefundAmount *decimal.Decimal
	Note         *string
}

// ResolveDispute applies an admin decision. The dispute terminal status and
// the escrow money movement commit together or not at all.
func (s *DisputeService) ResolveDispute(ctx context.Context, in ResolveDisputeInput) (*models.Dispute, error) {
	toStatus, ok := models.ResolutionToDisputeStatus(in.Resolution)
	if !ok {
		return nil, fmt.Errorf("unknown resolution %q", in.Resolution)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txDisputes := s.disputeRepo.WithTx(tx)
	dispute, err := txDisputes.GetByIDForUpdate(ctx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if !models.IsActiveDisputeStatus(dispute.Status) {
		return nil, ErrDisputeResolved
	}
	if !models.IsValidDisputeTransition(dispute.Status, toStatus) {
		return nil, fmt.Errorf("cannot resolve %s dispute as %s", dispute.Status, in.Resolution)
	}

	eventType, err := s.escrows.ApplyDisputeResolution(ctx, tx, dispute.EscrowID, in.Resolution, in.RefundAmount, &in.AdminID)
	if err != nil {
		return nil, err
	}

	moved, err := txDisputes.UpdateStatus(ctx, in.DisputeID, dispute.Status, toStatus)
	if err != nil {
		return nil, fmt.Errorf("update dispute status: %w", err)
	}
	if !moved {
		return nil, ErrDisputeResolved
	}
	if err := txDisputes.SetResolution(ctx, in.DisputeID, in.Resolution, in.RefundAmount, &in.AdminID); err != nil {
		return nil, fmt.Errorf("record resolution: %w", err)
	}

	meta := map[string]any{
		"escrow_id":  dispute.EscrowID,
		"resolution": in.Resolution,
	}
	if in.RefundAmount != nil {
		meta["refund_amount"] = in.RefundAmount
	}
	if in.Note != nil {
		meta["note"] = *in.Note
	}
	s.escrows.auditTx(ctx, tx, &in.AdminID, "admin", "dispute_resolved", "dispute", in.DisputeID, meta)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventDisputeResolved, map[string]any{
		"dispute_id": in.DisputeID.String(),
		"escrow_id":  dispute.EscrowID.String(),
		"resolution": in.Resolution,
	})
	if eventType != "" {
		escrow, err := s.escrowRepo.GetByID(ctx, dispute.EscrowID)
		if err == nil {
			switch eventType {
			case events.EventEscrowReleased:
				s.escrows.publishReleased(escrow, "dispute_"+in.Resolution)
			case events.EventEscrowRefunded:
				s.escrows.publishRefunded(escrow)
			}
		}
	}
	return s.disputeRepo.GetByID(ctx, in.DisputeID)
}

// CancelDispute lets the opener withdraw an unresolved dispute. The escrow
// returns to pending with its timers intact.
func (s *DisputeService) CancelDispute(ctx context.Context, disputeID, userID uuid.UUID) (*models.Dispute, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txDisputes := s.disputeRepo.WithTx(tx)
	dispute, err := txDisputes.GetByIDForUpdate(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.OpenerID != userID {
		return nil, ErrNotParty
	}
	if !models.IsActiveDisputeStatus(dispute.Status) {
		return nil, ErrDisputeResolved
	}

	if _, err := s.escrows.ApplyDisputeResolution(ctx, tx, dispute.EscrowID, models.ResolutionCancel, nil, &userID); err != nil {
		return nil, err
	}
	moved, err := txDisputes.UpdateStatus(ctx, disputeID, dispute.Status, models.DisputeStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("update dispute status: %w", err)
	}
	if !moved {
		return nil, ErrDisputeResolved
	}
	if err := txDisputes.SetResolution(ctx, disputeID, models.ResolutionCancel, nil, &userID); err != nil {
		return nil, fmt.Errorf("record resolution: %w", err)
	}

	s.escrows.auditTx(ctx, tx, &userID, "user", "dispute_cancelled", "dispute", disputeID, nil)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventDisputeResolved, map[string]any{
		"dispute_id": disputeID.String(),
		"escrow_id":  dispute.EscrowID.String(),
		"resolution": models.ResolutionCancel,
	})
	return s.disputeRepo.GetByID(ctx, disputeID)
}

// EscalateOverdue flags active disputes past their deadline for admin
// attention. Called by the sweep; returns how many were flagged.
func (s *DisputeService) EscalateOverdue(ctx context.Context, limit int) (int, error) {
	disputes, err := s.disputeRepo.ListEscalatable(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list escalatable: %w", err)
	}

	count := 0
	for _, d := range disputes {
		ok, err := s.disputeRepo.MarkEscalated(ctx, d.ID)
		if err != nil {
			s.log.Error("escalation failed",
				zap.String("dispute_id", d.ID.String()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		count++
		s.publish(events.EventDisputeEscalated, map[string]any{
			"dispute_id": d.ID.String(),
			"escrow_id":  d.EscrowID.String(),
			"status":     d.Status,
		})
	}
	return count, nil
}

// GetDispute enforces party-or-admin visibility via the linked escrow.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID, requesterID uuid.UUID, isAdmin bool) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		escrow, err := s.escrowRepo.GetByID(ctx, dispute.EscrowID)
		if err != nil {
			return nil, err
		}
		if !escrow.IsParty(requesterID) {
			return nil, ErrNotParty
		}
	}
	return dispute, nil
}

func (s *DisputeService) publish(eventType string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.StreamSettlement, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Error("event publish failed", zap.String("type", eventType), zap.Error(err))
	}
}
