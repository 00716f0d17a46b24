package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/events"
	"github.com/giftmoments/backend/internal/models"
	"github.com/giftmoments/backend/internal/proofcheck"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EscrowService owns fund custody: opening escrows, proof handling, release
// and refund. Every transition runs in a transaction that re-reads the escrow
// row under FOR UPDATE and writes the terminal status through a guarded
// UPDATE, so a racing sweep and admin action cannot both move the money.
type EscrowService struct {
	pool           *pgxpool.Pool
	escrowRepo     *repositories.EscrowRepo
	giftRepo       *repositories.GiftRepo
	balanceRepo    *repositories.BalanceRepo
	commissionRepo *repositories.CommissionRepo
	auditRepo      *repositories.AuditRepo
	commission     *CommissionService
	checker        *proofcheck.Checker
	publisher      events.Publisher
	cfg            *config.Config
	log            *zap.Logger
}

func NewEscrowService(
	pool *pgxpool.Pool,
	escrowRepo *repositories.EscrowRepo,
	giftRepo *repositories.GiftRepo,
	balanceRepo *repositories.BalanceRepo,
	commissionRepo *repositories.CommissionRepo,
	auditRepo *repositories.AuditRepo,
	commission *CommissionService,
	checker *proofcheck.Checker,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		pool:           pool,
		escrowRepo:     escrowRepo,
		giftRepo:       giftRepo,
		balanceRepo:    balanceRepo,
		commissionRepo: commissionRepo,
		auditRepo:      auditRepo,
		commission:     commission,
		checker:        checker,
		publisher:      publisher,
		cfg:            cfg,
		log:            log,
	}
}

type OpenEscrowInput struct {
	GiverID    uuid.UUID
	ReceiverID uuid.UUID
	MomentID   uuid.UUID
	Category   string
	Amount     decimal.Decimal
	Currency   string
	// RequiresProof picks the release condition: proof verification or plain
	// timer expiry. Only meaningful when the amount lands above the escrow
	// threshold.
	RequiresProof  bool
	IdempotencyKey *string
}

// OpenEscrowResult carries everything the open path produced. Escrow is nil
// when the amount fell below the escrow threshold and settled directly.
type OpenEscrowResult struct {
	Gift     *models.Gift
	Escrow   *models.EscrowTransaction
	Ledger   *models.CommissionLedgerEntry
	Replayed bool
}

// OpenEscrow debits the giver, credits the platform its commission, and
// places the net amount in custody (or settles it directly below the
// threshold). The whole money movement is one transaction.
func (s *EscrowService) OpenEscrow(ctx context.Context, in OpenEscrowInput) (*OpenEscrowResult, error) {
	if in.GiverID == in.ReceiverID {
		return nil, ErrSelfGift
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
		existing, err := s.giftRepo.GetByIdempotencyKey(ctx, *in.IdempotencyKey)
		if err == nil {
			return s.replayResult(ctx, existing)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	status, err := s.giftRepo.GetMomentStatus(ctx, in.MomentID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && status != models.MomentStatusActive) {
		return nil, ErrMomentNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("load moment: %w", err)
	}

	quote, err := s.commission.CalculateSettlement(ctx, in.Amount, in.Currency, "", in.ReceiverID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	balances := s.balanceRepo.WithTx(tx)
	if _, err := balances.Lock(ctx, in.GiverID, in.Currency); err != nil {
		return nil, fmt.Errorf("lock giver balance: %w", err)
	}
	ok, err := balances.Debit(ctx, in.GiverID, in.Currency, quote.GiverPays)
	if err != nil {
		return nil, fmt.Errorf("debit giver: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}
	if quote.TotalCommission.IsPositive() {
		if err := balances.Credit(ctx, s.cfg.PlatformAccountID, in.Currency, quote.TotalCommission); err != nil {
			return nil, fmt.Errorf("credit platform: %w", err)
		}
	}

	escrowed := quote.EscrowPolicy == models.EscrowPolicyRequired

	gift := &models.Gift{
		GiverID:        in.GiverID,
		ReceiverID:     in.ReceiverID,
		MomentID:       in.MomentID,
		Category:       in.Category,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Status:         models.GiftStatusPending,
		RequiresProof:  escrowed && in.RequiresProof,
		IdempotencyKey: in.IdempotencyKey,
	}
	if !escrowed {
		gift.Status = models.GiftStatusCompleted
	}
	if err := s.giftRepo.WithTx(tx).Create(ctx, gift); err != nil {
		// A concurrent open with the same key won the insert race; its row is
		// committed by the time the unique violation surfaces here.
		if in.IdempotencyKey != nil && isUniqueViolation(err) {
			return s.replayByKey(ctx, *in.IdempotencyKey)
		}
		return nil, fmt.Errorf("create gift: %w", err)
	}

	result := &OpenEscrowResult{Gift: gift}

	if escrowed {
		releaseCondition := models.ReleaseConditionProofVerified
		if !in.RequiresProof {
			releaseCondition = models.ReleaseConditionTimerExpiry
		}
		escrow := &models.EscrowTransaction{
			GiftID:           &gift.ID,
			SenderID:         in.GiverID,
			RecipientID:      in.ReceiverID,
			Amount:           quote.ReceiverGets,
			Currency:         in.Currency,
			Status:           models.EscrowStatusPending,
			ReleaseCondition: releaseCondition,
			ExpiresAt:        time.Now().Add(time.Duration(s.cfg.DefaultProofDeadlineHours) * time.Hour),
			IdempotencyKey:   in.IdempotencyKey,
		}
		if err := s.escrowRepo.WithTx(tx).Create(ctx, escrow); err != nil {
			if in.IdempotencyKey != nil && isUniqueViolation(err) {
				return s.replayByKey(ctx, *in.IdempotencyKey)
			}
			return nil, fmt.Errorf("create escrow: %w", err)
		}
		result.Escrow = escrow
	} else {
		// Below the escrow threshold the net amount pays out immediately.
		if err := balances.Credit(ctx, in.ReceiverID, in.Currency, quote.ReceiverGets); err != nil {
			return nil, fmt.Errorf("credit receiver: %w", err)
		}
	}

	ledger := ledgerFromQuote(gift.ID, result.Escrow, quote)
	if err := s.commissionRepo.WithTx(tx).CreateLedgerEntry(ctx, ledger); err != nil {
		return nil, fmt.Errorf("write commission ledger: %w", err)
	}
	result.Ledger = ledger

	action := "escrow_opened"
	entityID := gift.ID
	if result.Escrow != nil {
		entityID = result.Escrow.ID
	} else {
		action = "gift_settled_direct"
	}
	s.auditTx(ctx, tx, &in.GiverID, "user", action, "escrow", entityID, map[string]any{
		"gift_id":    gift.ID,
		"giver_pays": quote.GiverPays,
		"commission": quote.TotalCommission,
	})

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if result.Escrow != nil {
		s.publish(events.EventEscrowOpened, map[string]any{
			"escrow_id":    result.Escrow.ID.String(),
			"gift_id":      gift.ID.String(),
			"sender_id":    in.GiverID.String(),
			"recipient_id": in.ReceiverID.String(),
			"amount":       result.Escrow.Amount.String(),
			"currency":     in.Currency,
		})
	}
	return result, nil
}

// replayResult rebuilds the original response for a repeated idempotency key.
// Direct-settled gifts have no escrow row; the escrow stays nil then, exactly
// as in the first response.
func (s *EscrowService) replayResult(ctx context.Context, gift *models.Gift) (*OpenEscrowResult, error) {
	result := &OpenEscrowResult{Gift: gift, Replayed: true}

	escrow, err := s.escrowRepo.GetByGiftID(ctx, gift.ID)
	if err == nil {
		result.Escrow = escrow
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load escrow for replay: %w", err)
	}

	ledger, err := s.commissionRepo.GetLedgerByGift(ctx, gift.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load ledger for replay: %w", err)
	}
	result.Ledger = ledger
	return result, nil
}

func (s *EscrowService) replayByKey(ctx context.Context, key string) (*OpenEscrowResult, error) {
	gift, err := s.giftRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("replay lookup: %w", err)
	}
	return s.replayResult(ctx, gift)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SubmitProof fetches the proof URL first (outside any lock), then records it
// under the row lock so a concurrent refund cannot slip in between.
func (s *EscrowService) SubmitProof(ctx context.Context, escrowID, userID uuid.UUID, proofURL string) (*models.EscrowTransaction, error) {
	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.RecipientID != userID {
		return nil, ErrNotRecipient
	}
	if err := s.checkPendingForProof(escrow); err != nil {
		return nil, err
	}

	proof, err := s.checker.Check(ctx, proofURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofUnreachable, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err = txEscrows.GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPendingForProof(escrow); err != nil {
		return nil, err
	}
	if err := txEscrows.SetProofSubmitted(ctx, escrowID, proof.URL, proof.Title); err != nil {
		return nil, fmt.Errorf("record proof: %w", err)
	}
	s.auditTx(ctx, tx, &userID, "user", "proof_submitted", "escrow", escrowID, map[string]any{
		"proof_url":   proof.URL,
		"proof_title": proof.Title,
	})
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventProofSubmitted, map[string]any{
		"escrow_id": escrowID.String(),
		"proof_url": proof.URL,
	})
	return s.escrowRepo.GetByID(ctx, escrowID)
}

func (s *EscrowService) checkPendingForProof(e *models.EscrowTransaction) error {
	switch e.Status {
	case models.EscrowStatusReleased:
		return ErrAlreadyReleased
	case models.EscrowStatusRefunded:
		return ErrAlreadyRefunded
	case models.EscrowStatusPending:
	default:
		return ErrEscrowNotPending
	}
	if e.ReleaseCondition == models.ReleaseConditionTimerExpiry {
		return ErrReleasesOnTimer
	}
	if e.ProofSubmitted {
		return ErrProofAlreadySubmitted
	}
	return nil
}

// VerifyProof stamps the proof as human-verified, starting the auto-release
// clock. Idempotent: a second verification returns the row unchanged.
func (s *EscrowService) VerifyProof(ctx context.Context, escrowID, adminID uuid.UUID) (*models.EscrowTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err := txEscrows.GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, ErrEscrowNotPending
	}
	if !escrow.ProofSubmitted {
		return nil, ErrNoProofSubmitted
	}
	if escrow.ProofVerifiedAt != nil {
		return escrow, nil
	}

	now := time.Now()
	if err := txEscrows.SetProofVerified(ctx, escrowID, now); err != nil {
		return nil, fmt.Errorf("stamp verification: %w", err)
	}
	s.auditTx(ctx, tx, &adminID, "admin", "proof_verified", "escrow", escrowID, nil)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publish(events.EventProofVerified, map[string]any{
		"escrow_id":   escrowID.String(),
		"verified_at": now.Format(time.RFC3339),
	})
	return s.escrowRepo.GetByID(ctx, escrowID)
}

// VerifyProofAndRelease is the admin fast path: verify and pay out in one
// transaction without waiting for the auto-release delay.
func (s *EscrowService) VerifyProofAndRelease(ctx context.Context, escrowID, adminID uuid.UUID) (*models.EscrowTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err := txEscrows.GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	switch escrow.Status {
	case models.EscrowStatusReleased:
		return escrow, nil // already done, idempotent
	case models.EscrowStatusRefunded:
		return nil, ErrAlreadyRefunded
	case models.EscrowStatusPending:
	default:
		return nil, ErrEscrowNotPending
	}
	if !escrow.ProofSubmitted {
		return nil, ErrNoProofSubmitted
	}

	if err := s.payOut(ctx, tx, escrow, &adminID, "admin_verified"); err != nil {
		return nil, err
	}
	s.auditTx(ctx, tx, &adminID, "admin", "escrow_released", "escrow", escrowID, map[string]any{
		"reason": "admin_verified",
	})
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publishReleased(escrow, "admin_verified")
	return s.escrowRepo.GetByID(ctx, escrowID)
}

// RefundEscrow returns custody funds to the giver. Non-admin callers must be
// the giver, with no proof on file and the deadline passed; admins may force.
func (s *EscrowService) RefundEscrow(ctx context.Context, escrowID, actorID uuid.UUID, isAdmin bool) (*models.EscrowTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err := txEscrows.GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	switch escrow.Status {
	case models.EscrowStatusRefunded:
		return escrow, nil
	case models.EscrowStatusReleased:
		return nil, ErrAlreadyReleased
	case models.EscrowStatusPending:
	default:
		return nil, ErrEscrowNotPending
	}

	if !isAdmin {
		if escrow.SenderID != actorID {
			return nil, ErrNotParty
		}
		// Timer escrows pay out at expiry; there is no no-proof window to
		// reclaim from. Only an admin can pull funds back out of one.
		if escrow.ReleaseCondition == models.ReleaseConditionTimerExpiry {
			return nil, ErrReleasesOnTimer
		}
		if escrow.ProofSubmitted {
			return nil, ErrProofAlreadySubmitted
		}
		if time.Now().Before(escrow.ExpiresAt) {
			return nil, ErrExpiryNotReached
		}
	}

	if err := s.refund(ctx, tx, escrow, &actorID); err != nil {
		return nil, err
	}
	actorType := "user"
	if isAdmin {
		actorType = "admin"
	}
	s.auditTx(ctx, tx, &actorID, actorType, "escrow_refunded", "escrow", escrowID, nil)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.publishRefunded(escrow)
	return s.escrowRepo.GetByID(ctx, escrowID)
}

// AutoRelease is the sweep path for one candidate id. Returns false when the
// row was no longer eligible by the time the lock was taken.
func (s *EscrowService) AutoRelease(ctx context.Context, escrowID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	escrow, err := s.escrowRepo.WithTx(tx).GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return false, err
	}
	if !escrow.EligibleForAutoRelease(time.Now(), s.cfg.AutoReleaseDelay) {
		return false, nil
	}

	if err := s.payOut(ctx, tx, escrow, nil, "auto_release"); err != nil {
		return false, err
	}
	s.auditTx(ctx, tx, nil, "system", "escrow_released", "escrow", escrowID, map[string]any{
		"reason": "auto_release",
	})
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.publishReleased(escrow, "auto_release")
	return true, nil
}

// AutoRefund is the sweep path for an expired escrow with no proof.
func (s *EscrowService) AutoRefund(ctx context.Context, escrowID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	escrow, err := s.escrowRepo.WithTx(tx).GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return false, err
	}
	if !escrow.EligibleForAutoRefund(time.Now()) {
		return false, nil
	}

	if err := s.refund(ctx, tx, escrow, nil); err != nil {
		return false, err
	}
	s.auditTx(ctx, tx, nil, "system", "escrow_refunded", "escrow", escrowID, map[string]any{
		"reason": "auto_refund",
	})
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.publishRefunded(escrow)
	return true, nil
}

// ApplyDisputeResolution moves a disputed escrow inside the caller's open
// transaction. It returns the settlement event to publish after commit, or ""
// when the escrow just returned to pending.
func (s *EscrowService) ApplyDisputeResolution(
	ctx context.Context,
	tx pgx.Tx,
	escrowID uuid.UUID,
	resolution string,
	refundAmount *decimal.Decimal,
	adminID *uuid.UUID,
) (string, error) {
	txEscrows := s.escrowRepo.WithTx(tx)
	escrow, err := txEscrows.GetByIDForUpdate(ctx, escrowID)
	if err != nil {
		return "", err
	}
	if escrow.Status != models.EscrowStatusDisputed {
		return "", ErrEscrowNotDisputed
	}

	balances := s.balanceRepo.WithTx(tx)
	gifts := s.giftRepo.WithTx(tx)

	switch resolution {
	case models.ResolutionRelease:
		if err := s.payOut(ctx, tx, escrow, adminID, "dispute_release"); err != nil {
			return "", err
		}
		return events.EventEscrowReleased, nil

	case models.ResolutionRefund, models.ResolutionExpire:
		// An expired dispute defaults in the giver's favor: the counterparty
		// never answered, so the funds go back rather than staying in limbo.
		if err := s.refund(ctx, tx, escrow, adminID); err != nil {
			return "", err
		}
		return events.EventEscrowRefunded, nil

	case models.ResolutionPartial:
		if refundAmount == nil || !refundAmount.IsPositive() {
			return "", ErrInvalidAmount
		}
		if refundAmount.GreaterThan(escrow.Amount) {
			return "", ErrRefundExceedsAmount
		}
		ok, err := txEscrows.MarkReleased(ctx, escrow.ID, escrow.Status, adminID, "dispute_partial")
		if err != nil {
			return "", fmt.Errorf("mark released: %w", err)
		}
		if !ok {
			return "", ErrEscrowNotDisputed
		}
		if err := balances.Credit(ctx, escrow.SenderID, escrow.Currency, *refundAmount); err != nil {
			return "", fmt.Errorf("credit sender: %w", err)
		}
		remainder := escrow.Amount.Sub(*refundAmount)
		if remainder.IsPositive() {
			if err := balances.Credit(ctx, escrow.RecipientID, escrow.Currency, remainder); err != nil {
				return "", fmt.Errorf("credit recipient: %w", err)
			}
		}
		if escrow.GiftID != nil {
			if err := gifts.UpdateStatus(ctx, *escrow.GiftID, models.GiftStatusCompleted); err != nil {
				return "", fmt.Errorf("update gift: %w", err)
			}
		}
		return events.EventEscrowReleased, nil

	case models.ResolutionCancel:
		// Custody returns to pending; proof and expiry timers resume where
		// they left off. The dispute link stays for the audit trail.
		ok, err := txEscrows.ReturnToPending(ctx, escrow.ID)
		if err != nil {
			return "", fmt.Errorf("return to pending: %w", err)
		}
		if !ok {
			return "", ErrEscrowNotDisputed
		}
		return "", nil

	default:
		return "", fmt.Errorf("unknown resolution %q", resolution)
	}
}

// payOut releases escrow.Amount to the recipient and completes the gift.
// Caller holds the row lock; the guarded UPDATE is the final arbiter.
func (s *EscrowService) payOut(ctx context.Context, tx pgx.Tx, escrow *models.EscrowTransaction, by *uuid.UUID, reason string) error {
	ok, err := s.escrowRepo.WithTx(tx).MarkReleased(ctx, escrow.ID, escrow.Status, by, reason)
	if err != nil {
		return fmt.Errorf("mark released: %w", err)
	}
	if !ok {
		return ErrEscrowNotPending
	}
	balances := s.balanceRepo.WithTx(tx)
	if _, err := balances.Lock(ctx, escrow.RecipientID, escrow.Currency); err != nil {
		return fmt.Errorf("lock recipient balance: %w", err)
	}
	if err := balances.Credit(ctx, escrow.RecipientID, escrow.Currency, escrow.Amount); err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}
	if escrow.GiftID != nil {
		if err := s.giftRepo.WithTx(tx).UpdateStatus(ctx, *escrow.GiftID, models.GiftStatusCompleted); err != nil {
			return fmt.Errorf("update gift: %w", err)
		}
	}
	return nil
}

// refund returns escrow.Amount to the sender and marks the gift refunded.
func (s *EscrowService) refund(ctx context.Context, tx pgx.Tx, escrow *models.EscrowTransaction, by *uuid.UUID) error {
	ok, err := s.escrowRepo.WithTx(tx).MarkRefunded(ctx, escrow.ID, escrow.Status, by)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if !ok {
		return ErrEscrowNotPending
	}
	balances := s.balanceRepo.WithTx(tx)
	if _, err := balances.Lock(ctx, escrow.SenderID, escrow.Currency); err != nil {
		return fmt.Errorf("lock sender balance: %w", err)
	}
	if err := balances.Credit(ctx, escrow.SenderID, escrow.Currency, escrow.Amount); err != nil {
		return fmt.Errorf("credit sender: %w", err)
	}
	if escrow.GiftID != nil {
		if err := s.giftRepo.WithTx(tx).UpdateStatus(ctx, *escrow.GiftID, models.GiftStatusRefunded); err != nil {
			return fmt.Errorf("update gift: %w", err)
		}
	}
	return nil
}

// GetEscrow enforces party-or-admin visibility.
func (s *EscrowService) GetEscrow(ctx context.Context, escrowID, requesterID uuid.UUID, isAdmin bool) (*models.EscrowTransaction, error) {
	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !escrow.IsParty(requesterID) {
		return nil, ErrNotParty
	}
	return escrow, nil
}

func (s *EscrowService) ListEscrows(ctx context.Context, f repositories.EscrowFilter) ([]models.EscrowTransaction, error) {
	return s.escrowRepo.List(ctx, f)
}

// GetEscrowEvents returns the audit trail for one escrow, party-or-admin only.
func (s *EscrowService) GetEscrowEvents(ctx context.Context, escrowID, requesterID uuid.UUID, isAdmin bool, limit, offset int) ([]models.AuditLog, error) {
	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !escrow.IsParty(requesterID) {
		return nil, ErrNotParty
	}
	return s.auditRepo.GetByEntity(ctx, "escrow", escrowID, limit, offset)
}

func (s *EscrowService) GetGift(ctx context.Context, giftID uuid.UUID) (*models.Gift, error) {
	return s.giftRepo.GetByID(ctx, giftID)
}

func (s *EscrowService) ListGifts(ctx context.Context, f repositories.GiftFilter) ([]models.Gift, error) {
	return s.giftRepo.List(ctx, f)
}

func (s *EscrowService) GetUserBalances(ctx context.Context, userID uuid.UUID) ([]models.UserBalance, error) {
	return s.balanceRepo.GetAll(ctx, userID)
}

func (s *EscrowService) auditTx(ctx context.Context, tx pgx.Tx, actorID *uuid.UUID, actorType, action, entityType string, entityID uuid.UUID, meta any) {
	err := repositories.NewAuditRepo(tx).Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      action,
		EntityType:  entityType,
		EntityID:    &entityID,
		Meta:        meta,
	})
	if err != nil {
		s.log.Error("audit log write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
}

func (s *EscrowService) publish(eventType string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.StreamSettlement, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Error("event publish failed", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *EscrowService) publishReleased(escrow *models.EscrowTransaction, reason string) {
	s.publish(events.EventEscrowReleased, map[string]any{
		"escrow_id":    escrow.ID.String(),
		"recipient_id": escrow.RecipientID.String(),
		"amount":       escrow.Amount.String(),
		"currency":     escrow.Currency,
		"reason":       reason,
	})
}

func (s *EscrowService) publishRefunded(escrow *models.EscrowTransaction) {
	s.publish(events.EventEscrowRefunded, map[string]any{
		"escrow_id": escrow.ID.String(),
		"sender_id": escrow.SenderID.String(),
		"amount":    escrow.Amount.String(),
		"currency":  escrow.Currency,
	})
}

func ledgerFromQuote(giftID uuid.UUID, escrow *models.EscrowTransaction, q *SettlementQuote) *models.CommissionLedgerEntry {
	entry := &models.CommissionLedgerEntry{
		GiftID:             giftID,
		BaseAmount:         q.BaseAmount,
		Currency:           q.Currency,
		TotalCommission:    q.TotalCommission,
		GiverCommission:    q.GiverCommission,
		ReceiverCommission: q.ReceiverCommission,
		GiverPays:          q.GiverPays,
		ReceiverGets:       q.ReceiverGets,
		GiverPaysTRY:       q.GiverPaysTRY,
		ReceiverGetsTRY:    q.ReceiverGetsTRY,
		RateToTRY:          q.RateToTRY,
		BufferPercent:      q.BufferPercent,
		TierName:           q.TierName,
	}
	if escrow != nil {
		entry.EscrowID = &escrow.ID
	}
	return entry
}
