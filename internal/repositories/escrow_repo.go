package repositories

import (
	"context"
	"time"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const escrowColumns = `
	id, gift_id, sender_id, recipient_id, amount, currency, status, release_condition,
	proof_submitted, proof_url, proof_title, proof_verified_at, expires_at,
	released_at, refunded_at, released_by, refunded_by, release_reason,
	dispute_id, idempotency_key, created_at, updated_at`

type EscrowRepo struct {
	db DB
}

func NewEscrowRepo(db DB) *EscrowRepo {
	return &EscrowRepo{db: db}
}

// WithTx rebinds the repo onto an open transaction.
func (r *EscrowRepo) WithTx(tx pgx.Tx) *EscrowRepo {
	return &EscrowRepo{db: tx}
}

func scanEscrow(row pgx.Row) (*models.EscrowTransaction, error) {
	var e models.EscrowTransaction
	err := row.Scan(
		&e.ID, &e.GiftID, &e.SenderID, &e.RecipientID, &e.Amount, &e.Currency, &e.Status, &e.ReleaseCondition,
		&e.ProofSubmitted, &e.ProofURL, &e.ProofTitle, &e.ProofVerifiedAt, &e.ExpiresAt,
		&e.ReleasedAt, &e.RefundedAt, &e.ReleasedBy, &e.RefundedBy, &e.ReleaseReason,
		&e.DisputeID, &e.IdempotencyKey, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) Create(ctx context.Context, e *models.EscrowTransaction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO escrow_transactions (
			gift_id, sender_id, recipient_id, amount, currency, status,
			release_condition, expires_at, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.GiftID, e.SenderID, e.RecipientID, e.Amount, e.Currency, e.Status,
		e.ReleaseCondition, e.ExpiresAt, e.IdempotencyKey,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	return scanEscrow(r.db.QueryRow(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the escrow row for the duration of the enclosing
// transaction. Every state transition re-reads through this.
func (r *EscrowRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	return scanEscrow(r.db.QueryRow(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE id = $1 FOR UPDATE`, id))
}

func (r *EscrowRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.EscrowTransaction, error) {
	return scanEscrow(r.db.QueryRow(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE idempotency_key = $1`, key))
}

func (r *EscrowRepo) GetByGiftID(ctx context.Context, giftID uuid.UUID) (*models.EscrowTransaction, error) {
	return scanEscrow(r.db.QueryRow(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE gift_id = $1`, giftID))
}

// MarkReleased performs the guarded terminal write. Returns true if the row
// actually transitioned (guard matched fromStatus).
func (r *EscrowRepo) MarkReleased(ctx context.Context, id uuid.UUID, fromStatus string, by *uuid.UUID, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET status = 'released', released_at = now(), released_by = $1, release_reason = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, by, reason, id, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscrowRepo) MarkRefunded(ctx context.Context, id uuid.UUID, fromStatus string, by *uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET status = 'refunded', refunded_at = now(), refunded_by = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, by, id, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscrowRepo) MarkDisputed(ctx context.Context, id, disputeID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET status = 'disputed', dispute_id = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'
	`, disputeID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReturnToPending is the cancelled-dispute path. The dispute link is kept for
// the audit trail; only the custody status reverts.
func (r *EscrowRepo) ReturnToPending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET status = 'pending', updated_at = now()
		WHERE id = $1 AND status = 'disputed'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscrowRepo) SetProofSubmitted(ctx context.Context, id uuid.UUID, proofURL, proofTitle string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET proof_submitted = true, proof_url = $1, proof_title = $2, updated_at = now()
		WHERE id = $3
	`, proofURL, proofTitle, id)
	return err
}

func (r *EscrowRepo) SetProofVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE escrow_transactions
		SET proof_verified_at = $1, updated_at = now()
		WHERE id = $2
	`, at, id)
	return err
}

// ListAutoReleasable returns ids of pending escrows that are due to pay out:
// a verified proof aged past the release delay, or a timer-release escrow
// past its deadline. Candidates only: the sweep re-validates each row under
// FOR UPDATE before transitioning.
func (r *EscrowRepo) ListAutoReleasable(ctx context.Context, delay time.Duration, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM escrow_transactions
		WHERE status = 'pending'
		  AND (
		    (release_condition = 'timer_expiry' AND expires_at < now())
		    OR (proof_submitted = true
		        AND proof_verified_at IS NOT NULL
		        AND proof_verified_at < now() - ($1 || ' seconds')::interval)
		  )
		ORDER BY COALESCE(proof_verified_at, expires_at) ASC
		LIMIT $2
	`, int(delay.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListAutoRefundable returns ids of pending proof-gated escrows past expiry
// with no proof. Timer-release escrows are excluded; expiry releases them.
func (r *EscrowRepo) ListAutoRefundable(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM escrow_transactions
		WHERE status = 'pending'
		  AND release_condition <> 'timer_expiry'
		  AND proof_submitted = false
		  AND expires_at < now()
		ORDER BY expires_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

type EscrowFilter struct {
	SenderID    *uuid.UUID
	RecipientID *uuid.UUID
	Status      *string
	Limit       int
	Offset      int
}

func (r *EscrowRepo) List(ctx context.Context, f EscrowFilter) ([]models.EscrowTransaction, error) {
	query := `SELECT` + escrowColumns + ` FROM escrow_transactions WHERE 1=1`
	args := []any{}
	if f.SenderID != nil {
		args = append(args, *f.SenderID)
		query += ` AND sender_id = $` + itoa(len(args))
	}
	if f.RecipientID != nil {
		args = append(args, *f.RecipientID)
		query += ` AND recipient_id = $` + itoa(len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args))
	args = append(args, f.Offset)
	query += ` OFFSET $` + itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EscrowTransaction
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
