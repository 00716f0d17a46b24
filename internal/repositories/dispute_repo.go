package repositories

import (
	"context"
	"time"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const disputeColumns = `
	id, escrow_id, opener_id, reason, description, evidence, status,
	response_text, response_evidence, responded_at, response_deadline, review_deadline,
	escalated, resolution_type, refund_amount, resolved_by, resolved_at, created_at, updated_at`

type DisputeRepo struct {
	db DB
}

func NewDisputeRepo(db DB) *DisputeRepo {
	return &DisputeRepo{db: db}
}

func (r *DisputeRepo) WithTx(tx pgx.Tx) *DisputeRepo {
	return &DisputeRepo{db: tx}
}

func scanDispute(row pgx.Row) (*models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(
		&d.ID, &d.EscrowID, &d.OpenerID, &d.Reason, &d.Description, &d.Evidence, &d.Status,
		&d.ResponseText, &d.ResponseEvidence, &d.RespondedAt, &d.ResponseDeadline, &d.ReviewDeadline,
		&d.Escalated, &d.ResolutionType, &d.RefundAmount, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO disputes (escrow_id, opener_id, reason, description, evidence, status, response_deadline, review_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, d.EscrowID, d.OpenerID, d.Reason, d.Description, d.Evidence, d.Status, d.ResponseDeadline, d.ReviewDeadline,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(r.db.QueryRow(ctx, `SELECT`+disputeColumns+` FROM disputes WHERE id = $1`, id))
}

func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(r.db.QueryRow(ctx, `SELECT`+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
}

// GetActiveByEscrow returns the single active dispute for an escrow, or
// pgx.ErrNoRows.
func (r *DisputeRepo) GetActiveByEscrow(ctx context.Context, escrowID uuid.UUID) (*models.Dispute, error) {
	return scanDispute(r.db.QueryRow(ctx, `
		SELECT`+disputeColumns+` FROM disputes
		WHERE escrow_id = $1 AND status IN ('pending', 'awaiting_response', 'under_review')
		LIMIT 1
	`, escrowID))
}

// UpdateStatus performs a guarded status write; true when the guard matched.
func (r *DisputeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE disputes SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, toStatus, id, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DisputeRepo) SetResponse(ctx context.Context, id uuid.UUID, text string, evidence *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE disputes
		SET response_text = $1, response_evidence = $2, responded_at = now(), updated_at = now()
		WHERE id = $3
	`, text, evidence, id)
	return err
}

func (r *DisputeRepo) SetResolution(ctx context.Context, id uuid.UUID, resolutionType string, refundAmount *decimal.Decimal, resolvedBy *uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE disputes
		SET resolution_type = $1, refund_amount = $2, resolved_by = $3, resolved_at = now(), updated_at = now()
		WHERE id = $4
	`, resolutionType, refundAmount, resolvedBy, id)
	return err
}

func (r *DisputeRepo) MarkEscalated(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE disputes SET escalated = true, updated_at = now()
		WHERE id = $1 AND escalated = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListEscalatable returns unescalated active disputes past their relevant
// deadline: awaiting_response past response_deadline, under_review past
// review_deadline.
func (r *DisputeRepo) ListEscalatable(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+disputeColumns+` FROM disputes
		WHERE escalated = false
		  AND (
			(status = 'awaiting_response' AND response_deadline < $1)
			OR (status = 'under_review' AND review_deadline < $1)
		  )
		ORDER BY created_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
