package repositories

import (
	"context"
	"time"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const giftColumns = `
	id, giver_id, receiver_id, moment_id, category, amount, currency, status,
	requires_proof, idempotency_key, created_at, updated_at`

type GiftRepo struct {
	db DB
}

func NewGiftRepo(db DB) *GiftRepo {
	return &GiftRepo{db: db}
}

func (r *GiftRepo) WithTx(tx pgx.Tx) *GiftRepo {
	return &GiftRepo{db: tx}
}

func scanGift(row pgx.Row) (*models.Gift, error) {
	var g models.Gift
	err := row.Scan(
		&g.ID, &g.GiverID, &g.ReceiverID, &g.MomentID, &g.Category, &g.Amount, &g.Currency, &g.Status,
		&g.RequiresProof, &g.IdempotencyKey, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GiftRepo) Create(ctx context.Context, g *models.Gift) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO gifts (giver_id, receiver_id, moment_id, category, amount, currency, status, requires_proof, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, g.GiverID, g.ReceiverID, g.MomentID, g.Category, g.Amount, g.Currency, g.Status, g.RequiresProof, g.IdempotencyKey,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

// GetByIdempotencyKey is the replay lookup. The key lives on the gift, not
// the escrow, so direct-settled gifts without an escrow row replay too.
func (r *GiftRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Gift, error) {
	return scanGift(r.db.QueryRow(ctx, `SELECT`+giftColumns+` FROM gifts WHERE idempotency_key = $1`, key))
}

func (r *GiftRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Gift, error) {
	return scanGift(r.db.QueryRow(ctx, `SELECT`+giftColumns+` FROM gifts WHERE id = $1`, id))
}

func (r *GiftRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE gifts SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

type GiftFilter struct {
	GiverID    *uuid.UUID
	ReceiverID *uuid.UUID
	Status     *string
	Limit      int
	Offset     int
}

func (r *GiftRepo) List(ctx context.Context, f GiftFilter) ([]models.Gift, error) {
	query := `SELECT` + giftColumns + ` FROM gifts WHERE 1=1`
	args := []any{}
	if f.GiverID != nil {
		args = append(args, *f.GiverID)
		query += ` AND giver_id = $` + itoa(len(args))
	}
	if f.ReceiverID != nil {
		args = append(args, *f.ReceiverID)
		query += ` AND receiver_id = $` + itoa(len(args))
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

	var gifts []models.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		gifts = append(gifts, *g)
	}
	return gifts, rows.Err()
}

// SumCompletedSince returns the rolling sum of a giver's completed and
// still-pending gifts in one category/currency since a point in time. Pending
// gifts count: funds already left the balance.
func (r *GiftRepo) SumCompletedSince(ctx context.Context, giverID uuid.UUID, category, currency string, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM gifts
		WHERE giver_id = $1 AND category = $2 AND currency = $3
		  AND status IN ('pending', 'completed')
		  AND created_at >= $4
	`, giverID, category, currency, since).Scan(&sum)
	return sum, err
}

// GetMomentStatus reads the moment read-model maintained by the hosting
// collaborator.
func (r *GiftRepo) GetMomentStatus(ctx context.Context, momentID uuid.UUID) (string, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM moments WHERE id = $1`, momentID).Scan(&status)
	return status, err
}
