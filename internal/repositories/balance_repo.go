package repositories

import (
	"context"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo owns the credit/debit primitives. Within a settlement
// transaction, Lock must be called before mutating so concurrent release and
// refund of the same escrow serialize on the balance rows.
type BalanceRepo struct {
	db DB
}

func NewBalanceRepo(db DB) *BalanceRepo {
	return &BalanceRepo{db: db}
}

func (r *BalanceRepo) WithTx(tx pgx.Tx) *BalanceRepo {
	return &BalanceRepo{db: tx}
}

func (r *BalanceRepo) Get(ctx context.Context, userID uuid.UUID, currency string) (*models.UserBalance, error) {
	b := models.UserBalance{UserID: userID, Currency: currency, Amount: decimal.Zero}
	err := r.db.QueryRow(ctx, `
		SELECT amount, updated_at FROM user_balances
		WHERE user_id = $1 AND currency = $2
	`, userID, currency).Scan(&b.Amount, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return &b, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) GetAll(ctx context.Context, userID uuid.UUID) ([]models.UserBalance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, currency, amount, updated_at FROM user_balances
		WHERE user_id = $1 ORDER BY currency
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserBalance
	for rows.Next() {
		var b models.UserBalance
		if err := rows.Scan(&b.UserID, &b.Currency, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Lock ensures the balance row exists and takes a row-level lock on it.
// Must run inside a transaction.
func (r *BalanceRepo) Lock(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_balances (user_id, currency, amount)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, currency) DO NOTHING
	`, userID, currency)
	if err != nil {
		return decimal.Zero, err
	}

	var amount decimal.Decimal
	err = r.db.QueryRow(ctx, `
		SELECT amount FROM user_balances
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, userID, currency).Scan(&amount)
	return amount, err
}

func (r *BalanceRepo) Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_balances (user_id, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO UPDATE SET
			amount = user_balances.amount + EXCLUDED.amount,
			updated_at = now()
	`, userID, currency, amount)
	return err
}

// Debit subtracts amount, guarded against going negative. Returns false when
// the balance was insufficient; no row is changed in that case.
func (r *BalanceRepo) Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_balances
		SET amount = amount - $3, updated_at = now()
		WHERE user_id = $1 AND currency = $2 AND amount >= $3
	`, userID, currency, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
