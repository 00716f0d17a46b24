package repositories

import (
	"context"

	"github.com/giftmoments/backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type LimitsRepo struct {
	db DB
}

func NewLimitsRepo(db DB) *LimitsRepo {
	return &LimitsRepo{db: db}
}

// GetLimit returns the limit row for (plan, userType, category, currency),
// or nil when no limit is configured for that combination.
func (r *LimitsRepo) GetLimit(ctx context.Context, plan, userType, category, currency string) (*models.TransactionLimit, error) {
	var l models.TransactionLimit
	err := r.db.QueryRow(ctx, `
		SELECT id, plan, user_type, category, currency, per_transaction_max, daily_max, monthly_max
		FROM transaction_limits
		WHERE plan = $1 AND user_type = $2 AND category IN ($3, '*') AND currency = $4
		ORDER BY (category = '*') ASC
		LIMIT 1
	`, plan, userType, category, currency).Scan(
		&l.ID, &l.Plan, &l.UserType, &l.Category, &l.Currency,
		&l.PerTransactionMax, &l.DailyMax, &l.MonthlyMax,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetKYCThreshold returns the global thresholds for a currency, or nil when
// none is configured.
func (r *LimitsRepo) GetKYCThreshold(ctx context.Context, currency string) (*models.KYCThreshold, error) {
	var t models.KYCThreshold
	err := r.db.QueryRow(ctx, `
		SELECT id, currency, soft_amount, hard_amount
		FROM kyc_thresholds WHERE currency = $1
	`, currency).Scan(&t.ID, &t.Currency, &t.SoftAmount, &t.HardAmount)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
