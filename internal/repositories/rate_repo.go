package repositories

import (
	"context"
	"time"

	"github.com/giftmoments/backend/internal/models"
	"github.com/shopspring/decimal"
)

// RateRepo reads the exchange-rate snapshots written by the external rate
// feed. This core never computes rates.
type RateRepo struct {
	db DB
}

func NewRateRepo(db DB) *RateRepo {
	return &RateRepo{db: db}
}

func (r *RateRepo) GetRate(ctx context.Context, from, to string) (*models.ExchangeRate, error) {
	if from == to {
		return &models.ExchangeRate{
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         decimal.NewFromInt(1),
			FetchedAt:    time.Now(),
		}, nil
	}

	var rate models.ExchangeRate
	err := r.db.QueryRow(ctx, `
		SELECT from_currency, to_currency, rate, fetched_at, stale
		FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2
	`, from, to).Scan(&rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rate.FetchedAt, &rate.Stale)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *RateRepo) Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, fetched_at, stale)
		VALUES ($1, $2, $3, now(), false)
		ON CONFLICT (from_currency, to_currency) DO UPDATE SET
			rate = EXCLUDED.rate,
			fetched_at = now(),
			stale = false
	`, from, to, rate)
	return err
}

// MarkStaleOlderThan flags rates past maxAge; returns the number flagged.
func (r *RateRepo) MarkStaleOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE exchange_rates SET stale = true
		WHERE stale = false AND fetched_at < now() - ($1 || ' seconds')::interval
	`, int(maxAge.Seconds()))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
