package repositories

import (
	"context"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CommissionRepo struct {
	db DB
}

func NewCommissionRepo(db DB) *CommissionRepo {
	return &CommissionRepo{db: db}
}

func (r *CommissionRepo) WithTx(tx pgx.Tx) *CommissionRepo {
	return &CommissionRepo{db: tx}
}

// GetTierForUSD picks the first tier whose [min, max) bracket contains the
// USD amount, by ascending min. pgx.ErrNoRows when no bracket matches.
func (r *CommissionRepo) GetTierForUSD(ctx context.Context, usdAmount decimal.Decimal) (*models.CommissionTier, error) {
	var t models.CommissionTier
	err := r.db.QueryRow(ctx, `
		SELECT id, name, min_amount_usd, max_amount_usd, total_rate, giver_share, created_at
		FROM commission_tiers
		WHERE min_amount_usd <= $1 AND (max_amount_usd IS NULL OR max_amount_usd > $1)
		ORDER BY min_amount_usd ASC
		LIMIT 1
	`, usdAmount).Scan(&t.ID, &t.Name, &t.MinAmountUSD, &t.MaxAmountUSD, &t.TotalRate, &t.GiverShare, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetEscrowThresholdForUSD resolves the escrow policy bracket the same way.
func (r *CommissionRepo) GetEscrowThresholdForUSD(ctx context.Context, usdAmount decimal.Decimal) (*models.EscrowThreshold, error) {
	var t models.EscrowThreshold
	err := r.db.QueryRow(ctx, `
		SELECT id, min_amount_usd, max_amount_usd, escrow_policy, max_contributors
		FROM escrow_thresholds
		WHERE min_amount_usd <= $1 AND (max_amount_usd IS NULL OR max_amount_usd > $1)
		ORDER BY min_amount_usd ASC
		LIMIT 1
	`, usdAmount).Scan(&t.ID, &t.MinAmountUSD, &t.MaxAmountUSD, &t.EscrowPolicy, &t.MaxContributors)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetUserSettings returns nil (not an error) when the receiver has no
// override row.
func (r *CommissionRepo) GetUserSettings(ctx context.Context, userID uuid.UUID) (*models.UserCommissionSettings, error) {
	var s models.UserCommissionSettings
	err := r.db.QueryRow(ctx, `
		SELECT user_id, account_type, custom_rate, updated_at
		FROM user_commission_settings WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.AccountType, &s.CustomRate, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CommissionRepo) CreateLedgerEntry(ctx context.Context, e *models.CommissionLedgerEntry) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO commission_ledger (
			gift_id, escrow_id, base_amount, currency,
			total_commission, giver_commission, receiver_commission,
			giver_pays, receiver_gets, giver_pays_try, receiver_gets_try,
			rate_to_try, buffer_percent, tier_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`, e.GiftID, e.EscrowID, e.BaseAmount, e.Currency,
		e.TotalCommission, e.GiverCommission, e.ReceiverCommission,
		e.GiverPays, e.ReceiverGets, e.GiverPaysTRY, e.ReceiverGetsTRY,
		e.RateToTRY, e.BufferPercent, e.TierName,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *CommissionRepo) GetLedgerByGift(ctx context.Context, giftID uuid.UUID) (*models.CommissionLedgerEntry, error) {
	var e models.CommissionLedgerEntry
	err := r.db.QueryRow(ctx, `
		SELECT id, gift_id, escrow_id, base_amount, currency,
		       total_commission, giver_commission, receiver_commission,
		       giver_pays, receiver_gets, giver_pays_try, receiver_gets_try,
		       rate_to_try, buffer_percent, tier_name, created_at
		FROM commission_ledger WHERE gift_id = $1
	`, giftID).Scan(&e.ID, &e.GiftID, &e.EscrowID, &e.BaseAmount, &e.Currency,
		&e.TotalCommission, &e.GiverCommission, &e.ReceiverCommission,
		&e.GiverPays, &e.ReceiverGets, &e.GiverPaysTRY, &e.ReceiverGetsTRY,
		&e.RateToTRY, &e.BufferPercent, &e.TierName, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
