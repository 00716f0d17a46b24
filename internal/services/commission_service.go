package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/models"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementQuote is the full pricing breakdown for one prospective gift.
// Base-currency figures plus the TRY leg (the only leg carrying the
// inflation buffer) plus an optional unbuffered display conversion.
type SettlementQuote struct {
	BaseAmount decimal.Decimal `json:"base_amount"`
	Currency   string          `json:"currency"`

	TotalCommission    decimal.Decimal `json:"total_commission"`
	GiverCommission    decimal.Decimal `json:"giver_commission"`
	ReceiverCommission decimal.Decimal `json:"receiver_commission"`
	GiverPays          decimal.Decimal `json:"giver_pays"`
	ReceiverGets       decimal.Decimal `json:"receiver_gets"`

	GiverPaysTRY    decimal.Decimal `json:"giver_pays_try"`
	ReceiverGetsTRY decimal.Decimal `json:"receiver_gets_try"`
	RateToTRY       decimal.Decimal `json:"rate_to_try"`
	BufferPercent   decimal.Decimal `json:"buffer_percent"`

	DisplayCurrency     string          `json:"display_currency,omitempty"`
	GiverPaysDisplay    decimal.Decimal `json:"giver_pays_display"`
	ReceiverGetsDisplay decimal.Decimal `json:"receiver_gets_display"`

	TierName        string `json:"tier_name"`
	EscrowPolicy    string `json:"escrow_policy"`
	MaxContributors int    `json:"max_contributors"`
}

// CommissionService is a pure function over its inputs plus the read-only
// configuration tables. It never mutates persisted state.
type CommissionService struct {
	commissionRepo *repositories.CommissionRepo
	rateRepo       *repositories.RateRepo
	cfg            *config.Config
	log            *zap.Logger
}

func NewCommissionService(
	commissionRepo *repositories.CommissionRepo,
	rateRepo *repositories.RateRepo,
	cfg *config.Config,
	log *zap.Logger,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		rateRepo:       rateRepo,
		cfg:            cfg,
		log:            log,
	}
}

func (s *CommissionService) CalculateSettlement(
	ctx context.Context,
	baseAmount decimal.Decimal,
	momentCurrency string,
	displayCurrency string,
	receiverID uuid.UUID,
) (*SettlementQuote, error) {
	if !baseAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Tier selection happens in USD regardless of the moment's currency.
	usdRate, err := s.freshRate(ctx, momentCurrency, "USD")
	if err != nil {
		return nil, err
	}
	usdAmount := baseAmount.Mul(usdRate.Rate)

	tier, err := s.commissionRepo.GetTierForUSD(ctx, usdAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		// Defined default, not an error.
		s.log.Warn("no commission tier matched, using default",
			zap.String("usd_amount", usdAmount.StringFixed(2)))
		tier = &models.CommissionTier{
			Name:       "default",
			TotalRate:  s.cfg.DefaultCommissionRate,
			GiverShare: s.cfg.DefaultGiverShare,
		}
	} else if err != nil {
		return nil, fmt.Errorf("load commission tier: %w", err)
	}

	settings, err := s.commissionRepo.GetUserSettings(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("load user commission settings: %w", err)
	}

	// The buffer exists only on the giver's TRY leg. A TRY-denominated
	// moment has rate 1 and buffer 0 by definition.
	rateToTRY := decimal.NewFromInt(1)
	buffer := decimal.Zero
	if momentCurrency != "TRY" {
		tryRate, err := s.freshRate(ctx, momentCurrency, "TRY")
		if err != nil {
			return nil, err
		}
		rateToTRY = tryRate.Rate
		buffer = s.cfg.InflationBufferPercent
	}

	quote := computeQuote(quoteInput{
		BaseAmount: baseAmount,
		TotalRate:  tier.TotalRate,
		GiverShare: tier.GiverShare,
		Settings:   settings,
		RateToTRY:  rateToTRY,
		Buffer:     buffer,
	})
	quote.Currency = momentCurrency
	quote.TierName = tier.Name

	threshold, err := s.commissionRepo.GetEscrowThresholdForUSD(ctx, usdAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		quote.EscrowPolicy = models.EscrowPolicyRequired
		quote.MaxContributors = 1
	} else if err != nil {
		return nil, fmt.Errorf("load escrow threshold: %w", err)
	} else {
		quote.EscrowPolicy = threshold.EscrowPolicy
		quote.MaxContributors = threshold.MaxContributors
	}

	// Any non-TRY display conversion is unbuffered.
	switch {
	case displayCurrency == "" || displayCurrency == momentCurrency:
		quote.DisplayCurrency = momentCurrency
		quote.GiverPaysDisplay = quote.GiverPays
		quote.ReceiverGetsDisplay = quote.ReceiverGets
	case displayCurrency == "TRY":
		quote.DisplayCurrency = "TRY"
		quote.GiverPaysDisplay = quote.GiverPaysTRY
		quote.ReceiverGetsDisplay = quote.ReceiverGetsTRY
	default:
		displayRate, err := s.freshRate(ctx, momentCurrency, displayCurrency)
		if err != nil {
			return nil, err
		}
		quote.DisplayCurrency = displayCurrency
		quote.GiverPaysDisplay = quote.GiverPays.Mul(displayRate.Rate).Round(2)
		quote.ReceiverGetsDisplay = quote.ReceiverGets.Mul(displayRate.Rate).Round(2)
	}

	return quote, nil
}

func (s *CommissionService) freshRate(ctx context.Context, from, to string) (*models.ExchangeRate, error) {
	rate, err := s.rateRepo.GetRate(ctx, from, to)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownCurrency, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("load rate %s/%s: %w", from, to, err)
	}
	if rate.IsStale(time.Now(), s.cfg.RateMaxAge) {
		return nil, fmt.Errorf("%w: %s/%s fetched at %s", ErrRateStale, from, to, rate.FetchedAt.Format(time.RFC3339))
	}
	return rate, nil
}

type quoteInput struct {
	BaseAmount decimal.Decimal
	TotalRate  decimal.Decimal
	GiverShare decimal.Decimal
	Settings   *models.UserCommissionSettings // nil when the receiver has no override
	RateToTRY  decimal.Decimal
	Buffer     decimal.Decimal
}

// computeQuote applies the override ladder and rounding rules. Overrides
// compose in order: VIP/influencer shifts the whole commission to the giver,
// a custom rate replaces the tier rate, exempt zeroes everything and wins
// over custom.
func computeQuote(in quoteInput) *SettlementQuote {
	totalRate := in.TotalRate
	giverShare := in.GiverShare

	if in.Settings != nil {
		switch in.Settings.AccountType {
		case models.AccountTypeVIP, models.AccountTypeInfluencer:
			giverShare = decimal.NewFromInt(1)
		}
		if in.Settings.CustomRate != nil {
			totalRate = *in.Settings.CustomRate
		}
		if in.Settings.AccountType == models.AccountTypeExempt {
			totalRate = decimal.Zero
		}
	}

	totalCommission := in.BaseAmount.Mul(totalRate).Round(2)
	giverCommission := totalCommission.Mul(giverShare).Round(2)
	// Remainder goes to the receiver so the two sides always sum exactly.
	receiverCommission := totalCommission.Sub(giverCommission)

	giverPays := in.BaseAmount.Add(giverCommission)
	receiverGets := in.BaseAmount.Sub(receiverCommission)

	one := decimal.NewFromInt(1)
	return &SettlementQuote{
		BaseAmount:         in.BaseAmount,
		TotalCommission:    totalCommission,
		GiverCommission:    giverCommission,
		ReceiverCommission: receiverCommission,
		GiverPays:          giverPays,
		ReceiverGets:       receiverGets,
		GiverPaysTRY:       giverPays.Mul(in.RateToTRY).Mul(one.Add(in.Buffer)).Round(2),
		ReceiverGetsTRY:    receiverGets.Mul(in.RateToTRY).Round(2),
		RateToTRY:          in.RateToTRY,
		BufferPercent:      in.Buffer,
	}
}
