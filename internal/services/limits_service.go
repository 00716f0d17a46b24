package services

import (
	"context"
	"fmt"
	"time"

	"github.com/giftmoments/backend/internal/models"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Machine-readable block reasons returned in LimitDecision.
const (
	BlockPerTransaction = "per_transaction_limit_exceeded"
	BlockDailyLimit     = "daily_limit_exceeded"
	BlockMonthlyLimit   = "monthly_limit_exceeded"
	BlockKYCRequired    = "kyc_required"
)

// LimitDecision is the typed outcome of a limit check. A blocked decision
// carries exactly one reason; warnings can accompany an allowed decision.
type LimitDecision struct {
	Allowed     bool     `json:"allowed"`
	BlockReason string   `json:"block_reason,omitempty"`
	KYCRequired bool     `json:"kyc_required"`
	Warnings    []string `json:"warnings,omitempty"`

	UserType     string          `json:"user_type"`
	DailyUsed    decimal.Decimal `json:"daily_used"`
	MonthlyUsed  decimal.Decimal `json:"monthly_used"`
}

type LimitsService struct {
	limitsRepo *repositories.LimitsRepo
	giftRepo   *repositories.GiftRepo
	userRepo   *repositories.UserRepo
	log        *zap.Logger
}

func NewLimitsService(
	limitsRepo *repositories.LimitsRepo,
	giftRepo *repositories.GiftRepo,
	userRepo *repositories.UserRepo,
	log *zap.Logger,
) *LimitsService {
	return &LimitsService{
		limitsRepo: limitsRepo,
		giftRepo:   giftRepo,
		userRepo:   userRepo,
		log:        log,
	}
}

// CheckLimits resolves the giver's type, loads the applicable limit row and
// rolling usage, and evaluates the attempt. It never mutates state; the open
// path calls it before taking any locks.
func (s *LimitsService) CheckLimits(
	ctx context.Context,
	giverID uuid.UUID,
	category, currency string,
	amount decimal.Decimal,
) (*LimitDecision, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := s.userRepo.GetByID(ctx, giverID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := time.Now()
	userType := models.DeriveUserType(user.KYCStatus, user.CreatedAt, now)

	limit, err := s.limitsRepo.GetLimit(ctx, user.Plan, userType, category, currency)
	if err != nil {
		return nil, fmt.Errorf("load limit: %w", err)
	}

	dailyUsed, err := s.giftRepo.SumCompletedSince(ctx, giverID, category, currency, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("sum daily usage: %w", err)
	}
	monthlyUsed, err := s.giftRepo.SumCompletedSince(ctx, giverID, category, currency, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("sum monthly usage: %w", err)
	}

	threshold, err := s.limitsRepo.GetKYCThreshold(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("load kyc threshold: %w", err)
	}

	decision := evaluateLimits(limitCheck{
		Amount:      amount,
		Limit:       limit,
		Threshold:   threshold,
		DailyUsed:   dailyUsed,
		MonthlyUsed: monthlyUsed,
		KYCApproved: user.KYCStatus == models.KYCStatusApproved,
	})
	decision.UserType = userType

	if !decision.Allowed {
		s.log.Info("gift blocked by limits",
			zap.String("giver_id", giverID.String()),
			zap.String("reason", decision.BlockReason),
			zap.String("user_type", userType),
			zap.String("amount", amount.StringFixed(2)))
	}
	return decision, nil
}

type limitCheck struct {
	Amount      decimal.Decimal
	Limit       *models.TransactionLimit // nil when no limit row is configured
	Threshold   *models.KYCThreshold     // nil when no threshold row is configured
	DailyUsed   decimal.Decimal
	MonthlyUsed decimal.Decimal
	KYCApproved bool
}

// evaluateLimits applies the limit rows to one attempted amount. Missing
// rows or nil caps mean "no cap at that window". The KYC hard threshold
// blocks unverified users; the soft threshold only warns.
func evaluateLimits(c limitCheck) *LimitDecision {
	d := &LimitDecision{
		Allowed:     true,
		DailyUsed:   c.DailyUsed,
		MonthlyUsed: c.MonthlyUsed,
	}

	if c.Limit != nil {
		if c.Limit.PerTransactionMax != nil && c.Amount.GreaterThan(*c.Limit.PerTransactionMax) {
			d.Allowed = false
			d.BlockReason = BlockPerTransaction
			return d
		}
		if c.Limit.DailyMax != nil && c.DailyUsed.Add(c.Amount).GreaterThan(*c.Limit.DailyMax) {
			d.Allowed = false
			d.BlockReason = BlockDailyLimit
			return d
		}
		if c.Limit.MonthlyMax != nil && c.MonthlyUsed.Add(c.Amount).GreaterThan(*c.Limit.MonthlyMax) {
			d.Allowed = false
			d.BlockReason = BlockMonthlyLimit
			return d
		}
	}

	if c.Threshold != nil && !c.KYCApproved {
		if c.Amount.GreaterThanOrEqual(c.Threshold.HardAmount) {
			d.Allowed = false
			d.BlockReason = BlockKYCRequired
			d.KYCRequired = true
			return d
		}
		if c.Amount.GreaterThanOrEqual(c.Threshold.SoftAmount) {
			d.KYCRequired = true
			d.Warnings = append(d.Warnings,
				"amount is above the verification threshold, completing KYC is recommended")
		}
	}

	return d
}
