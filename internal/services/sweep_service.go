package services

import (
	"context"
	"fmt"
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/repositories"
	"go.uber.org/zap"
)

// SweepReport summarizes one sweep run. Errors holds per-item failures; one
// bad escrow never stops the rest of the batch.
type SweepReport struct {
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Released   int       `json:"released"`
	Refunded   int       `json:"refunded"`
	Escalated  int       `json:"escalated"`
	StaleRates int64     `json:"stale_rates"`
	Errors     []string  `json:"errors,omitempty"`
}

// SweepService runs the periodic settlement passes: auto-release of verified
// escrows, auto-refund of expired ones, dispute escalation, and rate
// staleness flagging. Each escrow moves in its own transaction; the candidate
// lists are hints that get re-validated under lock.
type SweepService struct {
	escrowRepo *repositories.EscrowRepo
	rateRepo   *repositories.RateRepo
	escrows    *EscrowService
	disputes   *DisputeService
	cfg        *config.Config
	log        *zap.Logger
}

func NewSweepService(
	escrowRepo *repositories.EscrowRepo,
	rateRepo *repositories.RateRepo,
	escrows *EscrowService,
	disputes *DisputeService,
	cfg *config.Config,
	log *zap.Logger,
) *SweepService {
	return &SweepService{
		escrowRepo: escrowRepo,
		rateRepo:   rateRepo,
		escrows:    escrows,
		disputes:   disputes,
		cfg:        cfg,
		log:        log,
	}
}

// RunAll executes every pass and returns the combined report.
func (s *SweepService) RunAll(ctx context.Context) *SweepReport {
	report := &SweepReport{StartedAt: time.Now()}

	s.runAutoRelease(ctx, report)
	s.runAutoRefund(ctx, report)
	s.runDisputeEscalation(ctx, report)
	s.runRateStaleness(ctx, report)

	report.Duration = time.Since(report.StartedAt).String()
	if report.Released+report.Refunded+report.Escalated > 0 || report.StaleRates > 0 || len(report.Errors) > 0 {
		s.log.Info("sweep finished",
			zap.Int("released", report.Released),
			zap.Int("refunded", report.Refunded),
			zap.Int("escalated", report.Escalated),
			zap.Int64("stale_rates", report.StaleRates),
			zap.Int("errors", len(report.Errors)),
			zap.String("duration", report.Duration))
	}
	return report
}

func (s *SweepService) runAutoRelease(ctx context.Context, report *SweepReport) {
	ids, err := s.escrowRepo.ListAutoReleasable(ctx, s.cfg.AutoReleaseDelay, s.cfg.SweepBatchSize)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list auto-releasable: %v", err))
		return
	}
	for _, id := range ids {
		moved, err := s.escrows.AutoRelease(ctx, id)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("auto-release %s: %v", id, err))
			s.log.Error("auto-release failed", zap.String("escrow_id", id.String()), zap.Error(err))
			continue
		}
		if moved {
			report.Released++
		}
	}
}

func (s *SweepService) runAutoRefund(ctx context.Context, report *SweepReport) {
	ids, err := s.escrowRepo.ListAutoRefundable(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list auto-refundable: %v", err))
		return
	}
	for _, id := range ids {
		moved, err := s.escrows.AutoRefund(ctx, id)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("auto-refund %s: %v", id, err))
			s.log.Error("auto-refund failed", zap.String("escrow_id", id.String()), zap.Error(err))
			continue
		}
		if moved {
			report.Refunded++
		}
	}
}

func (s *SweepService) runDisputeEscalation(ctx context.Context, report *SweepReport) {
	count, err := s.disputes.EscalateOverdue(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dispute escalation: %v", err))
		return
	}
	report.Escalated = count
}

func (s *SweepService) runRateStaleness(ctx context.Context, report *SweepReport) {
	count, err := s.rateRepo.MarkStaleOlderThan(ctx, s.cfg.RateMaxAge)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("mark stale rates: %v", err))
		return
	}
	report.StaleRates = count
}
