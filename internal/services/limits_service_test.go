package services

import (
	"testing"

	"github.com/giftmoments/backend/internal/models"
)

func limitRow(perTx, daily, monthly string) *models.TransactionLimit {
	l := &models.TransactionLimit{}
	if perTx != "" {
		l.PerTransactionMax = decPtr(perTx)
	}
	if daily != "" {
		l.DailyMax = decPtr(daily)
	}
	if monthly != "" {
		l.MonthlyMax = decPtr(monthly)
	}
	return l
}

func TestEvaluateLimitsPerTransaction(t *testing.T) {
	d := evaluateLimits(limitCheck{
		Amount: dec("150"),
		Limit:  limitRow("100", "", ""),
	})
	if d.Allowed {
		t.Fatal("expected block")
	}
	if d.BlockReason != BlockPerTransaction {
		t.Errorf("reason = %q, want %q", d.BlockReason, BlockPerTransaction)
	}

	d = evaluateLimits(limitCheck{
		Amount: dec("100"),
		Limit:  limitRow("100", "", ""),
	})
	if !d.Allowed {
		t.Error("amount equal to the cap should pass")
	}
}

func TestEvaluateLimitsDailyWindow(t *testing.T) {
	d := evaluateLimits(limitCheck{
		Amount:    dec("60"),
		Limit:     limitRow("", "100", ""),
		DailyUsed: dec("50"),
	})
	if d.Allowed || d.BlockReason != BlockDailyLimit {
		t.Errorf("got allowed=%v reason=%q, want daily block", d.Allowed, d.BlockReason)
	}

	d = evaluateLimits(limitCheck{
		Amount:    dec("50"),
		Limit:     limitRow("", "100", ""),
		DailyUsed: dec("50"),
	})
	if !d.Allowed {
		t.Error("exactly filling the daily window should pass")
	}
}

func TestEvaluateLimitsMonthlyWindow(t *testing.T) {
	d := evaluateLimits(limitCheck{
		Amount:      dec("10"),
		Limit:       limitRow("", "", "1000"),
		MonthlyUsed: dec("995"),
	})
	if d.Allowed || d.BlockReason != BlockMonthlyLimit {
		t.Errorf("got allowed=%v reason=%q, want monthly block", d.Allowed, d.BlockReason)
	}
}

func TestEvaluateLimitsNilCapsMeanUnlimited(t *testing.T) {
	d := evaluateLimits(limitCheck{
		Amount:      dec("1000000"),
		Limit:       &models.TransactionLimit{},
		DailyUsed:   dec("500000"),
		MonthlyUsed: dec("900000"),
	})
	if !d.Allowed {
		t.Error("nil caps should not block")
	}

	d = evaluateLimits(limitCheck{Amount: dec("1000000")})
	if !d.Allowed {
		t.Error("missing limit row should not block")
	}
}

func TestEvaluateLimitsKYCHardThreshold(t *testing.T) {
	threshold := &models.KYCThreshold{SoftAmount: dec("500"), HardAmount: dec("2000")}

	d := evaluateLimits(limitCheck{Amount: dec("2000"), Threshold: threshold})
	if d.Allowed || d.BlockReason != BlockKYCRequired || !d.KYCRequired {
		t.Errorf("hard threshold: got allowed=%v reason=%q kyc=%v", d.Allowed, d.BlockReason, d.KYCRequired)
	}

	// Verified users pass through the same amount.
	d = evaluateLimits(limitCheck{Amount: dec("2000"), Threshold: threshold, KYCApproved: true})
	if !d.Allowed {
		t.Error("approved KYC should bypass the hard threshold")
	}
}

func TestEvaluateLimitsKYCSoftThresholdWarns(t *testing.T) {
	threshold := &models.KYCThreshold{SoftAmount: dec("500"), HardAmount: dec("2000")}

	d := evaluateLimits(limitCheck{Amount: dec("600"), Threshold: threshold})
	if !d.Allowed {
		t.Fatal("soft threshold must not block")
	}
	if !d.KYCRequired || len(d.Warnings) == 0 {
		t.Errorf("soft threshold should flag KYC and warn, got kyc=%v warnings=%v", d.KYCRequired, d.Warnings)
	}

	d = evaluateLimits(limitCheck{Amount: dec("400"), Threshold: threshold})
	if d.KYCRequired || len(d.Warnings) != 0 {
		t.Error("below soft threshold there should be no KYC flag")
	}
}

func TestEvaluateLimitsPerTransactionCheckedFirst(t *testing.T) {
	// When several rules would trip, the per-transaction one reports.
	d := evaluateLimits(limitCheck{
		Amount:      dec("5000"),
		Limit:       limitRow("100", "200", "300"),
		DailyUsed:   dec("500"),
		MonthlyUsed: dec("500"),
		Threshold:   &models.KYCThreshold{SoftAmount: dec("10"), HardAmount: dec("20")},
	})
	if d.BlockReason != BlockPerTransaction {
		t.Errorf("reason = %q, want %q", d.BlockReason, BlockPerTransaction)
	}
}
