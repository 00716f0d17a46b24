package services

import (
	"testing"

	"github.com/giftmoments/backend/internal/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputeQuoteStandardTier(t *testing.T) {
	// 200 at 8% with a 70/30 split, converted to TRY at 35 with a 5% buffer.
	q := computeQuote(quoteInput{
		BaseAmount: dec("200"),
		TotalRate:  dec("0.08"),
		GiverShare: dec("0.70"),
		RateToTRY:  dec("35"),
		Buffer:     dec("0.05"),
	})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"total commission", q.TotalCommission, "16.00"},
		{"giver commission", q.GiverCommission, "11.20"},
		{"receiver commission", q.ReceiverCommission, "4.80"},
		{"giver pays", q.GiverPays, "211.20"},
		{"receiver gets", q.ReceiverGets, "195.20"},
		{"giver pays TRY", q.GiverPaysTRY, "7761.60"},
		{"receiver gets TRY", q.ReceiverGetsTRY, "6832.00"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestComputeQuoteCommissionSplitIsExact(t *testing.T) {
	// Odd cents: the receiver side absorbs the rounding remainder so the two
	// halves always sum to the total.
	cases := []quoteInput{
		{BaseAmount: dec("0.05"), TotalRate: dec("0.10"), GiverShare: dec("0.70"), RateToTRY: dec("1")},
		{BaseAmount: dec("33.33"), TotalRate: dec("0.08"), GiverShare: dec("0.70"), RateToTRY: dec("1")},
		{BaseAmount: dec("99.99"), TotalRate: dec("0.12"), GiverShare: dec("0.60"), RateToTRY: dec("1")},
		{BaseAmount: dec("1.01"), TotalRate: dec("0.05"), GiverShare: dec("0.80"), RateToTRY: dec("1")},
	}
	for _, in := range cases {
		q := computeQuote(in)
		if !q.GiverCommission.Add(q.ReceiverCommission).Equal(q.TotalCommission) {
			t.Errorf("base %s: split %s + %s != total %s",
				in.BaseAmount, q.GiverCommission, q.ReceiverCommission, q.TotalCommission)
		}
		if !q.GiverPays.Sub(q.ReceiverGets).Equal(q.TotalCommission) {
			t.Errorf("base %s: giverPays - receiverGets != total commission", in.BaseAmount)
		}
	}
}

func TestComputeQuoteVIPShiftsCommissionToGiver(t *testing.T) {
	q := computeQuote(quoteInput{
		BaseAmount: dec("100"),
		TotalRate:  dec("0.10"),
		GiverShare: dec("0.70"),
		Settings:   &models.UserCommissionSettings{AccountType: models.AccountTypeVIP},
		RateToTRY:  dec("1"),
	})

	if !q.GiverCommission.Equal(dec("10.00")) {
		t.Errorf("giver commission = %s, want 10.00", q.GiverCommission)
	}
	if !q.ReceiverCommission.IsZero() {
		t.Errorf("receiver commission = %s, want 0", q.ReceiverCommission)
	}
	if !q.ReceiverGets.Equal(dec("100")) {
		t.Errorf("receiver gets = %s, want full base amount", q.ReceiverGets)
	}
}

func TestComputeQuoteInfluencerMatchesVIP(t *testing.T) {
	q := computeQuote(quoteInput{
		BaseAmount: dec("50"),
		TotalRate:  dec("0.10"),
		GiverShare: dec("0.70"),
		Settings:   &models.UserCommissionSettings{AccountType: models.AccountTypeInfluencer},
		RateToTRY:  dec("1"),
	})
	if !q.ReceiverCommission.IsZero() {
		t.Errorf("influencer receiver commission = %s, want 0", q.ReceiverCommission)
	}
}

func TestComputeQuoteCustomRateReplacesTier(t *testing.T) {
	q := computeQuote(quoteInput{
		BaseAmount: dec("100"),
		TotalRate:  dec("0.10"),
		GiverShare: dec("0.70"),
		Settings: &models.UserCommissionSettings{
			AccountType: models.AccountTypeStandard,
			CustomRate:  decPtr("0.03"),
		},
		RateToTRY: dec("1"),
	})
	if !q.TotalCommission.Equal(dec("3.00")) {
		t.Errorf("total commission = %s, want 3.00 from custom rate", q.TotalCommission)
	}
}

func TestComputeQuoteExemptWinsOverCustomRate(t *testing.T) {
	q := computeQuote(quoteInput{
		BaseAmount: dec("500"),
		TotalRate:  dec("0.08"),
		GiverShare: dec("0.70"),
		Settings: &models.UserCommissionSettings{
			AccountType: models.AccountTypeExempt,
			CustomRate:  decPtr("0.50"),
		},
		RateToTRY: dec("1"),
	})
	if !q.TotalCommission.IsZero() {
		t.Errorf("exempt total commission = %s, want 0", q.TotalCommission)
	}
	if !q.GiverPays.Equal(dec("500")) || !q.ReceiverGets.Equal(dec("500")) {
		t.Errorf("exempt should pass the base amount through untouched, got pays=%s gets=%s", q.GiverPays, q.ReceiverGets)
	}
}

func TestComputeQuoteTRYLegBufferOnlyOnGiver(t *testing.T) {
	q := computeQuote(quoteInput{
		BaseAmount: dec("100"),
		TotalRate:  dec("0.10"),
		GiverShare: dec("0.70"),
		RateToTRY:  dec("40"),
		Buffer:     dec("0.05"),
	})

	// giverPays 107 * 40 * 1.05 = 4494; receiverGets 97 * 40 = 3880, unbuffered
	if !q.GiverPaysTRY.Equal(dec("4494.00")) {
		t.Errorf("giver pays TRY = %s, want 4494.00", q.GiverPaysTRY)
	}
	if !q.ReceiverGetsTRY.Equal(dec("3880.00")) {
		t.Errorf("receiver gets TRY = %s, want 3880.00", q.ReceiverGetsTRY)
	}
}

func TestComputeQuoteTRYMomentHasNoBuffer(t *testing.T) {
	// A TRY-denominated moment: identity rate and zero buffer.
	q := computeQuote(quoteInput{
		BaseAmount: dec("1000"),
		TotalRate:  dec("0.10"),
		GiverShare: dec("0.70"),
		RateToTRY:  dec("1"),
		Buffer:     decimal.Zero,
	})
	if !q.GiverPaysTRY.Equal(q.GiverPays) {
		t.Errorf("TRY moment giver pays TRY = %s, want %s", q.GiverPaysTRY, q.GiverPays)
	}
	if !q.ReceiverGetsTRY.Equal(q.ReceiverGets) {
		t.Errorf("TRY moment receiver gets TRY = %s, want %s", q.ReceiverGetsTRY, q.ReceiverGets)
	}
}
