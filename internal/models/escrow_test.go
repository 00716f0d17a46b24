package models

import (
	"testing"
	"time"
)

func TestIsValidEscrowTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusReleased, true},
		{EscrowStatusPending, EscrowStatusRefunded, true},
		{EscrowStatusPending, EscrowStatusDisputed, true},

		// Dispute resolution paths
		{EscrowStatusDisputed, EscrowStatusPending, true},
		{EscrowStatusDisputed, EscrowStatusReleased, true},
		{EscrowStatusDisputed, EscrowStatusRefunded, true},

		// Terminal states never move
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusReleased, EscrowStatusPending, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
		{EscrowStatusRefunded, EscrowStatusDisputed, false},

		// Nonsense
		{EscrowStatusPending, EscrowStatusPending, false},
		{"nonexistent", EscrowStatusReleased, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidEscrowTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidEscrowTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalEscrowStatuses(t *testing.T) {
	for _, status := range []string{EscrowStatusReleased, EscrowStatusRefunded} {
		if !IsTerminalEscrowStatus(status) {
			t.Errorf("%q should be terminal", status)
		}
		if len(ValidEscrowTransitions[status]) != 0 {
			t.Errorf("terminal status %q should have no transitions", status)
		}
	}
	for _, status := range []string{EscrowStatusPending, EscrowStatusDisputed} {
		if IsTerminalEscrowStatus(status) {
			t.Errorf("%q should not be terminal", status)
		}
	}
}

func TestEligibleForAutoRelease(t *testing.T) {
	now := time.Now()
	delay := 72 * time.Hour
	old := now.Add(-73 * time.Hour)
	recent := now.Add(-time.Hour)

	tests := []struct {
		name     string
		escrow   EscrowTransaction
		expected bool
	}{
		{
			"verified long enough",
			EscrowTransaction{Status: EscrowStatusPending, ProofSubmitted: true, ProofVerifiedAt: &old},
			true,
		},
		{
			"verified too recently",
			EscrowTransaction{Status: EscrowStatusPending, ProofSubmitted: true, ProofVerifiedAt: &recent},
			false,
		},
		{
			"submitted but never verified",
			EscrowTransaction{Status: EscrowStatusPending, ProofSubmitted: true},
			false,
		},
		{
			"not pending",
			EscrowTransaction{Status: EscrowStatusDisputed, ProofSubmitted: true, ProofVerifiedAt: &old},
			false,
		},
		{
			"already released",
			EscrowTransaction{Status: EscrowStatusReleased, ProofSubmitted: true, ProofVerifiedAt: &old},
			false,
		},
		{
			"timer release past deadline",
			EscrowTransaction{Status: EscrowStatusPending, ReleaseCondition: ReleaseConditionTimerExpiry, ExpiresAt: now.Add(-time.Minute)},
			true,
		},
		{
			"timer release before deadline",
			EscrowTransaction{Status: EscrowStatusPending, ReleaseCondition: ReleaseConditionTimerExpiry, ExpiresAt: now.Add(time.Hour)},
			false,
		},
		{
			"disputed timer release waits",
			EscrowTransaction{Status: EscrowStatusDisputed, ReleaseCondition: ReleaseConditionTimerExpiry, ExpiresAt: now.Add(-time.Minute)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.escrow.EligibleForAutoRelease(now, delay); got != tt.expected {
				t.Errorf("EligibleForAutoRelease = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEligibleForAutoRefund(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		escrow   EscrowTransaction
		expected bool
	}{
		{
			"expired with no proof",
			EscrowTransaction{Status: EscrowStatusPending, ExpiresAt: now.Add(-time.Hour)},
			true,
		},
		{
			"expired exactly now",
			EscrowTransaction{Status: EscrowStatusPending, ExpiresAt: now},
			true,
		},
		{
			"not yet expired",
			EscrowTransaction{Status: EscrowStatusPending, ExpiresAt: now.Add(time.Hour)},
			false,
		},
		{
			"proof on file blocks refund",
			EscrowTransaction{Status: EscrowStatusPending, ProofSubmitted: true, ExpiresAt: now.Add(-time.Hour)},
			false,
		},
		{
			"disputed escrows wait",
			EscrowTransaction{Status: EscrowStatusDisputed, ExpiresAt: now.Add(-time.Hour)},
			false,
		},
		{
			"timer escrows release at expiry, never refund",
			EscrowTransaction{Status: EscrowStatusPending, ReleaseCondition: ReleaseConditionTimerExpiry, ExpiresAt: now.Add(-time.Hour)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.escrow.EligibleForAutoRefund(now); got != tt.expected {
				t.Errorf("EligibleForAutoRefund = %v, want %v", got, tt.expected)
			}
		})
	}
}
