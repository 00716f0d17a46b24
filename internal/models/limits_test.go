package models

import (
	"testing"
	"time"
)

func TestDeriveUserType(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		kycStatus string
		createdAt time.Time
		expected  string
	}{
		{"approved kyc wins over age", KYCStatusApproved, now.Add(-24 * time.Hour), UserTypeVerified},
		{"young account is new", KYCStatusNone, now.Add(-10 * 24 * time.Hour), UserTypeNew},
		{"pending kyc still ages normally", KYCStatusPending, now.Add(-60 * 24 * time.Hour), UserTypeStandard},
		{"exactly 30 days is standard", KYCStatusNone, now.Add(-NewUserAge), UserTypeStandard},
		{"29 days is new", KYCStatusNone, now.Add(-NewUserAge + time.Hour), UserTypeNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveUserType(tt.kycStatus, tt.createdAt, now); got != tt.expected {
				t.Errorf("DeriveUserType(%q) = %q, want %q", tt.kycStatus, got, tt.expected)
			}
		})
	}
}
