package models

import (
	"testing"
	"time"
)

func TestIsValidDisputeTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{DisputeStatusAwaitingResponse, DisputeStatusUnderReview, true},
		{DisputeStatusAwaitingResponse, DisputeStatusResolvedRefund, true},
		{DisputeStatusAwaitingResponse, DisputeStatusExpired, true},
		{DisputeStatusUnderReview, DisputeStatusResolvedRefund, true},
		{DisputeStatusUnderReview, DisputeStatusResolvedPartial, true},
		{DisputeStatusUnderReview, DisputeStatusResolvedRelease, true},
		{DisputeStatusUnderReview, DisputeStatusCancelled, true},

		// No reopening or skipping backwards
		{DisputeStatusResolvedRefund, DisputeStatusUnderReview, false},
		{DisputeStatusCancelled, DisputeStatusAwaitingResponse, false},
		{DisputeStatusExpired, DisputeStatusUnderReview, false},
		{DisputeStatusUnderReview, DisputeStatusAwaitingResponse, false},
		{"pending", DisputeStatusAwaitingResponse, false},
		{"nonexistent", DisputeStatusUnderReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidDisputeTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidDisputeTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestResolutionToDisputeStatus(t *testing.T) {
	tests := []struct {
		resolution string
		status     string
		ok         bool
	}{
		{ResolutionRefund, DisputeStatusResolvedRefund, true},
		{ResolutionPartial, DisputeStatusResolvedPartial, true},
		{ResolutionRelease, DisputeStatusResolvedRelease, true},
		{ResolutionCancel, DisputeStatusCancelled, true},
		{ResolutionExpire, DisputeStatusExpired, true},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		status, ok := ResolutionToDisputeStatus(tt.resolution)
		if status != tt.status || ok != tt.ok {
			t.Errorf("ResolutionToDisputeStatus(%q) = (%q, %v), want (%q, %v)", tt.resolution, status, ok, tt.status, tt.ok)
		}
	}
}

func TestIsActiveDisputeStatus(t *testing.T) {
	active := []string{DisputeStatusAwaitingResponse, DisputeStatusUnderReview}
	for _, s := range active {
		if !IsActiveDisputeStatus(s) {
			t.Errorf("%q should be active", s)
		}
	}
	inactive := []string{DisputeStatusResolvedRefund, DisputeStatusResolvedPartial, DisputeStatusResolvedRelease, DisputeStatusCancelled, DisputeStatusExpired}
	for _, s := range inactive {
		if IsActiveDisputeStatus(s) {
			t.Errorf("%q should not be active", s)
		}
	}
}

func TestNeedsEscalation(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		dispute  Dispute
		expected bool
	}{
		{
			"awaiting response past deadline",
			Dispute{Status: DisputeStatusAwaitingResponse, ResponseDeadline: past, ReviewDeadline: future},
			true,
		},
		{
			"awaiting response within deadline",
			Dispute{Status: DisputeStatusAwaitingResponse, ResponseDeadline: future, ReviewDeadline: future},
			false,
		},
		{
			"under review past review deadline",
			Dispute{Status: DisputeStatusUnderReview, ResponseDeadline: past, ReviewDeadline: past},
			true,
		},
		{
			"under review within review deadline",
			Dispute{Status: DisputeStatusUnderReview, ResponseDeadline: past, ReviewDeadline: future},
			false,
		},
		{
			"already escalated",
			Dispute{Status: DisputeStatusAwaitingResponse, ResponseDeadline: past, ReviewDeadline: past, Escalated: true},
			false,
		},
		{
			"resolved disputes never escalate",
			Dispute{Status: DisputeStatusResolvedRefund, ResponseDeadline: past, ReviewDeadline: past},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dispute.NeedsEscalation(now); got != tt.expected {
				t.Errorf("NeedsEscalation = %v, want %v", got, tt.expected)
			}
		})
	}
}
