package services

import (
	"testing"
	"time"

	"pocketbook/internal/core"
)

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lastReport time.Time
		want       bool
	}{
		{
			name:       "never sent - is due",
			lastReport: time.Time{},
			want:       true,
		},
		{
			name:       "sent three days ago - not due",
			lastReport: time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC),
			want:       false,
		},
		{
			name:       "sent exactly seven days ago - is due",
			lastReport: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
			want:       true,
		},
		{
			name:       "sent two weeks ago - is due",
			lastReport: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastReport, now)
			if got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lastReport time.Time
		want       bool
	}{
		{
			name:       "never sent - is due",
			lastReport: time.Time{},
			want:       true,
		},
		{
			name:       "sent earlier this month - not due",
			lastReport: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			want:       false,
		},
		{
			name:       "sent last month - is due",
			lastReport: time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
			want:       true,
		},
		{
			name:       "sent same month last year - is due",
			lastReport: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastReport, now)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	if _, err := GetDuenessChecker(core.ReportWeekly); err != nil {
		t.Errorf("GetDuenessChecker(weekly) error = %v", err)
	}
	if _, err := GetDuenessChecker(core.ReportMonthly); err != nil {
		t.Errorf("GetDuenessChecker(monthly) error = %v", err)
	}
	if _, err := GetDuenessChecker(core.ReportCadence("daily")); err == nil {
		t.Error("GetDuenessChecker(daily) should fail")
	}
	if _, err := GetDuenessChecker(""); err == nil {
		t.Error("GetDuenessChecker(empty) should fail")
	}
}
