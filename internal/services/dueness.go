// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for guardian report dueness
// checking. Each cadence has its own strategy that encapsulates the logic
// for determining if a report is due.

package services

import (
	"fmt"
	"time"

	"pocketbook/internal/core"
)

// DuenessChecker is the strategy interface for checking if a guardian report
// is due. Each implementation encapsulates the algorithm for one cadence.
type DuenessChecker interface {
	// IsDue returns true if a report should go out based on the last send
	// time and the current time.
	IsDue(lastReport, now time.Time) bool
}

// WeeklyChecker implements DuenessChecker for weekly reports.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since the last report.
func (WeeklyChecker) IsDue(lastReport, now time.Time) bool {
	if lastReport.IsZero() {
		return true
	}
	daysSince := now.Sub(lastReport).Hours() / 24
	return daysSince >= 7
}

// MonthlyChecker implements DuenessChecker for monthly reports.
type MonthlyChecker struct{}

// IsDue returns true if we're in a new month relative to the last report.
func (MonthlyChecker) IsDue(lastReport, now time.Time) bool {
	if lastReport.IsZero() {
		return true
	}
	return lastReport.Year() != now.Year() || lastReport.Month() != now.Month()
}

// duenessStrategies maps cadences to their corresponding checkers.
var duenessStrategies = map[core.ReportCadence]DuenessChecker{
	core.ReportWeekly:  WeeklyChecker{},
	core.ReportMonthly: MonthlyChecker{},
}

// GetDuenessChecker returns the appropriate dueness checker for a cadence.
// Returns an error if the cadence is not supported.
func GetDuenessChecker(cadence core.ReportCadence) (DuenessChecker, error) {
	checker, ok := duenessStrategies[cadence]
	if !ok {
		return nil, fmt.Errorf("unknown report cadence: %s", cadence)
	}
	return checker, nil
}
