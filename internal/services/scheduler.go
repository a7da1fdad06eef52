package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/amqp"
	"pocketbook/internal/store"
)

// ReportPublisher publishes report jobs for consumption by workers.
type ReportPublisher interface {
	PublishReportJob(ctx context.Context, msg *amqp.ReportJobMessage) error
}

// CandidateSource lists the accounts eligible for guardian reports. Any
// store backend satisfies it.
type CandidateSource interface {
	GuardianProfiles(ctx context.Context) ([]store.ReportCandidate, error)
}

// ReportScheduler scans guardian-enabled profiles and enqueues a report job
// for every account whose cadence says a report is due.
type ReportScheduler struct {
	source    CandidateSource
	publisher ReportPublisher
}

// NewReportScheduler creates a new report scheduler
func NewReportScheduler(source CandidateSource, publisher ReportPublisher) *ReportScheduler {
	return &ReportScheduler{
		source:    source,
		publisher: publisher,
	}
}

// ProcessDueReports enqueues jobs for all accounts with a due guardian report
func (s *ReportScheduler) ProcessDueReports(ctx context.Context, now time.Time) (int, error) {
	if s.source == nil || s.publisher == nil {
		return 0, fmt.Errorf("scheduler not properly initialized")
	}

	candidates, err := s.source.GuardianProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get guardian profiles: %w", err)
	}

	slog.InfoContext(ctx, "Scanning guardian profiles for due reports",
		"total_candidates", len(candidates),
		"scan_date", now.Format("2006-01-02"))

	published := 0

	for _, c := range candidates {
		checker, err := GetDuenessChecker(c.Profile.ReportCadence)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping profile with unknown cadence",
				"account_id", c.Profile.AccountID,
				"cadence", c.Profile.ReportCadence)
			continue
		}

		if !checker.IsDue(c.LastReport, now) {
			continue
		}

		msg := amqp.NewReportJobMessage(c.Profile.AccountID, c.Profile.ReportCadence)
		if err := s.publisher.PublishReportJob(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish report job",
				"account_id", c.Profile.AccountID,
				"error", err)
			continue
		}

		published++
		slog.InfoContext(ctx, "Enqueued guardian report job",
			"account_id", c.Profile.AccountID,
			"cadence", c.Profile.ReportCadence)
	}

	return published, nil
}

// Run scans on a fixed interval until ctx is cancelled. The first scan runs
// immediately.
func (s *ReportScheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ProcessDueReports(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Report scan failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
