// Package worker consumes guardian report jobs and delivers the emails.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	"pocketbook/internal/mail"
	"pocketbook/internal/services"
)

// ReportSource is the slice of the store a worker needs to build and record
// a guardian report. Any store backend satisfies it.
type ReportSource interface {
	Profile(ctx context.Context, accountID string) (core.UserProfile, error)
	Transactions(ctx context.Context, accountID string) ([]core.Transaction, error)
	MarkReportSent(ctx context.Context, accountID string, at time.Time) error
}

// ReportWorker builds and sends one guardian report per consumed job.
type ReportWorker struct {
	source ReportSource
	mailer mail.Mailer
	now    func() time.Time
}

func NewReportWorker(source ReportSource, mailer mail.Mailer) *ReportWorker {
	return &ReportWorker{
		source: source,
		mailer: mailer,
		now:    time.Now,
	}
}

// HandleReportJob processes a single report job from AMQP
func (w *ReportWorker) HandleReportJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	slog.InfoContext(ctx, "Processing report job",
		"account_id", msg.AccountID,
		"cadence", msg.Cadence)

	profile, err := w.source.Profile(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if profile.Guardian == nil || profile.Guardian.Email == "" {
		// Guardian contact may have been removed between scan and delivery.
		// Phone-only guardians receive no email.
		slog.WarnContext(ctx, "No guardian email on file, skipping report",
			"account_id", msg.AccountID)
		return nil
	}

	txs, err := w.source.Transactions(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	now := w.now()
	report := services.BuildReport(profile, txs, msg.Cadence, now)

	if err := w.mailer.Send(ctx, profile.Guardian.Email, report.Subject, report.Body); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}

	if err := w.source.MarkReportSent(ctx, msg.AccountID, now); err != nil {
		// The mail went out; a failed bookkeeping update only risks an
		// extra report next scan.
		slog.ErrorContext(ctx, "Failed to record report send time",
			"account_id", msg.AccountID,
			"error", err)
	}

	slog.InfoContext(ctx, "Guardian report sent",
		"account_id", msg.AccountID,
		"guardian_email", profile.Guardian.Email,
		"cadence", msg.Cadence)

	return nil
}
