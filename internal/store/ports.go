// Package store defines the uniform persistence facade the application is
// written against. Two interchangeable backends implement it: a local SQLite
// store and a remote BigQuery store. The backend is chosen once at startup
// from configuration, never per call.
package store

import (
	"context"
	"time"

	"pocketbook/internal/core"
)

// Snapshot is a complete replacement view of one account's transactions,
// sorted by date descending. Subscribers always treat the most recently
// delivered snapshot as authoritative; snapshots are never deltas.
type Snapshot struct {
	AccountID    string
	Transactions []core.Transaction
}

// Store is the persistence facade. All operations are scoped to a single
// account; there are no cross-account relationships.
type Store interface {
	// RegisterUser creates the profile, assigns its 8-digit account ID, and
	// stores the bcrypt credential separately. Returns core.ErrUserExists if
	// the account ID collides.
	RegisterUser(ctx context.Context, profile core.UserProfile, password string) (core.UserProfile, error)

	// LoginUser verifies credentials and returns the profile. A missing
	// profile or wrong password both surface as core.ErrInvalidCredentials:
	// login fails closed.
	LoginUser(ctx context.Context, accountID, password string) (core.UserProfile, error)

	// LogoutUser tears down every active subscription for the account so late
	// pushes after logout are discarded.
	LogoutUser(ctx context.Context, accountID string) error

	// UpdateUserProfile replaces the stored profile.
	UpdateUserProfile(ctx context.Context, profile core.UserProfile) error

	// Profile loads the stored profile by account ID.
	Profile(ctx context.Context, accountID string) (core.UserProfile, error)

	// AddTransaction persists a new transaction and returns its ID. Backends
	// with delayed visibility may return before the write is durable; the
	// effect then surfaces through the next snapshot push.
	AddTransaction(ctx context.Context, accountID string, tx core.Transaction) (string, error)

	// UpdateTransaction replaces the transaction identified by tx.ID.
	UpdateTransaction(ctx context.Context, accountID string, tx core.Transaction) error

	// DeleteTransaction removes a transaction. Deleting an ID that is not
	// present is an idempotent no-op.
	DeleteTransaction(ctx context.Context, accountID, txID string) error

	// Transactions reads the current collection, sorted by date descending.
	Transactions(ctx context.Context, accountID string) ([]core.Transaction, error)

	// SubscribeTransactions delivers an initial snapshot followed by a new
	// snapshot on every observed change. The subscription ends when ctx is
	// cancelled; the returned channel is then closed.
	SubscribeTransactions(ctx context.Context, accountID string) (*Subscription, error)
}

// ReportCandidate is a profile due-check input for the report scheduler.
type ReportCandidate struct {
	Profile    core.UserProfile
	LastReport time.Time // zero when no report was ever sent
}

// ReportStore is the report-side view of a backend. Every Store backend also
// implements it, so guardian reports run regardless of the configured mode.
type ReportStore interface {
	// GuardianProfiles lists profiles with both a guardian contact and a
	// report cadence configured.
	GuardianProfiles(ctx context.Context) ([]ReportCandidate, error)

	// MarkReportSent records when the account's guardian report last went out.
	MarkReportSent(ctx context.Context, accountID string, at time.Time) error
}

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error
