// Package storage is the SQLite persistence layer behind the local store
// backend and the report workers.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
	"pocketbook/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts the profile and its credential hash in one transaction.
func (r *Repository) CreateUser(ctx context.Context, p core.UserProfile, passwordHash string) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbtx.Rollback()

	guardianEmail, guardianPhone := "", ""
	if p.Guardian != nil {
		guardianEmail = p.Guardian.Email
		guardianPhone = p.Guardian.Phone
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO users (account_id, name, avatar_url, age, guardian_email, guardian_phone, report_cadence, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.AccountID, p.Name, p.AvatarURL, p.Age, guardianEmail, guardianPhone, string(p.ReportCadence), p.Currency)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO credentials (account_id, password_hash) VALUES (?, ?)`,
		p.AccountID, passwordHash)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "User created", "account_id", p.AccountID, "minor", p.IsMinor())
	return nil
}

func (r *Repository) GetUser(ctx context.Context, accountID string) (core.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, name, avatar_url, age, guardian_email, guardian_phone, report_cadence, currency
		FROM users WHERE account_id = ?`, accountID)

	var p core.UserProfile
	var guardianEmail, guardianPhone, cadence string
	err := row.Scan(&p.AccountID, &p.Name, &p.AvatarURL, &p.Age, &guardianEmail, &guardianPhone, &cadence, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("select user: %w", err)
	}
	if guardianEmail != "" || guardianPhone != "" {
		p.Guardian = &core.Guardian{Email: guardianEmail, Phone: guardianPhone}
	}
	p.ReportCadence = core.ReportCadence(cadence)
	return p, nil
}

func (r *Repository) UpdateUser(ctx context.Context, p core.UserProfile) error {
	guardianEmail, guardianPhone := "", ""
	if p.Guardian != nil {
		guardianEmail = p.Guardian.Email
		guardianPhone = p.Guardian.Phone
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, avatar_url = ?, age = ?, guardian_email = ?, guardian_phone = ?,
		    report_cadence = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ?`,
		p.Name, p.AvatarURL, p.Age, guardianEmail, guardianPhone, string(p.ReportCadence), p.Currency, p.AccountID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// CredentialHash returns the stored bcrypt hash for the account.
func (r *Repository) CredentialHash(ctx context.Context, accountID string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM credentials WHERE account_id = ?`, accountID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select credential: %w", err)
	}
	return hash, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, accountID string, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, tx_date, description, amount, kind)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, accountID, t.Date.String(), t.Description, t.Amount.String(), string(t.Kind))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, accountID string, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET tx_date = ?, description = ?, amount = ?, kind = ?
		WHERE id = ? AND account_id = ?`,
		t.Date.String(), t.Description, t.Amount.String(), string(t.Kind), t.ID, accountID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTransactionMissing
	}
	return nil
}

// DeleteTransaction removes the row if present. Deleting an absent ID is a
// deliberate no-op.
func (r *Repository) DeleteTransaction(ctx context.Context, accountID, txID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND account_id = ?`, txID, accountID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the account's collection sorted newest date first,
// same-day rows newest insertion first.
func (r *Repository) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_date, description, amount, kind
		FROM transactions
		WHERE account_id = ?
		ORDER BY tx_date DESC, created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var dateStr, amountStr, kind string
		if err := rows.Scan(&t.ID, &dateStr, &t.Description, &amountStr, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("transaction %s: parse amount: %w", t.ID, err)
		}
		t.Kind = core.Kind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// GuardianProfiles lists profiles that have both a guardian contact and a
// report cadence configured.
func (r *Repository) GuardianProfiles(ctx context.Context) ([]store.ReportCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, name, avatar_url, age, guardian_email, guardian_phone, report_cadence, currency, last_report_at
		FROM users
		WHERE report_cadence != '' AND (guardian_email != '' OR guardian_phone != '')`)
	if err != nil {
		return nil, fmt.Errorf("select guardian profiles: %w", err)
	}
	defer rows.Close()

	var out []store.ReportCandidate
	for rows.Next() {
		var c store.ReportCandidate
		var guardianEmail, guardianPhone, cadence string
		var lastReport sql.NullTime
		err := rows.Scan(&c.Profile.AccountID, &c.Profile.Name, &c.Profile.AvatarURL, &c.Profile.Age,
			&guardianEmail, &guardianPhone, &cadence, &c.Profile.Currency, &lastReport)
		if err != nil {
			return nil, fmt.Errorf("scan guardian profile: %w", err)
		}
		c.Profile.Guardian = &core.Guardian{Email: guardianEmail, Phone: guardianPhone}
		c.Profile.ReportCadence = core.ReportCadence(cadence)
		if lastReport.Valid {
			c.LastReport = lastReport.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkReportSent records when the account's guardian report last went out.
func (r *Repository) MarkReportSent(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_report_at = ? WHERE account_id = ?`, at.UTC(), accountID)
	if err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	return nil
}
