// Package cloud is the remote store backend on BigQuery. Transaction writes
// are acknowledged before they are durable: the insert runs on a detached
// context and its effect reaches the UI through the polling watcher that
// feeds subscription snapshots.
package cloud

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/iterator"

	"pocketbook/internal/core"
	"pocketbook/internal/id"
	"pocketbook/internal/log"
	"pocketbook/internal/store"
)

const (
	usersTable        = "users"
	credentialsTable  = "credentials"
	transactionsTable = "transactions"

	writeTimeout = 30 * time.Second
)

type Config struct {
	ProjectID    string
	DatasetID    string
	PollInterval time.Duration
}

type Store struct {
	client *bigquery.Client
	cfg    Config
	hub    *store.Hub
	logger *log.Logger
	now    func() time.Time
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Store{
		client: client,
		cfg:    cfg,
		hub:    store.NewHub(),
		logger: log.New(log.Config{Component: log.ComponentBigQuery}),
		now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) *bigquery.Table {
	return s.client.DatasetInProject(s.cfg.ProjectID, s.cfg.DatasetID).Table(name)
}

func (s *Store) qualified(name string) string {
	return "`" + s.cfg.ProjectID + "." + s.cfg.DatasetID + "." + name + "`"
}

func (s *Store) RegisterUser(ctx context.Context, profile core.UserProfile, password string) (core.UserProfile, error) {
	accountID, err := id.NewAccountID()
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("generate account id: %w", err)
	}
	profile.AccountID = accountID
	if err := profile.Validate(); err != nil {
		return core.UserProfile{}, err
	}

	if _, err := s.Profile(ctx, accountID); err == nil {
		return core.UserProfile{}, core.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.table(usersTable).Inserter().Put(ctx, toUserRow(profile, now)); err != nil {
		return core.UserProfile{}, fmt.Errorf("insert user: %w", err)
	}
	cred := &credentialRow{AccountID: accountID, PasswordHash: string(hash), CreatedTS: now.UTC()}
	if err := s.table(credentialsTable).Inserter().Put(ctx, cred); err != nil {
		return core.UserProfile{}, fmt.Errorf("insert credential: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", "account_id", accountID, "minor", profile.IsMinor())
	return profile, nil
}

func (s *Store) LoginUser(ctx context.Context, accountID, password string) (core.UserProfile, error) {
	hash, err := s.credentialHash(ctx, accountID)
	if err != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	profile, err := s.Profile(ctx, accountID)
	if err != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	return profile, nil
}

func (s *Store) credentialHash(ctx context.Context, accountID string) (string, error) {
	q := s.client.Query(`
		SELECT password_hash
		FROM ` + s.qualified(credentialsTable) + `
		WHERE account_id = @account_id
		ORDER BY created_ts DESC
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{{Name: "account_id", Value: accountID}}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("query credential: %w", err)
	}
	var row credentialRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return "", core.ErrUserNotFound
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	return row.PasswordHash, nil
}

func (s *Store) LogoutUser(ctx context.Context, accountID string) error {
	s.hub.CloseAccount(accountID)
	return nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, profile core.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	guardianEmail, guardianPhone := "", ""
	if profile.Guardian != nil {
		guardianEmail = profile.Guardian.Email
		guardianPhone = profile.Guardian.Phone
	}

	q := s.client.Query(`
		UPDATE ` + s.qualified(usersTable) + `
		SET name = @name,
		    avatar_url = @avatar_url,
		    age = @age,
		    guardian_email = @guardian_email,
		    guardian_phone = @guardian_phone,
		    report_cadence = @report_cadence,
		    currency = @currency
		WHERE account_id = @account_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: profile.Name},
		{Name: "avatar_url", Value: profile.AvatarURL},
		{Name: "age", Value: int64(profile.Age)},
		{Name: "guardian_email", Value: guardianEmail},
		{Name: "guardian_phone", Value: guardianPhone},
		{Name: "report_cadence", Value: string(profile.ReportCadence)},
		{Name: "currency", Value: profile.Currency},
		{Name: "account_id", Value: profile.AccountID},
	}
	return s.runDML(ctx, q, "update user")
}

func (s *Store) Profile(ctx context.Context, accountID string) (core.UserProfile, error) {
	q := s.client.Query(`
		SELECT account_id, name, avatar_url, age, guardian_email, guardian_phone, report_cadence, currency, created_ts
		FROM ` + s.qualified(usersTable) + `
		WHERE account_id = @account_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{{Name: "account_id", Value: accountID}}

	it, err := q.Read(ctx)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("query user: %w", err)
	}
	var row userRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return core.UserProfile{}, core.ErrUserNotFound
		}
		return core.UserProfile{}, fmt.Errorf("read user: %w", err)
	}
	return row.toProfile(), nil
}

// GuardianProfiles returns the profiles of minors with a report cadence and at
// least one guardian contact, along with when each was last reported on.
func (s *Store) GuardianProfiles(ctx context.Context) ([]store.ReportCandidate, error) {
	q := s.client.Query(`
		SELECT account_id, name, avatar_url, age, guardian_email, guardian_phone, report_cadence, currency, last_report_ts, created_ts
		FROM ` + s.qualified(usersTable) + `
		WHERE COALESCE(report_cadence, '') != ''
		  AND (COALESCE(guardian_email, '') != '' OR COALESCE(guardian_phone, '') != '')
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query guardian profiles: %w", err)
	}

	var candidates []store.ReportCandidate
	for {
		var row userRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter guardian profiles: %w", err)
		}
		candidates = append(candidates, row.toCandidate())
	}
	return candidates, nil
}

func (s *Store) MarkReportSent(ctx context.Context, accountID string, at time.Time) error {
	q := s.client.Query(`
		UPDATE ` + s.qualified(usersTable) + `
		SET last_report_ts = @last_report_ts
		WHERE account_id = @account_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "last_report_ts", Value: at.UTC()},
		{Name: "account_id", Value: accountID},
	}
	return s.runDML(ctx, q, "mark report sent")
}

// AddTransaction acknowledges immediately and streams the row in the
// background. The caller sees the transaction once the watcher picks it up.
func (s *Store) AddTransaction(ctx context.Context, accountID string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	row := toTransactionRow(accountID, tx, s.now())
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := s.table(transactionsTable).Inserter().Put(wctx, row); err != nil {
			s.logger.ErrorContext(wctx, "Insert transaction failed", "error", err, "account_id", accountID, "transaction_id", tx.ID)
		}
	}()
	return tx.ID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, accountID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	q := s.client.Query(`
		UPDATE ` + s.qualified(transactionsTable) + `
		SET transaction_date = @transaction_date,
		    description = @description,
		    amount = @amount,
		    kind = @kind
		WHERE account_id = @account_id AND transaction_id = @transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_date", Value: tx.Date.String()},
		{Name: "description", Value: tx.Description},
		{Name: "amount", Value: tx.Amount.Rat()},
		{Name: "kind", Value: string(tx.Kind)},
		{Name: "account_id", Value: accountID},
		{Name: "transaction_id", Value: tx.ID},
	}

	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := s.runDML(wctx, q, "update transaction"); err != nil {
			s.logger.ErrorContext(wctx, "Update transaction failed", "error", err, "account_id", accountID, "transaction_id", tx.ID)
		}
	}()
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, accountID, txID string) error {
	q := s.client.Query(`
		DELETE FROM ` + s.qualified(transactionsTable) + `
		WHERE account_id = @account_id AND transaction_id = @transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "transaction_id", Value: txID},
	}

	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := s.runDML(wctx, q, "delete transaction"); err != nil {
			s.logger.ErrorContext(wctx, "Delete transaction failed", "error", err, "account_id", accountID, "transaction_id", txID)
		}
	}()
	return nil
}

func (s *Store) Transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	q := s.client.Query(`
		SELECT transaction_id, account_id, transaction_date, description, amount, kind, created_ts
		FROM ` + s.qualified(transactionsTable) + `
		WHERE account_id = @account_id
		ORDER BY transaction_date DESC, created_ts DESC
	`)
	q.Parameters = []bigquery.QueryParameter{{Name: "account_id", Value: accountID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	txs := []core.Transaction{}
	for {
		var row transactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter transactions: %w", err)
		}
		txs = append(txs, row.toTransaction())
	}
	return txs, nil
}

func (s *Store) SubscribeTransactions(ctx context.Context, accountID string) (*store.Subscription, error) {
	txs, err := s.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := s.hub.Subscribe(ctx, accountID)
	s.hub.Publish(accountID, store.Snapshot{AccountID: accountID, Transactions: txs})

	go s.watch(ctx, accountID, txs)
	return sub, nil
}

func (s *Store) runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: run query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: wait for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
