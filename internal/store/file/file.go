// Package file implements the store facade over plain JSON files in a data
// directory: profile.json holds the single serialized profile, and
// transactions.json holds the serialized transaction list, newest-first by
// insertion. This is the offline mode backend; it is also what tests use.
//
// Writes overwrite the whole file, not a delta. After every successful write
// the store re-emits a full snapshot to subscribers so offline mode has the
// same push semantics as the remote backend.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"pocketbook/internal/core"
	"pocketbook/internal/id"
	"pocketbook/internal/store"
)

const (
	profileFile      = "profile.json"
	transactionsFile = "transactions.json"
	credentialsFile  = "credentials.json"
)

// Store is a single-profile offline store. All state lives under dir and is
// guarded by one mutex; every operation is a synchronous read or whole-file
// overwrite.
type Store struct {
	mu  sync.Mutex
	dir string
	hub *store.Hub
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir, hub: store.NewHub()}, nil
}

// persistedProfile is the on-disk profile shape.
type persistedProfile struct {
	AccountID     string `json:"accountId"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	Age           int    `json:"age"`
	GuardianEmail string `json:"guardianEmail,omitempty"`
	GuardianPhone string `json:"guardianPhone,omitempty"`
	ReportCadence string `json:"reportCadence,omitempty"`
	Currency      string `json:"currency,omitempty"`
	LastReportAt  string `json:"lastReportAt,omitempty"` // RFC 3339
}

type persistedTransaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
}

type persistedCredential struct {
	AccountID    string `json:"accountId"`
	PasswordHash string `json:"passwordHash"`
}

func toPersisted(p core.UserProfile) persistedProfile {
	out := persistedProfile{
		AccountID:     p.AccountID,
		Name:          p.Name,
		AvatarURL:     p.AvatarURL,
		Age:           p.Age,
		ReportCadence: string(p.ReportCadence),
		Currency:      p.Currency,
	}
	if p.Guardian != nil {
		out.GuardianEmail = p.Guardian.Email
		out.GuardianPhone = p.Guardian.Phone
	}
	return out
}

func fromPersisted(p persistedProfile) core.UserProfile {
	out := core.UserProfile{
		AccountID:     p.AccountID,
		Name:          p.Name,
		AvatarURL:     p.AvatarURL,
		Age:           p.Age,
		ReportCadence: core.ReportCadence(p.ReportCadence),
		Currency:      p.Currency,
	}
	if p.GuardianEmail != "" || p.GuardianPhone != "" {
		out.Guardian = &core.Guardian{Email: p.GuardianEmail, Phone: p.GuardianPhone}
	}
	return out
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *Store) loadPersisted() (persistedProfile, error) {
	var p persistedProfile
	if err := s.readJSON(profileFile, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistedProfile{}, core.ErrUserNotFound
		}
		return persistedProfile{}, fmt.Errorf("read profile: %w", err)
	}
	return p, nil
}

func (s *Store) loadProfile() (core.UserProfile, error) {
	p, err := s.loadPersisted()
	if err != nil {
		return core.UserProfile{}, err
	}
	return fromPersisted(p), nil
}

func (s *Store) loadTransactions() ([]core.Transaction, error) {
	var rows []persistedTransaction
	if err := s.readJSON(transactionsFile, &rows); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	txs := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		date, err := core.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: parse amount: %w", r.ID, err)
		}
		txs = append(txs, core.Transaction{
			ID:          r.ID,
			Date:        date,
			Description: r.Description,
			Amount:      amount,
			Kind:        core.Kind(r.Kind),
		})
	}
	return txs, nil
}

func (s *Store) saveTransactions(txs []core.Transaction) error {
	rows := make([]persistedTransaction, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, persistedTransaction{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Amount:      t.Amount.String(),
			Kind:        string(t.Kind),
		})
	}
	return s.writeJSON(transactionsFile, rows)
}

// sortedByDateDesc returns a copy sorted newest date first, stable so that
// insertion order breaks same-day ties.
func sortedByDateDesc(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.String() > out[j].Date.String()
	})
	return out
}

// publishLocked pushes the current collection to subscribers. Callers hold mu.
func (s *Store) publishLocked(accountID string, txs []core.Transaction) {
	s.hub.Publish(accountID, store.Snapshot{
		AccountID:    accountID,
		Transactions: sortedByDateDesc(txs),
	})
}

func (s *Store) RegisterUser(ctx context.Context, profile core.UserProfile, password string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadProfile(); err == nil {
		return core.UserProfile{}, core.ErrUserExists
	}

	accountID, err := id.NewAccountID()
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("generate account id: %w", err)
	}
	profile.AccountID = accountID
	if err := profile.Validate(); err != nil {
		return core.UserProfile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.writeJSON(credentialsFile, persistedCredential{AccountID: accountID, PasswordHash: string(hash)}); err != nil {
		return core.UserProfile{}, err
	}
	if err := s.writeJSON(profileFile, toPersisted(profile)); err != nil {
		return core.UserProfile{}, err
	}
	return profile, nil
}

func (s *Store) LoginUser(ctx context.Context, accountID, password string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.loadProfile()
	if err != nil {
		// No stored profile: fail closed.
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	if profile.AccountID != accountID {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}

	var cred persistedCredential
	if err := s.readJSON(credentialsFile, &cred); err != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	return profile, nil
}

func (s *Store) LogoutUser(ctx context.Context, accountID string) error {
	s.hub.CloseAccount(accountID)
	return nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, profile core.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadPersisted()
	if err != nil {
		return err
	}
	if current.AccountID != profile.AccountID {
		return core.ErrUserNotFound
	}
	next := toPersisted(profile)
	// The report bookkeeping is not part of the editable profile.
	next.LastReportAt = current.LastReportAt
	return s.writeJSON(profileFile, next)
}

func (s *Store) GuardianProfiles(ctx context.Context) ([]store.ReportCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadPersisted()
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if p.ReportCadence == "" || (p.GuardianEmail == "" && p.GuardianPhone == "") {
		return nil, nil
	}

	c := store.ReportCandidate{Profile: fromPersisted(p)}
	if p.LastReportAt != "" {
		at, err := time.Parse(time.RFC3339, p.LastReportAt)
		if err != nil {
			return nil, fmt.Errorf("parse last report time: %w", err)
		}
		c.LastReport = at
	}
	return []store.ReportCandidate{c}, nil
}

func (s *Store) MarkReportSent(ctx context.Context, accountID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadPersisted()
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		return core.ErrUserNotFound
	}
	p.LastReportAt = at.UTC().Format(time.RFC3339)
	return s.writeJSON(profileFile, p)
}

func (s *Store) Profile(ctx context.Context, accountID string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.loadProfile()
	if err != nil {
		return core.UserProfile{}, err
	}
	if profile.AccountID != accountID {
		return core.UserProfile{}, core.ErrUserNotFound
	}
	return profile, nil
}

func (s *Store) AddTransaction(ctx context.Context, accountID string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.loadTransactions()
	if err != nil {
		return "", err
	}
	// Newest-first by insertion.
	txs = append([]core.Transaction{tx}, txs...)
	if err := s.saveTransactions(txs); err != nil {
		return "", err
	}
	s.publishLocked(accountID, txs)
	return tx.ID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, accountID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.loadTransactions()
	if err != nil {
		return err
	}
	found := false
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = tx
			found = true
			break
		}
	}
	if !found {
		return core.ErrTransactionMissing
	}
	if err := s.saveTransactions(txs); err != nil {
		return err
	}
	s.publishLocked(accountID, txs)
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, accountID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.loadTransactions()
	if err != nil {
		return err
	}
	kept := txs[:0]
	for _, t := range txs {
		if t.ID != txID {
			kept = append(kept, t)
		}
	}
	// Deleting an absent ID is a no-op, but the overwrite and re-emit still
	// happen so callers converge on the stored state.
	if err := s.saveTransactions(kept); err != nil {
		return err
	}
	s.publishLocked(accountID, kept)
	return nil
}

func (s *Store) Transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.loadTransactions()
	if err != nil {
		return nil, err
	}
	return sortedByDateDesc(txs), nil
}

func (s *Store) SubscribeTransactions(ctx context.Context, accountID string) (*store.Subscription, error) {
	s.mu.Lock()
	txs, err := s.loadTransactions()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sub := s.hub.Subscribe(ctx, accountID)
	s.publishLocked(accountID, txs)
	s.mu.Unlock()
	return sub, nil
}
