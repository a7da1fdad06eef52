// Package adapters lifts concrete persistence layers to the store facade.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pocketbook/internal/core"
	"pocketbook/internal/id"
	"pocketbook/internal/storage"
	"pocketbook/internal/store"
)

// SQLiteStore implements store.Store over the SQLite repository. Writes are
// synchronous; after every successful write the adapter re-emits a full
// snapshot so local mode has the same push semantics as the remote backend.
type SQLiteStore struct {
	repo *storage.Repository
	hub  *store.Hub
}

func NewSQLiteStore(repo *storage.Repository) *SQLiteStore {
	return &SQLiteStore{repo: repo, hub: store.NewHub()}
}

func (s *SQLiteStore) Close() error {
	return s.repo.Close()
}

func (s *SQLiteStore) RegisterUser(ctx context.Context, profile core.UserProfile, password string) (core.UserProfile, error) {
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
	if err := s.repo.CreateUser(ctx, profile, string(hash)); err != nil {
		return core.UserProfile{}, err
	}
	return profile, nil
}

func (s *SQLiteStore) LoginUser(ctx context.Context, accountID, password string) (core.UserProfile, error) {
	hash, err := s.repo.CredentialHash(ctx, accountID)
	if err != nil {
		// Unknown account and wrong password are indistinguishable on purpose.
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.UserProfile{}, core.ErrInvalidCredentials
	}
	return s.repo.GetUser(ctx, accountID)
}

func (s *SQLiteStore) LogoutUser(ctx context.Context, accountID string) error {
	s.hub.CloseAccount(accountID)
	return nil
}

func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, profile core.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateUser(ctx, profile)
}

func (s *SQLiteStore) Profile(ctx context.Context, accountID string) (core.UserProfile, error) {
	return s.repo.GetUser(ctx, accountID)
}

func (s *SQLiteStore) AddTransaction(ctx context.Context, accountID string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.CreateTransaction(ctx, accountID, tx); err != nil {
		return "", err
	}
	s.publish(ctx, accountID)
	return tx.ID, nil
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, accountID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateTransaction(ctx, accountID, tx); err != nil {
		return err
	}
	s.publish(ctx, accountID)
	return nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, accountID, txID string) error {
	if err := s.repo.DeleteTransaction(ctx, accountID, txID); err != nil {
		return err
	}
	s.publish(ctx, accountID)
	return nil
}

func (s *SQLiteStore) Transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, accountID)
}

func (s *SQLiteStore) SubscribeTransactions(ctx context.Context, accountID string) (*store.Subscription, error) {
	txs, err := s.repo.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := s.hub.Subscribe(ctx, accountID)
	s.hub.Publish(accountID, store.Snapshot{AccountID: accountID, Transactions: txs})
	return sub, nil
}

func (s *SQLiteStore) GuardianProfiles(ctx context.Context) ([]store.ReportCandidate, error) {
	return s.repo.GuardianProfiles(ctx)
}

func (s *SQLiteStore) MarkReportSent(ctx context.Context, accountID string, at time.Time) error {
	return s.repo.MarkReportSent(ctx, accountID, at)
}

// publish re-reads the collection and pushes it to subscribers. A read error
// here only costs a push; the write that triggered it already succeeded.
func (s *SQLiteStore) publish(ctx context.Context, accountID string) {
	if s.hub.Subscribers(accountID) == 0 {
		return
	}
	txs, err := s.repo.ListTransactions(ctx, accountID)
	if err != nil {
		return
	}
	s.hub.Publish(accountID, store.Snapshot{AccountID: accountID, Transactions: txs})
}
