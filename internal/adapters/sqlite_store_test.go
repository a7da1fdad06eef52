package adapters

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/core"
	"pocketbook/internal/storage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "pocketbook.db"))
	require.NoError(t, err)
	s := NewSQLiteStore(repo)
	t.Cleanup(func() { s.Close() })
	return s
}

func register(t *testing.T, s *SQLiteStore) core.UserProfile {
	t.Helper()
	p, err := s.RegisterUser(context.Background(), core.UserProfile{Name: "Ada", Age: 30}, "hunter2")
	require.NoError(t, err)
	require.Len(t, p.AccountID, 8)
	return p
}

func tx(desc, amount string, kind core.Kind, date core.Date) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: dec(amount), Kind: kind}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := register(t, s)

	got, err := s.LoginUser(ctx, p.AccountID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = s.LoginUser(ctx, p.AccountID, "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = s.LoginUser(ctx, "00000000", "hunter2")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestRegisterRejectsMinorWithoutGuardian(t *testing.T) {
	s := newStore(t)

	_, err := s.RegisterUser(context.Background(), core.UserProfile{Name: "Kim", Age: 16}, "pw")
	assert.ErrorIs(t, err, core.ErrGuardianRequired)
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	id1, err := s.AddTransaction(ctx, p.AccountID, tx("Lunch", "12.50", core.Expense, core.NewDate(2026, 3, 2)))
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, p.AccountID, tx("Salary", "2000", core.Income, core.NewDate(2026, 3, 1)))
	require.NoError(t, err)

	txs, err := s.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	// Date descending.
	assert.Equal(t, "Lunch", txs[0].Description)
	assert.Equal(t, "Salary", txs[1].Description)
	assert.True(t, txs[0].Amount.Equal(dec("12.50")))

	updated := txs[0]
	updated.Description = "Team lunch"
	updated.Amount = dec("14.00")
	require.NoError(t, s.UpdateTransaction(ctx, p.AccountID, updated))

	txs, err = s.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Team lunch", txs[0].Description)

	require.NoError(t, s.DeleteTransaction(ctx, p.AccountID, id1))
	txs, err = s.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	// Deleting an absent ID is a no-op.
	assert.NoError(t, s.DeleteTransaction(ctx, p.AccountID, "missing"))
}

func TestUpdateMissingTransaction(t *testing.T) {
	s := newStore(t)
	p := register(t, s)

	ghost := tx("Ghost", "1.00", core.Expense, core.NewDate(2026, 3, 2))
	ghost.ID = "does-not-exist"
	err := s.UpdateTransaction(context.Background(), p.AccountID, ghost)
	assert.ErrorIs(t, err, core.ErrTransactionMissing)
}

func TestSubscribePushesAfterWrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	sub, err := s.SubscribeTransactions(ctx, p.AccountID)
	require.NoError(t, err)
	defer sub.Cancel()

	initial := <-sub.C
	assert.Empty(t, initial.Transactions)

	_, err = s.AddTransaction(ctx, p.AccountID, tx("Coffee", "3.20", core.Expense, core.NewDate(2026, 3, 2)))
	require.NoError(t, err)

	select {
	case snap := <-sub.C:
		require.Len(t, snap.Transactions, 1)
		assert.Equal(t, "Coffee", snap.Transactions[0].Description)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestLogoutStopsDeliveries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	sub, err := s.SubscribeTransactions(ctx, p.AccountID)
	require.NoError(t, err)
	<-sub.C

	require.NoError(t, s.LogoutUser(ctx, p.AccountID))

	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestProfileUpdate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	p.Name = "Ada Lovelace"
	p.Currency = "EUR"
	require.NoError(t, s.UpdateUserProfile(ctx, p))

	got, err := s.Profile(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "EUR", got.Currency)
}
