package file

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func register(t *testing.T, s *Store) core.UserProfile {
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

func TestLoginFailsClosedWithoutProfile(t *testing.T) {
	s := newStore(t)
	_, err := s.LoginUser(context.Background(), "12345678", "pw")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestRegisterRejectsSecondProfile(t *testing.T) {
	s := newStore(t)
	register(t, s)
	_, err := s.RegisterUser(context.Background(), core.UserProfile{Name: "Eve", Age: 25}, "pw")
	assert.ErrorIs(t, err, core.ErrUserExists)
}

func TestRegisterMinorRequiresGuardian(t *testing.T) {
	s := newStore(t)
	_, err := s.RegisterUser(context.Background(), core.UserProfile{Name: "Kim", Age: 16}, "pw")
	assert.ErrorIs(t, err, core.ErrGuardianRequired)

	// Registration did not proceed: login still fails closed.
	_, err = s.LoginUser(context.Background(), "12345678", "pw")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestTransactionCRUDSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()
	p := register(t, s)

	id1, err := s.AddTransaction(ctx, p.AccountID, tx("Lunch", "12.50", core.Expense, core.NewDate(2025, 6, 10)))
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, p.AccountID, tx("Salary", "200", core.Income, core.NewDate(2025, 6, 1)))
	require.NoError(t, err)

	// Reopen from the same directory: state is durable.
	s2, err := New(dir)
	require.NoError(t, err)
	txs, err := s2.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	// Sorted by date descending.
	assert.Equal(t, "Lunch", txs[0].Description)
	assert.Equal(t, "Salary", txs[1].Description)

	updated := txs[0]
	updated.Amount = dec("15")
	require.NoError(t, s2.UpdateTransaction(ctx, p.AccountID, updated))

	txs, err = s2.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	assert.True(t, txs[0].Amount.Equal(dec("15")))

	require.NoError(t, s2.DeleteTransaction(ctx, p.AccountID, id1))
	txs, err = s2.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestDeleteAbsentTransactionIsNoOp(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	_, err := s.AddTransaction(ctx, p.AccountID, tx("Lunch", "5", core.Expense, core.NewDate(2025, 6, 10)))
	require.NoError(t, err)

	require.NoError(t, s.DeleteTransaction(ctx, p.AccountID, "does-not-exist"))

	txs, err := s.Transactions(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "collection unchanged")
}

func TestUpdateMissingTransaction(t *testing.T) {
	s := newStore(t)
	p := register(t, s)
	err := s.UpdateTransaction(context.Background(), p.AccountID,
		core.Transaction{ID: "nope", Date: core.NewDate(2025, 1, 1), Description: "x", Amount: dec("1"), Kind: core.Expense})
	assert.True(t, errors.Is(err, core.ErrTransactionMissing))
}

func TestSubscriptionPushesAfterEveryWrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	sub, err := s.SubscribeTransactions(ctx, p.AccountID)
	require.NoError(t, err)
	defer sub.Cancel()

	// Initial snapshot at subscribe time.
	first := <-sub.C
	assert.Empty(t, first.Transactions)

	_, err = s.AddTransaction(ctx, p.AccountID, tx("Lunch", "5", core.Expense, core.NewDate(2025, 6, 10)))
	require.NoError(t, err)

	select {
	case snap := <-sub.C:
		require.Len(t, snap.Transactions, 1)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after local write")
	}
}

func TestLogoutStopsDeliveries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	sub, err := s.SubscribeTransactions(ctx, p.AccountID)
	require.NoError(t, err)
	<-sub.C // initial snapshot

	require.NoError(t, s.LogoutUser(ctx, p.AccountID))

	// A write racing with logout must not reach the closed subscription.
	_, err = s.AddTransaction(ctx, p.AccountID, tx("late", "5", core.Expense, core.NewDate(2025, 6, 10)))
	require.NoError(t, err)

	_, open := <-sub.C
	assert.False(t, open, "subscription closed on logout")
}

func TestUpdateUserProfile(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := register(t, s)

	p.Currency = "USD"
	p.AvatarURL = "/avatars/a.png"
	require.NoError(t, s.UpdateUserProfile(ctx, p))

	got, err := s.Profile(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "/avatars/a.png", got.AvatarURL)
}

func TestGuardianReportBookkeeping(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p, err := s.RegisterUser(ctx, core.UserProfile{
		Name:          "Kim",
		Age:           16,
		Guardian:      &core.Guardian{Email: "parent@example.com"},
		ReportCadence: core.ReportWeekly,
	}, "hunter2")
	require.NoError(t, err)

	candidates, err := s.GuardianProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, p.AccountID, candidates[0].Profile.AccountID)
	assert.True(t, candidates[0].LastReport.IsZero())

	sent := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkReportSent(ctx, p.AccountID, sent))

	// A profile edit must not lose the recorded send time.
	p.Currency = "EUR"
	require.NoError(t, s.UpdateUserProfile(ctx, p))

	candidates, err = s.GuardianProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].LastReport.Equal(sent))
}

func TestGuardianProfilesSkipsAdults(t *testing.T) {
	s := newStore(t)
	register(t, s)

	candidates, err := s.GuardianProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
