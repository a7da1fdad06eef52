package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/core"
)

func snap(accountID string, n int) Snapshot {
	txs := make([]core.Transaction, n)
	return Snapshot{AccountID: accountID, Transactions: txs}
}

func TestHubPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(context.Background(), "12345678")
	defer sub.Cancel()

	h.Publish("12345678", snap("12345678", 2))

	select {
	case got := <-sub.C:
		assert.Len(t, got.Transactions, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestHubLatestSnapshotWins(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(context.Background(), "12345678")
	defer sub.Cancel()

	// Two publishes before the subscriber reads: the first is superseded.
	h.Publish("12345678", snap("12345678", 1))
	h.Publish("12345678", snap("12345678", 3))

	got := <-sub.C
	assert.Len(t, got.Transactions, 3)
}

func TestHubAccountIsolation(t *testing.T) {
	h := NewHub()
	a := h.Subscribe(context.Background(), "11111111")
	defer a.Cancel()
	b := h.Subscribe(context.Background(), "22222222")
	defer b.Cancel()

	h.Publish("11111111", snap("11111111", 1))

	select {
	case <-a.C:
	case <-time.After(time.Second):
		t.Fatal("subscriber a got nothing")
	}
	select {
	case <-b.C:
		t.Fatal("subscriber b must not see account a's snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Subscribe(ctx, "12345678")

	cancel()

	// The channel must close; a late publish must not panic or deliver.
	require.Eventually(t, func() bool {
		return h.Subscribers("12345678") == 0
	}, time.Second, 5*time.Millisecond)

	h.Publish("12345678", snap("12345678", 1))

	_, open := <-sub.C
	assert.False(t, open, "channel should be closed after cancel")
}

func TestHubCloseAccount(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(context.Background(), "12345678")

	h.CloseAccount("12345678")

	_, open := <-sub.C
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("12345678"))

	// Cancelling afterwards must be harmless.
	sub.Cancel()
}
