package cloud

import (
	"context"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/store"
)

// watch polls the transactions table while the subscription context is alive
// and publishes a snapshot whenever the collection changed since the last
// poll. Poll errors are logged and retried on the next tick.
func (s *Store) watch(ctx context.Context, accountID string, last []core.Transaction) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.hub.Subscribers(accountID) == 0 {
			return
		}

		txs, err := s.Transactions(ctx, accountID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WarnContext(ctx, "Poll failed", "error", err, "account_id", accountID)
			continue
		}

		if sameTransactions(last, txs) {
			continue
		}
		last = txs
		s.hub.Publish(accountID, store.Snapshot{AccountID: accountID, Transactions: txs})
	}
}

func sameTransactions(a, b []core.Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			!a[i].Date.Equal(b[i].Date) ||
			a[i].Description != b[i].Description ||
			!a[i].Amount.Equal(b[i].Amount) ||
			a[i].Kind != b[i].Kind {
			return false
		}
	}
	return true
}
