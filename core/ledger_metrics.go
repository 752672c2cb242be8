package core

import (
	"context"
)

// LedgerCounter is implemented by ledgers that can report how many refresh
// token ids they currently track.
type LedgerCounter interface {
	Tracked(ctx context.Context) (int64, error)
}

// Tracked scans the ledger keyspace. Entries expire with their tokens, so
// this approximates the number of refresh tokens rotated within one
// refresh lifetime.
func (l *RedisRefreshLedger) Tracked(ctx context.Context) (int64, error) {
	iter := l.client.Scan(ctx, 0, refreshLedgerPrefix+"*", 100).Iterator()
	var n int64
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *MemoryRefreshLedger) Tracked(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	var n int64
	for _, exp := range l.used {
		if now.Before(exp) {
			n++
		}
	}
	return n, nil
}
