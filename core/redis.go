package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshLedger records refresh-token IDs that have already been exchanged.
type RefreshLedger interface {
	// Consume marks tokenID as used until expiresAt and reports whether this
	// was the first use.
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	Ping(ctx context.Context) error
}

const refreshLedgerPrefix = "projview:refresh:used:"

// RedisRefreshLedger implements RefreshLedger with SET NX and a TTL equal to
// the token's remaining lifetime, so entries vanish once the token could not
// validate anyway.
type RedisRefreshLedger struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func NewRedisRefreshLedger(client *redis.Client) *RedisRefreshLedger {
	return &RedisRefreshLedger{client: client, now: time.Now}
}

func (l *RedisRefreshLedger) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return l.client.SetNX(ctx, refreshLedgerPrefix+tokenID, l.now().Unix(), ttl).Result()
}

func (l *RedisRefreshLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// MemoryRefreshLedger is the in-process RefreshLedger used with STORE_DRIVER=memory.
type MemoryRefreshLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryRefreshLedger() *MemoryRefreshLedger {
	return &MemoryRefreshLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRefreshLedger) Consume(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, exp := range l.used {
		if !now.Before(exp) {
			delete(l.used, id)
		}
	}
	if _, seen := l.used[tokenID]; seen {
		return false, nil
	}
	l.used[tokenID] = expiresAt
	return true, nil
}

func (l *MemoryRefreshLedger) Ping(context.Context) error { return nil }
