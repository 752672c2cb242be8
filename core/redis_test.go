package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisLedger(t *testing.T) (*miniredis.Miniredis, *RedisRefreshLedger) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisRefreshLedger(client)
}

func TestRedisRefreshLedger_Consume(t *testing.T) {
	mr, ledger := newMiniredisLedger(t)
	ctx := context.Background()

	first, err := ledger.Consume(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.Consume(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again)

	ttl := mr.TTL(refreshLedgerPrefix + "jti-1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	n, err := ledger.Tracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// entries disappear with the token's lifetime
	mr.FastForward(2 * time.Hour)
	after, err := ledger.Consume(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, after)
}

func TestRedisRefreshLedger_PastExpiryStillRecorded(t *testing.T) {
	mr, ledger := newMiniredisLedger(t)

	ok, err := ledger.Consume(context.Background(), "jti-old", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(refreshLedgerPrefix+"jti-old"))
}

func TestRefresh_ReplayDetectedThroughRedis(t *testing.T) {
	_, ledger := newMiniredisLedger(t)
	backends := NewMemoryBackends()
	backends.Ledger = ledger
	app, err := NewApp(testConfig(), backends, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	login, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	_, err = app.Auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	_, err = app.Auth.Refresh(ctx, login.RefreshToken)
	assert.Equal(t, ReasonReused, ReasonOf(err))
	require.NoError(t, app.Backends.Ledger.Ping(ctx))
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient("")
	assert.Error(t, err)

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)
}

func TestMemoryRefreshLedger(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRefreshLedger()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Consume(ctx, "a", now.Add(time.Minute))
	assert.True(t, ok)
	ok, _ = l.Consume(ctx, "a", now.Add(time.Minute))
	assert.False(t, ok)

	n, _ := l.Tracked(ctx)
	assert.Equal(t, int64(1), n)

	now = now.Add(2 * time.Minute)
	n, _ = l.Tracked(ctx)
	assert.Equal(t, int64(0), n)
	ok, _ = l.Consume(ctx, "a", now.Add(time.Minute))
	assert.True(t, ok)
}

var _ RefreshLedger = (*RedisRefreshLedger)(nil)
