package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backends are the stateful dependencies selected by STORE_DRIVER.
type Backends struct {
	Driver   string
	Accounts AccountStore
	Ledger   RefreshLedger

	pool  *pgxpool.Pool
	redis *redis.Client
}

// NewMemoryBackends returns in-process backends for tests and local runs.
func NewMemoryBackends() *Backends {
	return &Backends{
		Driver:   StoreDriverMemory,
		Accounts: NewMemoryAccountStore(),
		Ledger:   NewMemoryRefreshLedger(),
	}
}

// OpenBackends connects the configured store and ledger. With the postgres
// driver it applies migrations first when RUN_MIGRATIONS is set.
func OpenBackends(ctx context.Context, cfg Config, logger *slog.Logger) (*Backends, error) {
	if cfg.StoreDriver == StoreDriverMemory {
		logger.WarnContext(ctx, "using in-memory store; accounts are lost on restart")
		return NewMemoryBackends(), nil
	}

	pool, err := Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	rdb, err := NewRedisClient(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &Backends{
		Driver:   StoreDriverPostgres,
		Accounts: NewPgAccountStore(pool),
		Ledger:   NewRedisRefreshLedger(rdb),
		pool:     pool,
		redis:    rdb,
	}, nil
}

func (b *Backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// App wires the services over a set of backends.
type App struct {
	Config       Config
	Backends     *Backends
	Logger       *slog.Logger
	Hasher       PasswordHasher
	Tokens       *TokenManager
	Auth         *AuthService
	Registration *RegistrationService
	Authorities  *AuthorityManager
}

func NewApp(cfg Config, backends *Backends, logger *slog.Logger, opts ...TokenManagerOption) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tokens, err := NewTokenManagerFromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	hasher := NewBcryptHasher(cfg.BcryptCost)
	verifier := NewCredentialVerifier(backends.Accounts, hasher)
	return &App{
		Config:       cfg,
		Backends:     backends,
		Logger:       logger,
		Hasher:       hasher,
		Tokens:       tokens,
		Auth:         NewAuthService(verifier, backends.Accounts, tokens, backends.Ledger, logger),
		Registration: NewRegistrationService(backends.Accounts, hasher, tokens, logger),
		Authorities:  NewAuthorityManager(backends.Accounts, logger),
	}, nil
}
