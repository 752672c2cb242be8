package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RegistrationResult carries the access token minted for a new account.
type RegistrationResult struct {
	AccessToken string `json:"accessToken"`
}

// RegistrationService creates and deletes principals.
type RegistrationService struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   *TokenManager
	logger   *slog.Logger
}

func NewRegistrationService(accounts AccountStore, hasher PasswordHasher, tokens *TokenManager, logger *slog.Logger) *RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{accounts: accounts, hasher: hasher, tokens: tokens, logger: logger}
}

// RegisterUser fails with DuplicateUsername when a user record already has
// the username. Admin records with the same username do not conflict.
func (s *RegistrationService) RegisterUser(ctx context.Context, req RegisterRequest) (RegistrationResult, error) {
	if err := req.Validate(); err != nil {
		return RegistrationResult{}, err
	}
	exists, err := s.accounts.ExistsUser(ctx, req.Username)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return RegistrationResult{}, NewDuplicateUsername(req.Username)
	}
	return s.register(ctx, req, KindUser)
}

// RegisterAdmin performs no uniqueness check; several admin records may
// share a username.
func (s *RegistrationService) RegisterAdmin(ctx context.Context, req RegisterRequest) (RegistrationResult, error) {
	if err := req.Validate(); err != nil {
		return RegistrationResult{}, err
	}
	return s.register(ctx, req, KindAdmin)
}

func (s *RegistrationService) register(ctx context.Context, req RegisterRequest, kind AccountKind) (RegistrationResult, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("hash password: %w", err)
	}
	p, err := s.accounts.Create(ctx, &Principal{
		Username:     req.Username,
		PasswordHash: hash,
		Kind:         kind,
		Authorities:  kind.DefaultAuthorities(),
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, ErrUsernameTaken) {
			return RegistrationResult{}, NewDuplicateUsername(req.Username)
		}
		return RegistrationResult{}, fmt.Errorf("create account: %w", err)
	}
	access, err := s.tokens.GenerateAccessToken(p)
	if err != nil {
		return RegistrationResult{}, err
	}
	s.logger.InfoContext(ctx, "account registered", "username", p.Username, "kind", kind, "id", p.ID)
	return RegistrationResult{AccessToken: access.Value}, nil
}

// DeleteAccount removes the record the access token's subject resolves to.
func (s *RegistrationService) DeleteAccount(ctx context.Context, accessToken string) error {
	username, err := s.tokens.UsernameFromToken(accessToken)
	if err != nil {
		return err
	}
	p, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return NewPrincipalNotFound(username)
		}
		return fmt.Errorf("find account: %w", err)
	}
	if err := s.accounts.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return NewPrincipalNotFound(username)
		}
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.InfoContext(ctx, "account deleted", "username", username, "kind", p.Kind, "id", p.ID)
	return nil
}

// ListAccounts returns a page of accounts and the total count.
func (s *RegistrationService) ListAccounts(ctx context.Context, page, perPage int) ([]AccountSummary, int, error) {
	items, total, err := s.accounts.List(ctx, page, perPage)
	if errors.Is(err, errInvalidPagination) {
		return nil, 0, NewValidationFailure("page or per_page out of range")
	}
	return items, total, err
}
