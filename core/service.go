package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	IsAdmin      bool   `json:"isAdmin"`
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is returned by a successful refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService orchestrates credential verification and token issuance.
type AuthService struct {
	verifier *CredentialVerifier
	accounts AccountStore
	tokens   *TokenManager
	ledger   RefreshLedger
	logger   *slog.Logger
}

func NewAuthService(verifier *CredentialVerifier, accounts AccountStore, tokens *TokenManager, ledger RefreshLedger, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{verifier: verifier, accounts: accounts, tokens: tokens, ledger: ledger, logger: logger}
}

// Login verifies credentials and issues an access/refresh pair. IsAdmin
// reflects the authorities at this instant.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	p, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if IsKind(err, FailureAuthentication) {
			s.logger.WarnContext(ctx, "login rejected", "username", username, "reason", ReasonOf(err))
		}
		return LoginResult{}, err
	}
	access, err := s.tokens.GenerateAccessToken(p)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(p)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.InfoContext(ctx, "login succeeded", "username", p.Username, "kind", p.Kind, "admin", p.IsAdmin())
	return LoginResult{AccessToken: access.Value, IsAdmin: p.IsAdmin(), RefreshToken: refresh.Value}, nil
}

// Refresh exchanges a refresh token for a new pair. The access token
// carries the principal's authorities as stored now, not at login. Each
// refresh token is accepted once; a replay fails with ReasonReused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh rejected", "reason", ReasonOf(err))
		return TokenPair{}, err
	}
	p, err := s.accounts.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, NewPrincipalNotFound(claims.Subject)
		}
		return TokenPair{}, fmt.Errorf("find account: %w", err)
	}
	first, err := s.ledger.Consume(ctx, claims.ID, claims.Expiry())
	if err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}
	if !first {
		s.logger.WarnContext(ctx, "refresh token replayed", "username", claims.Subject, "jti", claims.ID)
		return TokenPair{}, NewTokenFailure(ReasonReused, nil)
	}
	access, err := s.tokens.GenerateAccessToken(p)
	if err != nil {
		return TokenPair{}, err
	}
	next, err := s.tokens.GenerateRefreshToken(p)
	if err != nil {
		return TokenPair{}, err
	}
	s.logger.InfoContext(ctx, "token refreshed", "username", p.Username)
	return TokenPair{AccessToken: access.Value, RefreshToken: next.Value}, nil
}

// Authenticate validates an access token for the request gate.
func (s *AuthService) Authenticate(token string) (*Claims, error) {
	return s.tokens.Validate(token)
}
