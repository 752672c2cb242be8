package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates access tokens from refresh tokens so one cannot be
// presented in place of the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the JWT payload. Refresh tokens carry no authorities.
type Claims struct {
	jwt.RegisteredClaims
	Authorities []Role    `json:"authorities,omitempty"`
	Type        TokenType `json:"typ"`
}

func (c *Claims) Username() string { return c.Subject }

func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *Claims) HasAuthority(r Role) bool {
	for _, a := range c.Authorities {
		if a == r {
			return true
		}
	}
	return false
}

// IssuedToken is a signed token plus the identifiers callers need to track it.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokenManagerOption func(*TokenManager)

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

func WithIssuer(issuer string) TokenManagerOption {
	return func(m *TokenManager) { m.issuer = issuer }
}

// WithRefreshKey signs refresh tokens with a separate key.
func WithRefreshKey(key []byte) TokenManagerOption {
	return func(m *TokenManager) {
		if len(key) > 0 {
			m.refreshKey = key
		}
	}
}

func NewTokenManager(accessKey []byte, accessTTL, refreshTTL time.Duration, opts ...TokenManagerOption) (*TokenManager, error) {
	if len(accessKey) == 0 {
		return nil, errors.New("token manager: signing key is empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token manager: token lifetimes must be positive")
	}
	m := &TokenManager{
		accessKey:  accessKey,
		refreshKey: accessKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NewTokenManagerFromConfig builds a TokenManager from the JWT_* settings.
func NewTokenManagerFromConfig(cfg Config, opts ...TokenManagerOption) (*TokenManager, error) {
	base := []TokenManagerOption{
		WithIssuer(cfg.JWTIssuer),
		WithRefreshKey([]byte(cfg.RefreshSigningKey)),
	}
	return NewTokenManager([]byte(cfg.JWTSigningKey), cfg.AccessTokenTTL, cfg.RefreshTokenTTL, append(base, opts...)...)
}

// RefreshTTL is the lifetime of refresh tokens this manager issues.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// GenerateAccessToken embeds the principal's current authorities.
func (m *TokenManager) GenerateAccessToken(p *Principal) (IssuedToken, error) {
	return m.issue(p.Username, TokenTypeAccess, p.Authorities.Sorted(), m.accessTTL, m.accessKey)
}

func (m *TokenManager) GenerateRefreshToken(p *Principal) (IssuedToken, error) {
	return m.issue(p.Username, TokenTypeRefresh, nil, m.refreshTTL, m.refreshKey)
}

func (m *TokenManager) issue(subject string, typ TokenType, authorities []Role, ttl time.Duration, key []byte) (IssuedToken, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Authorities: authorities,
		Type:        typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Value: signed, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate verifies an access token and returns its claims.
func (m *TokenManager) Validate(token string) (*Claims, error) {
	return m.parse(token, TokenTypeAccess, m.accessKey)
}

func (m *TokenManager) ValidateRefresh(token string) (*Claims, error) {
	return m.parse(token, TokenTypeRefresh, m.refreshKey)
}

// UsernameFromToken returns the subject of a valid access token.
func (m *TokenManager) UsernameFromToken(token string) (string, error) {
	claims, err := m.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *TokenManager) parse(raw string, want TokenType, key []byte) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, NewTokenFailure(ReasonExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, NewTokenFailure(ReasonSignatureInvalid, err)
		default:
			return nil, NewTokenFailure(ReasonMalformed, err)
		}
	}
	if claims.Type != want {
		return nil, NewTokenFailure(ReasonMalformed, fmt.Errorf("expected %s token, got %q", want, claims.Type))
	}
	if claims.Subject == "" {
		return nil, NewTokenFailure(ReasonMalformed, errors.New("token has no subject"))
	}
	return claims, nil
}
