package core

import (
	"context"
	"errors"
	"log/slog"
)

// AuthorityManager grants, revokes and lists roles on stored principals.
// Tokens already issued keep the authorities they were signed with.
type AuthorityManager struct {
	accounts AccountStore
	logger   *slog.Logger
}

func NewAuthorityManager(accounts AccountStore, logger *slog.Logger) *AuthorityManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorityManager{accounts: accounts, logger: logger}
}

// AddAuthority is idempotent: granting a held role leaves the set unchanged.
func (m *AuthorityManager) AddAuthority(ctx context.Context, username string, role Role) (RoleSet, error) {
	role, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	var changed bool
	roles, err := m.accounts.UpdateAuthorities(ctx, username, func(s RoleSet) {
		changed = s.Add(role)
	})
	if err != nil {
		return nil, m.notFound(username, err)
	}
	if changed {
		m.logger.InfoContext(ctx, "authority granted", "username", username, "role", role)
	}
	return roles, nil
}

// RemoveAuthority is a no-op when the role is absent.
func (m *AuthorityManager) RemoveAuthority(ctx context.Context, username string, role Role) (RoleSet, error) {
	role, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	var changed bool
	roles, err := m.accounts.UpdateAuthorities(ctx, username, func(s RoleSet) {
		changed = s.Remove(role)
	})
	if err != nil {
		return nil, m.notFound(username, err)
	}
	if changed {
		m.logger.InfoContext(ctx, "authority revoked", "username", username, "role", role)
	}
	return roles, nil
}

func (m *AuthorityManager) ListAuthorities(ctx context.Context, username string) (RoleSet, error) {
	p, err := m.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, m.notFound(username, err)
	}
	return p.Authorities, nil
}

func (m *AuthorityManager) notFound(username string, err error) error {
	if errors.Is(err, ErrAccountNotFound) {
		return NewPrincipalNotFound(username)
	}
	return err
}
