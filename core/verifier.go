package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CredentialVerifier checks a username/password pair against the AccountStore.
type CredentialVerifier struct {
	accounts AccountStore
	hasher   PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(accounts AccountStore, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{accounts: accounts, hasher: hasher}
}

// Verify returns the stored principal when the password matches. Both
// failure reasons are AuthenticationFailure; the reason is kept on the
// error for logging.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*Principal, error) {
	p, err := v.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			v.compareDummy(password)
			return nil, NewAuthenticationFailure(ReasonNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := v.hasher.Compare(p.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, NewAuthenticationFailure(ReasonBadPassword)
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return p, nil
}

// compareDummy spends one hash comparison so unknown usernames take about
// as long as wrong passwords.
func (v *CredentialVerifier) compareDummy(password string) {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.hasher.Hash("projview-unknown-account")
	})
	if v.dummyHash != "" {
		_ = v.hasher.Compare(v.dummyHash, password)
	}
}
