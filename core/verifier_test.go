package core

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

type failingStore struct {
	AccountStore
	err error
}

func (s failingStore) FindByUsername(context.Context, string) (*Principal, error) {
	return nil, s.err
}

func TestCredentialVerifier(t *testing.T) {
	store := NewMemoryAccountStore()
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if _, err := store.Create(context.Background(), &Principal{Username: "alice", PasswordHash: hash, Kind: KindUser, Authorities: NewRoleSet(RoleUser)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	v := NewCredentialVerifier(store, hasher)

	tests := []struct {
		name     string
		username string
		password string
		reason   FailureReason
	}{
		{name: "match", username: "alice", password: "correct-horse"},
		{name: "wrong password", username: "alice", password: "battery-staple", reason: ReasonBadPassword},
		{name: "unknown user", username: "ghost", password: "correct-horse", reason: ReasonNotFound},
		{name: "empty password", username: "alice", password: "", reason: ReasonBadPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := v.Verify(context.Background(), tt.username, tt.password)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("Verify error: %v", err)
				}
				if p.Username != "alice" || !p.Authorities.Has(RoleUser) {
					t.Fatalf("unexpected principal: %+v", p)
				}
				return
			}
			if !IsKind(err, FailureAuthentication) || ReasonOf(err) != tt.reason {
				t.Fatalf("expected authentication failure %s, got %v", tt.reason, err)
			}
			var ae *AuthError
			errors.As(err, &ae)
			if ae.Status() != 401 || ae.Code() != "INVALID_CREDENTIALS" {
				t.Fatalf("unexpected status/code: %d %s", ae.Status(), ae.Code())
			}
		})
	}
}

func TestCredentialVerifier_StoreErrorIsNotAuthenticationFailure(t *testing.T) {
	boom := errors.New("connection refused")
	v := NewCredentialVerifier(failingStore{err: boom}, NewBcryptHasher(bcrypt.MinCost))

	_, err := v.Verify(context.Background(), "alice", "whatever")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if IsKind(err, FailureAuthentication) {
		t.Fatalf("store outage must not look like bad credentials")
	}
}
