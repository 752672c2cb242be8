package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccountStore_Resolution(t *testing.T) {
	s := NewMemoryAccountStore()
	ctx := context.Background()

	a1, err := s.Create(ctx, &Principal{Username: "eve", Kind: KindAdmin, Authorities: KindAdmin.DefaultAuthorities()})
	require.NoError(t, err)
	_, err = s.Create(ctx, &Principal{Username: "eve", Kind: KindAdmin, Authorities: KindAdmin.DefaultAuthorities()})
	require.NoError(t, err)

	p, err := s.FindByUsername(ctx, "eve")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, p.ID, "oldest admin wins without a user record")

	u, err := s.Create(ctx, &Principal{Username: "eve", Kind: KindUser, Authorities: KindUser.DefaultAuthorities()})
	require.NoError(t, err)
	p, err = s.FindByUsername(ctx, "eve")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID, "user record wins")

	_, err = s.Create(ctx, &Principal{Username: "eve", Kind: KindUser})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	exists, err := s.ExistsUser(ctx, "eve")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 999), ErrAccountNotFound)
}

func TestMemoryAccountStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryAccountStore()
	ctx := context.Background()
	_, err := s.Create(ctx, &Principal{Username: "eve", Kind: KindUser, Authorities: NewRoleSet(RoleUser)})
	require.NoError(t, err)

	p, err := s.FindByUsername(ctx, "eve")
	require.NoError(t, err)
	p.Authorities.Add(RoleAdmin)

	again, err := s.FindByUsername(ctx, "eve")
	require.NoError(t, err)
	assert.False(t, again.Authorities.Has(RoleAdmin))
}
