package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorityManager_Idempotent(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	roles, err := app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)
	again, err := app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, roles.Sorted(), again.Sorted())
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, again.Sorted())

	roles, err = app.Authorities.RemoveAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleUser}, roles.Sorted())

	roles, err = app.Authorities.RemoveAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleUser}, roles.Sorted())

	listed, err := app.Authorities.ListAuthorities(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleUser}, listed.Sorted())
}

func TestAuthorityManager_Errors(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	_, err := app.Authorities.AddAuthority(ctx, "ghost", RoleAdmin)
	assert.True(t, IsKind(err, FailurePrincipalNotFound))

	_, err = app.Authorities.ListAuthorities(ctx, "ghost")
	assert.True(t, IsKind(err, FailurePrincipalNotFound))

	_, err = app.Authorities.AddAuthority(ctx, "alice", Role("ROOT"))
	assert.True(t, IsKind(err, FailureValidation))
}

func TestAuthorityManager_CanonicalRoleNames(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	roles, err := app.Authorities.AddAuthority(ctx, "alice", Role("admin"))
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, roles.Sorted())

	res, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, res.IsAdmin)

	roles, err = app.Authorities.RemoveAuthority(ctx, "alice", Role("Admin"))
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleUser}, roles.Sorted())
}

func TestAuthorityManager_ConcurrentChangesAreNotLost(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
		}()
		go func() {
			defer wg.Done()
			_, _ = app.Authorities.RemoveAuthority(ctx, "alice", RoleUser)
		}()
	}
	wg.Wait()

	roles, err := app.Authorities.ListAuthorities(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin}, roles.Sorted())
}
