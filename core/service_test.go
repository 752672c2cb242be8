package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_IsAdminTracksAuthorities(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	res, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, res.IsAdmin)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	_, err = app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)

	res, err = app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, res.IsAdmin)

	claims, err := app.Tokens.Validate(res.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Role{RoleAdmin, RoleUser}, claims.Authorities)
}

func TestLogin_ShortPasswordScenario(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	_, err := app.Registration.RegisterUser(ctx, RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	res, err := app.Auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.False(t, res.IsAdmin)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	_, err = app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)
	res, err = app.Auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, res.IsAdmin)
}

func TestLogin_Failures(t *testing.T) {
	app := newTestApp(t, testConfig())
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	_, err := app.Auth.Login(context.Background(), "ghost", "s3cret-pass")
	require.Error(t, err)
	assert.True(t, IsKind(err, FailureAuthentication))
	assert.Equal(t, ReasonNotFound, ReasonOf(err))

	_, err = app.Auth.Login(context.Background(), "alice", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, ReasonBadPassword, ReasonOf(err))
}

func TestRefresh_UsesCurrentAuthorities(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	login, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	_, err = app.Authorities.AddAuthority(ctx, "alice", RoleAdmin)
	require.NoError(t, err)

	// the access token from login keeps its original authorities
	old, err := app.Tokens.Validate(login.AccessToken)
	require.NoError(t, err)
	assert.False(t, old.HasAuthority(RoleAdmin))

	pair, err := app.Auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := app.Tokens.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.True(t, claims.HasAuthority(RoleAdmin))
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	mustRegisterUser(t, app, "alice", "s3cret-pass")

	login, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	first, err := app.Auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, first.RefreshToken)

	_, err = app.Auth.Refresh(ctx, login.RefreshToken)
	require.Error(t, err)
	assert.True(t, IsKind(err, FailureToken))
	assert.Equal(t, ReasonReused, ReasonOf(err))

	_, err = app.Auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Failures(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	access := mustRegisterUser(t, app, "alice", "s3cret-pass")

	_, err := app.Auth.Refresh(ctx, access)
	assert.Equal(t, ReasonMalformed, ReasonOf(err), "access token must not refresh")

	_, err = app.Auth.Refresh(ctx, "garbage")
	assert.True(t, IsKind(err, FailureToken))

	login, err := app.Auth.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, app.Registration.DeleteAccount(ctx, login.AccessToken))

	_, err = app.Auth.Refresh(ctx, login.RefreshToken)
	assert.True(t, IsKind(err, FailurePrincipalNotFound), "got %v", err)
}
