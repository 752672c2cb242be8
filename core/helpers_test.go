package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "test-signing-key-0123456789abcdefghij"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StoreDriver = StoreDriverMemory
	cfg.JWTSigningKey = testSigningKey
	cfg.BcryptCost = bcrypt.MinCost
	cfg.BootstrapAdminEnabled = false
	cfg.InitialAdminPasswordPath = ""
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg Config, opts ...TokenManagerOption) *App {
	t.Helper()
	app, err := NewApp(cfg, NewMemoryBackends(), discardLogger(), opts...)
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	return app
}

func mustRegisterUser(t *testing.T, app *App, username, password string) string {
	t.Helper()
	res, err := app.Registration.RegisterUser(context.Background(), RegisterRequest{Username: username, Password: password})
	if err != nil {
		t.Fatalf("RegisterUser(%s) error: %v", username, err)
	}
	return res.AccessToken
}

func mustRegisterAdmin(t *testing.T, app *App, username, password string) string {
	t.Helper()
	res, err := app.Registration.RegisterAdmin(context.Background(), RegisterRequest{Username: username, Password: password})
	if err != nil {
		t.Fatalf("RegisterAdmin(%s) error: %v", username, err)
	}
	return res.AccessToken
}
