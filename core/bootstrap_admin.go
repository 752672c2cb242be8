package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// BootstrapAdmin creates an initial admin account when no principal holds
// ADMIN. It is idempotent: if an admin already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, accounts AccountStore, hasher PasswordHasher, cfg Config, logger *slog.Logger) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	has, err := accounts.HasAdmin(ctx)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if has {
		return nil
	}

	username := firstNonEmpty(cfg.BootstrapAdminUsername, "admin")
	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := accounts.Create(ctx, &Principal{
		Username:     username,
		PasswordHash: hash,
		Kind:         KindAdmin,
		Authorities:  KindAdmin.DefaultAuthorities(),
	}); err != nil {
		return fmt.Errorf("create initial admin: %w", err)
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		logger.InfoContext(ctx, "initial admin created", "username", username, "password_file", cfg.InitialAdminPasswordPath)
	} else {
		// no file configured: the password only ever appears here
		logger.WarnContext(ctx, "initial admin created", "username", username, "password", password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
