package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projview-api/core"
)

func main() {
	cfg, err := core.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	logger = logger.With("instance", core.NewInstanceID())

	backends, err := core.OpenBackends(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open backends: %v", err)
	}
	defer backends.Close()

	app, err := core.NewApp(cfg, backends, logger)
	if err != nil {
		log.Fatalf("failed to build services: %v", err)
	}

	if err := core.BootstrapAdmin(ctx, backends.Accounts, app.Hasher, cfg, logger); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           core.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting api server", "addr", srv.Addr, "store", backends.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	logger.Info("api server stopped")
}
