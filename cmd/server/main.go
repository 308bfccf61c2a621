package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/honyaku/external/config"
	"github.com/foxseedlab/honyaku/external/provider"
	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/httpapi"
	"github.com/foxseedlab/honyaku/internal/logging"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	logging.Init(logging.Options{Development: cfg.IsDevelopment(), Format: cfg.LogFormat})
	slog.Info("startup: configuration loaded", "env", cfg.Env, "provider", cfg.Provider)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runServer(cfg, injector)
}

func mustLoadConfig() *config.ServerConfig {
	if err := configloader.LoadDotEnv(); err != nil {
		slog.Error("dotenv load failed", "error", err)
		os.Exit(1)
	}
	cfg, err := configloader.LoadServer()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupDI(cfg *config.ServerConfig) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	provider.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.ServerConfig, injector do.Injector) {
	handler, err := do.Invoke[http.Handler](injector)
	if err != nil {
		slog.Error("failed to resolve http handler", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
}
