package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	configloader "github.com/foxseedlab/honyaku/external/config"
	recognitionimpl "github.com/foxseedlab/honyaku/external/recognition"
	synthesisimpl "github.com/foxseedlab/honyaku/external/synthesis"
	translationimpl "github.com/foxseedlab/honyaku/external/translation"
	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/console"
	"github.com/foxseedlab/honyaku/internal/logging"
	"github.com/foxseedlab/honyaku/internal/session"
	"github.com/samber/do/v2"
)

func main() {
	cfg := mustLoadConfig()
	// Logs go to stderr so they do not interleave with the console on stdout.
	logging.Init(logging.Options{Development: cfg.IsDevelopment(), Format: cfg.LogFormat, Output: os.Stderr})
	slog.Info("startup: configuration loaded", "env", cfg.Env, "source_lang", cfg.SourceLanguage, "target_lang", cfg.TargetLanguage)

	ui := console.New(nil, os.Stdout)
	injector := setupDI(cfg, ui)

	controller, err := do.Invoke[*session.Controller](injector)
	if err != nil {
		slog.Error("failed to resolve session controller", "error", err)
		os.Exit(1)
	}
	defer controller.Close()
	ui.Attach(controller)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RecognitionEnabled() {
		if err := controller.Start(); err != nil {
			slog.Warn("recognition did not start", "error", err)
		}
	}
	_ = ui.Execute("/help")
	ui.Render(controller.Snapshot())

	if err := ui.Run(ctx, os.Stdin); err != nil {
		slog.Error("console input failed", "error", err)
	}
	slog.Info("shutting down")
}

func mustLoadConfig() *config.TranslatorConfig {
	if err := configloader.LoadDotEnv(); err != nil {
		slog.Error("dotenv load failed", "error", err)
		os.Exit(1)
	}
	cfg, err := configloader.LoadTranslator()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupDI(cfg *config.TranslatorConfig, ui *console.Console) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, session.ObserverFunc(ui.Render))
	recognitionimpl.RegisterDI(injector)
	synthesisimpl.RegisterDI(injector)
	translationimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}
