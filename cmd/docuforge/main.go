// Entry point for the docuforge HTTP service: chi router, SQLite
// registry, remote OCR/structuring pipeline, PDF and image merge tools.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvillars/docuforge/config"
	"github.com/mvillars/docuforge/convert"
	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/openrouter"
	"github.com/mvillars/docuforge/registry"
	"github.com/mvillars/docuforge/webapi"
)

func main() {
	logLevel := env("LOG_LEVEL", "info")
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if path := os.Getenv("CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("load config", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := registry.Open(cfg.Storage.DatabasePath)
	if err != nil {
		slog.Error("open registry", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	eventLog, err := events.NewLogger(store.DB)
	if err != nil {
		slog.Error("events init", "error", err)
		os.Exit(1)
	}

	newClient := func(apiKey string) *openrouter.Client {
		return openrouter.New(openrouter.Config{
			Endpoint:     cfg.Pipeline.Endpoint,
			APIKey:       apiKey,
			Timeout:      cfg.Pipeline.OCRTimeout,
			MaxFileBytes: cfg.Pipeline.MaxOCRFileBytes,
			Title:        "docuforge",
			Logger:       logger,
		})
	}

	converter := convert.New(store, convert.Config{
		UploadRoot:      cfg.Storage.UploadRoot,
		ChunkThreshold:  cfg.Pipeline.ChunkThreshold,
		EmbeddedTextMin: cfg.Pipeline.EmbeddedTextMin,
		FallbackModels:  cfg.Pipeline.FallbackModels,
		NewRemote:       func(apiKey string) convert.Remote { return newClient(apiKey) },
		Events:          eventLog,
		Logger:          logger,
	})

	svc := webapi.New(webapi.Config{
		Store:          store,
		Converter:      converter,
		UploadRoot:     cfg.Storage.UploadRoot,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TempDir:        cfg.Storage.TempDir,
		NewPinger:      func(apiKey string) webapi.Pinger { return newClient(apiKey) },
		Events:         eventLog,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute, // conversions run inside the request
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
