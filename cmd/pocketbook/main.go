package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"pocketbook/internal/avatar"
	"pocketbook/internal/backend"
	"pocketbook/internal/config"
	apphttp "pocketbook/internal/http"
	"pocketbook/internal/parse"
	"pocketbook/internal/session"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The backend is chosen once here and never per request.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()
	logger.Info("Backend initialized", "backend", cfg.DataBackend)

	sessions := session.NewManager(cfg.SessionTTL)
	defer sessions.Stop()

	opts := apphttp.Options{RateLimitPerMinute: cfg.RateLimitPerMinute}

	// The AI parser is optional; without credentials the UI degrades to
	// manual entry.
	if os.Getenv("GOOGLE_API_KEY") != "" || os.Getenv("GEMINI_API_KEY") != "" {
		parser, err := parse.NewParser(ctx, cfg.GenAIModel)
		if err != nil {
			logger.Warn("AI parser unavailable", "error", err)
		} else {
			opts.Parser = parser
			logger.Info("AI parser initialized", "model", cfg.GenAIModel)
		}
	}

	// Avatars go to GCS when a bucket is configured, local disk otherwise.
	if cfg.GCSAvatarBucket != "" {
		gcs, err := avatar.NewGCSStorage(ctx, cfg.GCSAvatarBucket)
		if err != nil {
			logger.Error("Failed to initialize GCS avatar storage", "error", err, "bucket", cfg.GCSAvatarBucket)
			os.Exit(1)
		}
		defer gcs.Close()
		opts.Avatars = gcs
	} else if cfg.AvatarDirectory != "" {
		dir, err := avatar.NewDirStorage(cfg.AvatarDirectory)
		if err != nil {
			logger.Error("Failed to initialize avatar directory", "error", err, "dir", cfg.AvatarDirectory)
			os.Exit(1)
		}
		opts.Avatars = dir
		opts.AvatarDir = cfg.AvatarDirectory
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Store, sessions, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting pocketbook server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
