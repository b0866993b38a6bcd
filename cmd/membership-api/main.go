// main is the entry point of the membership API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the database (SQLite or MySQL) and the IEC cache (Redis or memory)
//  4. Build the IEC, SMS and upload services and register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/membership-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/membership-api
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

	"github.com/aanand-mishra/membership-api/internal/app"
	"github.com/aanand-mishra/membership-api/internal/config"
	"github.com/aanand-mishra/membership-api/internal/http/router"
	"github.com/aanand-mishra/membership-api/internal/sms"
	"github.com/aanand-mishra/membership-api/internal/upload"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting membership-api",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()

	store, err := app.OpenStore(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	cache, closeCache, err := app.NewCache(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to initialise iec cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeCache()

	mapper := app.NewMapper(cfg, store, cache)
	gateway := sms.NewGateway(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID, cfg.SMS.Timeout)

	handler, err := router.New(router.Deps{
		Store:         store,
		Uploads:       upload.NewProcessor(store, mapper, cfg.Upload),
		VerifyUploads: cfg.IEC.VerifyUploads,
		IEC:           mapper,
		SMS:           sms.NewService(gateway, store),
		BackupDir:     cfg.Storage.BackupDir,
	})
	if err != nil {
		log.Error("failed to build router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed after Shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// Uploads run inside the request, so give them longer than a plain
	// request to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
