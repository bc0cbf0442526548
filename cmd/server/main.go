// Command tracker-server starts the expiry tracker HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ritik1652/expriy-date-tracker/internal/idgen"
	"github.com/Ritik1652/expriy-date-tracker/internal/limiter"
	"github.com/Ritik1652/expriy-date-tracker/internal/server/httpserver"
	"github.com/Ritik1652/expriy-date-tracker/internal/service"
	"github.com/Ritik1652/expriy-date-tracker/internal/storage"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, bootstraps storage, and serves the JSON API.
func main() {
	// Flags
	addr := flag.String("addr", ":5000", "listen address")
	dataDir := flag.String("data-dir", "./data", "directory holding collection documents")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (required)")
	accessTTL := flag.Duration("access-ttl", 24*time.Hour, "session token TTL")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
		zap.String("dataDir", *dataDir),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	store := storage.New(*dataDir, logger)
	if err := store.Bootstrap(); err != nil {
		logger.Fatal("bootstrap storage", zap.Error(err))
	}

	ids := idgen.New()
	lim := limiter.NewMemory(15*time.Minute, 5, 15*time.Minute)

	// Services
	authSvc := service.NewAuthService(store, []byte(*jwtKey), *accessTTL, lim)
	invSvc := service.NewInventoryService(store, ids)
	catSvc := service.NewCategoryService(store, ids)

	app := httpserver.New(authSvc, invSvc, catSvc, []byte(*jwtKey), logger)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
