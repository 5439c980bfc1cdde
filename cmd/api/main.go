package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-dashboard/internal"
	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/config"
	"asset-dashboard/internal/dashboard"
	"asset-dashboard/internal/store"
	"asset-dashboard/pkg/exporter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	stores, closeStores, err := newStoreFactory(ctx, cfg, client)
	if err != nil {
		logger.Fatal("store setup failed", zap.Error(err))
	}
	defer closeStores()

	provider, err := newProvider(cfg, client)
	if err != nil {
		logger.Fatal("auth setup failed", zap.Error(err))
	}

	var layout exporter.Layout
	if cfg.ExportLayout != "" {
		if layout, err = exporter.LoadLayout(cfg.ExportLayout); err != nil {
			logger.Fatal("export layout invalid", zap.Error(err))
		}
	}

	srv, err := internal.NewServer(internal.Deps{
		Config:   cfg,
		Provider: provider,
		Stores:   stores,
		Log:      logger,
		Layout:   layout,
	})
	if err != nil {
		logger.Fatal("server setup failed", zap.Error(err))
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting asset dashboard",
		zap.String("addr", cfg.ListenAddr),
		zap.String("store", cfg.StoreBackend),
		zap.String("auth", cfg.AuthBackend),
		zap.Bool("metrics", cfg.EnableMetrics),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newStoreFactory picks the asset store backend. The REST store talks to the
// hosted API as the signed-in user; the Postgres store shares one pool.
func newStoreFactory(ctx context.Context, cfg *config.Config, client *http.Client) (dashboard.StoreFactory, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := store.OpenPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(db)
		return func(*auth.Session) store.AssetStore { return pg }, closeDB(db), nil
	default:
		base := store.NewREST(cfg.SupabaseURL, cfg.SupabaseAnonKey, client)
		return func(s *auth.Session) store.AssetStore {
			return base.WithAccessToken(s.AccessToken)
		}, func() {}, nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}

func newProvider(cfg *config.Config, client *http.Client) (auth.Provider, error) {
	if cfg.AuthBackend == "local" {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
		return auth.NewLocal(cfg.AdminEmail, cfg.AdminPasswordHash, jwtManager)
	}
	return auth.NewGoTrue(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseJWTSecret, client), nil
}
