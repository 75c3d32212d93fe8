package internal

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consolehq/admin-front/internal/config"
	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/log"
	"github.com/consolehq/admin-front/internal/server"
)

// AdminFront represents the complete admin console application
type AdminFront struct {
	config     config.Config
	httpServer *server.HTTPServer
	store      credstore.Store
}

// NewAdminFront creates the admin console application with all dependencies built
func NewAdminFront(ctx context.Context, cfg config.Config) (*AdminFront, error) {
	log.LogInfoWithFields("adminfront", "Building admin console application", map[string]any{
		"baseURL": cfg.Console.BaseURL,
		"backend": cfg.Backend.BaseURL,
		"storage": string(cfg.Console.Storage),
	})

	if _, err := url.Parse(cfg.Console.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	store, err := setupStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	srv := server.New(cfg, store)
	httpServer := server.NewHTTPServer(srv.Handler(), cfg.Console.Addr)

	return &AdminFront{
		config:     cfg,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Run starts and manages the application lifecycle
func (a *AdminFront) Run() error {
	log.LogInfoWithFields("adminfront", "Starting admin console", map[string]any{
		"addr": a.config.Console.Addr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		if err := a.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("adminfront", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("adminfront", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	case <-ctx.Done():
		shutdownReason = "context cancelled"
		log.LogInfoWithFields("adminfront", "Context cancelled, shutting down", nil)
	}

	log.LogInfoWithFields("adminfront", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": "30s",
	})
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("adminfront", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := a.store.Close(); err != nil {
		log.LogWarnWithFields("adminfront", "Failed to close credential store", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("adminfront", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// setupStorage creates the credential store selected by the configuration
func setupStorage(cfg config.Config) (credstore.Store, error) {
	switch cfg.Console.Storage {
	case config.StorageSQLite:
		log.LogInfoWithFields("storage", "Using SQLite credential store", map[string]any{
			"path": cfg.Console.SQLitePath,
		})
		return credstore.NewSQLiteStore(cfg.Console.SQLitePath)
	default:
		log.LogInfoWithFields("storage", "Using in-memory credential store", nil)
		return credstore.NewMemoryStore(), nil
	}
}
