package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/logger"
	"taskmanager/internal/server"
	"taskmanager/repository/db"
	"taskmanager/repository/inmemory"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type apiServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := server.ReadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, tasks, closeStorage := openStorage(ctx, cfg, log)
	defer closeStorage()

	api, err := server.NewTaskAPI(users, tasks, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize API", zap.Error(err))
	}

	if err := serve(ctx, api, log, shutdownTimeout); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Service stopped")
}

// openStorage prefers Postgres and falls back to memory when the database is unreachable.
func openStorage(ctx context.Context, cfg *server.Config, log *zap.Logger) (server.UserRepository, server.TaskRepository, func()) {
	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Warn("Migrations failed, using in-memory storage", zap.Error(err))
		mem := inmemory.NewStorage()
		return mem, mem, func() {}
	}
	log.Info("Migrations applied")

	storage, err := db.NewStorage(ctx, cfg.DBStr, log)
	if err != nil {
		log.Warn("Database unavailable, using in-memory storage", zap.Error(err))
		mem := inmemory.NewStorage()
		return mem, mem, func() {}
	}
	return storage, storage, storage.Close
}

// serve runs api until ctx is cancelled or Start fails, then shuts it down within timeout.
func serve(ctx context.Context, api apiServer, log *zap.Logger, timeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- api.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return <-serverErr
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}
