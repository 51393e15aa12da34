package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/worker"
	"github.com/Balorum/PhotoShare/migrations"
	"github.com/Balorum/PhotoShare/pkg/config"
	"github.com/Balorum/PhotoShare/pkg/database"
	"github.com/Balorum/PhotoShare/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "revocation-pruner",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()

	// Redis entries expire on their own
	if cfg.Auth.RevocationBackend != "postgres" {
		appLog.Info("Revocation backend has native expiry, nothing to prune",
			zap.String("backend", cfg.Auth.RevocationBackend))
		return
	}

	appLog.Info("Starting Revocation Pruner...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.Migrations); err != nil {
			appLog.Fatal("Migration failed", zap.Error(err))
		}
	}

	pruner := worker.NewRevocationPruner(
		repository.NewPostgresRevocationRepository(db.Pool()),
		&worker.RevocationPrunerConfig{
			Interval:  cfg.Pruner.Interval,
			BatchSize: cfg.Pruner.BatchSize,
		},
	)
	if err := pruner.Start(ctx); err != nil {
		appLog.Fatal("Failed to start pruner", zap.Error(err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down revocation pruner...")
	pruner.Stop()

	stats := pruner.GetStats()
	appLog.Info(fmt.Sprintf("Revocation pruner stopped (total pruned: %d)", stats.TotalPruned))
}
