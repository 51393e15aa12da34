package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/di"
	"github.com/Balorum/PhotoShare/internal/events"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/migrations"
	"github.com/Balorum/PhotoShare/pkg/config"
	"github.com/Balorum/PhotoShare/pkg/database"
	"github.com/Balorum/PhotoShare/pkg/logger"
	"github.com/Balorum/PhotoShare/pkg/middleware"
	pkgredis "github.com/Balorum/PhotoShare/pkg/redis"
	"github.com/Balorum/PhotoShare/pkg/telemetry"
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
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting PhotoShare API...", zap.String("environment", cfg.App.Environment))
	if cfg.JWT.Secret == config.DevJWTSecret {
		appLog.Warn("JWT_SECRET not set, using dev-only default (NEVER use in production)")
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.Migrations); err != nil {
			appLog.Fatal("Migration failed", zap.Error(err))
		}
		appLog.Info("Database migrations applied")
	}

	// Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db.Pool())

	var redis *pkgredis.Client
	var revocationRepo repository.RevocationRepository
	switch cfg.Auth.RevocationBackend {
	case "redis":
		redis, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
			EnableTracing: cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redis.Close()
		appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		revocationRepo = repository.NewRedisRevocationRepository(redis)
	default:
		revocationRepo = repository.NewPostgresRevocationRepository(db.Pool())
	}
	appLog.Info("Revocation backend selected", zap.String("backend", cfg.Auth.RevocationBackend))

	// User events go to Kafka when enabled
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Topic:    cfg.Kafka.UserEventsTopic,
		})
		if err != nil {
			appLog.Fatal("Kafka connection failed", zap.Error(err))
		}
		publisher = kp
		appLog.Info("Kafka publisher ready", zap.String("topic", cfg.Kafka.UserEventsTopic))
	}
	defer publisher.Close()

	// Build dependency injection container
	container, err := di.NewContainer(&di.ContainerConfig{
		ServiceName:    cfg.App.Name,
		DB:             db,
		Redis:          redis,
		Publisher:      publisher,
		UserRepo:       userRepo,
		RevocationRepo: revocationRepo,
		JWTSecret:      cfg.JWT.Secret,
		JWTAlgorithm:   cfg.JWT.Algorithm,
		TokenConfig: &service.TokenServiceConfig{
			AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
			RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
			EmailTokenTTL:   cfg.JWT.EmailTokenTTL,
		},
		AuthConfig: &service.AuthServiceConfig{
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		},
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(middleware.CORS())

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	container.RegisterRoutes(router)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("PhotoShare API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
