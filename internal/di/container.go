package di

import (
	"fmt"
	"time"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/events"
	"github.com/Balorum/PhotoShare/internal/handler"
	"github.com/Balorum/PhotoShare/internal/password"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/internal/token"
	"github.com/Balorum/PhotoShare/pkg/database"
	pkgredis "github.com/Balorum/PhotoShare/pkg/redis"
)

// Container holds all dependencies for the auth core
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher events.Publisher

	// Repositories
	UserRepo       repository.UserRepository
	RevocationRepo repository.RevocationRepository

	// Services
	Codec        *token.Codec
	Revocations  *service.RevocationStore
	TokenService service.TokenService
	AuthService  service.AuthService
	UserService  service.UserService

	// Gates per route role set
	ReadGate  *service.Gate
	AdminGate *service.Gate

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	ServiceName string

	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher events.Publisher

	UserRepo       repository.UserRepository
	RevocationRepo repository.RevocationRepository

	JWTSecret    string
	JWTAlgorithm string
	// Now overrides the token clock, used by tests
	Now func() time.Time

	TokenConfig *service.TokenServiceConfig
	AuthConfig  *service.AuthServiceConfig
	BcryptCost  int
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Publisher:      publisher,
		UserRepo:       cfg.UserRepo,
		RevocationRepo: cfg.RevocationRepo,
		Codec:          codec,
	}

	// Revocation entries without a readable expiry live as long as an access token would
	var fallbackTTL time.Duration
	if cfg.TokenConfig != nil {
		fallbackTTL = cfg.TokenConfig.AccessTokenTTL
	}

	// Initialize services
	c.Revocations = service.NewRevocationStore(c.RevocationRepo, codec, fallbackTTL)
	c.TokenService = service.NewTokenService(codec, c.UserRepo, c.Revocations, cfg.TokenConfig)
	c.AuthService = service.NewAuthService(
		c.UserRepo,
		c.TokenService,
		password.NewHasher(cfg.BcryptCost),
		publisher,
		cfg.AuthConfig,
	)
	c.UserService = service.NewUserService(c.UserRepo, publisher)

	c.ReadGate = service.NewGate(c.TokenService, domain.ReadRoles...)
	c.AdminGate = service.NewGate(c.TokenService, domain.AdminRoles...)

	// Initialize handlers
	checks := map[string]handler.HealthChecker{}
	if c.DB != nil {
		checks["database"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(cfg.ServiceName, checks)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.UserHandler = handler.NewUserHandler(c.UserService)

	return c, nil
}
