package container

import (
	"context"
	"fmt"

	"trackvote/internal/config"
	"trackvote/internal/repository"
	"trackvote/internal/service"
	"trackvote/internal/service/auth"
	"trackvote/pkg/database"
	"trackvote/pkg/logger"
	"trackvote/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       repository.Store
	RedisClient *redis.Client
	Cache       *service.CacheService
	Services    *service.Services
	Auth        *auth.Service
}

// New creates a new dependency injection container. Storage is required;
// Redis is optional and the service runs uncached without it.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	store = repository.NewInstrumentedStore(store, logger.Logger)

	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	cache := service.NewCacheService(redisClient, cfg.DashboardCacheTTL, logger.Logger)

	var verifier service.HumanVerifier = service.StaticVerifier(true)
	if cfg.CaptchaEnabled {
		if cfg.TurnstileSecretKey == "" {
			_ = store.Close()
			return nil, fmt.Errorf("CAPTCHA_ENABLED requires TURNSTILE_SECRET_KEY")
		}
		verifier = service.NewTurnstileVerifier(cfg.TurnstileSecretKey, cfg.TurnstileVerifyURL, logger.Logger)
	}

	authService, err := auth.NewService(cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AdminTokenTTL, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	services := &service.Services{
		Votes: service.NewVoteAdmissionService(store, verifier, cache, service.AdmissionOptions{
			VerificationRequired: cfg.CaptchaEnabled,
			StrictTrackLimit:     cfg.StrictTrackLimit,
		}, logger.Logger),
		Results: service.NewResultsService(store, cache, logger.Logger),
		Teams:   service.NewTeamService(store, cache, logger.Logger),
	}

	logger.WithFields(map[string]interface{}{
		"driver":       cfg.DatabaseDriver,
		"cache":        cache.Enabled(),
		"captcha":      cfg.CaptchaEnabled,
		"strict_limit": cfg.StrictTrackLimit,
	}).Info("Container initialized")

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		RedisClient: redisClient,
		Cache:       cache,
		Services:    services,
		Auth:        authService,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (repository.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptionsFor(cfg.Environment))
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return repository.NewPostgresRepository(db), nil
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("Opened SQLite database")
		return repository.NewSQLiteRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
