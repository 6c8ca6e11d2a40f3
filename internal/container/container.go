package container

import (
	"context"
	"fmt"

	"polls-be/internal/config"
	"polls-be/internal/repository"
	"polls-be/internal/service"
	"polls-be/pkg/database"
	"polls-be/pkg/logger"
	"polls-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB // nil when running on the in-memory store
	RedisClient  *redis.Client        // nil when caching is disabled
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container. A database failure is
// fatal; a Redis failure only disables caching.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if cfg.UseMemoryStore() {
		log.Warn("DATABASE_URL not configured, using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		c.Repositories = &repository.Repositories{Polls: store, Votes: store}
	} else {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, db.Pool); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			log.Info("Database schema is up to date")
		}
		c.DB = db
		c.Repositories = &repository.Repositories{
			Polls: repository.NewPollRepository(db),
			Votes: repository.NewVoteRepository(db),
		}
	}

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Component("redis"))
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	cache := service.NewVoterCache(c.RedisClient, cfg.VoterCacheTTL, log.Component("cache"))
	polls := service.NewPollService(c.Repositories.Polls, log.Component("polls"))
	ballots := service.NewBallotService(c.Repositories, cache, log.Component("ballot"))

	c.Services = &service.Services{
		Polls:   polls,
		Ballots: ballots,
		Results: service.NewResultsService(polls, ballots),
		Cache:   cache,
	}
	return c, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasDatabase returns true if postgres backs the repositories
func (c *Container) HasDatabase() bool {
	return c.DB != nil
}
