package service

import (
	"context"
	"time"

	"polls-be/internal/domain"
	"polls-be/pkg/redis"

	"go.uber.org/zap"
)

// VoterCache keeps a positive "this voter has voted in this poll" marker in
// Redis in front of the store. Totals and results are never cached.
//
// Markers are keyed on the poll's id and creation time. Ids alone repeat
// when the store restarts from an empty state (in-memory mode, a schema
// reset), and a marker left by an earlier poll must never answer for a new
// one.
//
// A nil *redis.Client disables caching; every lookup then goes to the store.
type VoterCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewVoterCache creates a voter cache. ttl falls back to redis.TTLVoterVoted.
func NewVoterCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *VoterCache {
	if ttl <= 0 {
		ttl = redis.TTLVoterVoted
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoterCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether a Redis client is configured
func (c *VoterCache) Enabled() bool {
	return c != nil && c.redis != nil
}

func (c *VoterCache) voterKey(poll *domain.Poll, voterID string) string {
	return c.redis.KeyBuilder.KeyVoterVoted(poll.ID, poll.CreatedAt.UnixNano(), voterID)
}

// HasVotedWithCache checks the voted marker first and falls back to dbFallback
// on a miss or a cache error. A positive answer from the store is cached.
func (c *VoterCache) HasVotedWithCache(ctx context.Context, poll *domain.Poll, voterID string, dbFallback func(ctx context.Context) (bool, error)) (bool, error) {
	if !c.Enabled() {
		return dbFallback(ctx)
	}

	exists, err := c.redis.Exists(ctx, c.voterKey(poll, voterID))
	if err == nil && exists > 0 {
		c.logger.Debug("Voter cache hit", zap.Int64("poll_id", poll.ID))
		return true, nil
	} else if err != nil {
		c.logger.Warn("Voter cache error, falling back to store",
			zap.Int64("poll_id", poll.ID),
			zap.Error(err))
	}

	voted, err := dbFallback(ctx)
	if err != nil {
		return false, err
	}
	if voted {
		c.MarkVoted(ctx, poll, voterID)
	}
	return voted, nil
}

// MarkVoted records the voted marker. Failures are logged and swallowed.
func (c *VoterCache) MarkVoted(ctx context.Context, poll *domain.Poll, voterID string) {
	if !c.Enabled() {
		return
	}
	if err := c.redis.Set(ctx, c.voterKey(poll, voterID), "1", c.ttl); err != nil {
		c.logger.Warn("Failed to cache voter marker",
			zap.Int64("poll_id", poll.ID),
			zap.Error(err))
	}
}

// HealthCheck pings Redis. A disabled cache is always healthy.
func (c *VoterCache) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}
