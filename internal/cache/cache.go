package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/murmur3"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/internal/logger"
	"github.com/be4breach/reportd/pkg/types"
)

// redisCache stores parsed reports keyed by a content hash of the uploaded
// bytes. Since the parse is a pure function of its input, a cache hit is an
// exact substitute for re-parsing the same document.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func New(cfg config.RedisConfig, log *logger.Logger) (core.ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{
		client: client,
		ttl:    cfg.CacheTTL,
		logger: log.WithComponent("report-cache"),
	}, nil
}

// Key derives a stable cache key from the raw document bytes.
func (c *redisCache) Key(data []byte) string {
	h1, h2 := murmur3.Sum128(data)
	return fmt.Sprintf("reportd:report:%016x%016x", h1, h2)
}

func (c *redisCache) Get(ctx context.Context, key string) (*types.PentestReport, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var report types.PentestReport
	if err := json.Unmarshal(payload, &report); err != nil {
		// A corrupt entry behaves like a miss; the parse will repopulate it.
		c.logger.Warnw("Discarding unreadable cache entry",
			"key", key,
			"error", err,
		)
		return nil, nil
	}
	return &report, nil
}

func (c *redisCache) Set(ctx context.Context, key string, report *types.PentestReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
