package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ecommerce-dashboard/internal/models"
)

const (
	keyNamespace  = "dash"
	summaryPrefix = "summary"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
}

// Redis shares summaries between instances. Failures degrade to cache
// misses and are logged, never returned to the caller.
type Redis struct {
	store  cmdable
	raw    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to url and verifies connectivity.
func NewRedis(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{store: raw, raw: raw, ttl: ttl, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (models.StateSummary, bool) {
	var s models.StateSummary
	raw, err := r.store.Get(ctx, r.summaryKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("summary cache read failed", "error", err)
		}
		return s, false
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		r.logger.Warn("discarding undecodable cached summary", "error", err)
		return models.StateSummary{}, false
	}
	return s, true
}

func (r *Redis) Set(ctx context.Context, key string, s models.StateSummary) {
	b, err := json.Marshal(s)
	if err != nil {
		r.logger.Warn("summary cache encode failed", "error", err)
		return
	}
	if err := r.store.Set(ctx, r.summaryKey(key), string(b), r.ttl).Err(); err != nil {
		r.logger.Warn("summary cache write failed", "error", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.store.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}

func (r *Redis) summaryKey(key string) string {
	return buildKey(summaryPrefix, key)
}

func buildKey(parts ...string) string {
	segments := []string{keyNamespace}
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}
