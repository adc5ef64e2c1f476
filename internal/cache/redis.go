package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a render stays in Redis.
const DefaultTTL = time.Hour

// Redis shares renders between replicas. Errors are logged and treated as misses.
type Redis struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// OpenRedis parses a redis:// URL. An empty URL returns nil.
func OpenRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// NewRedis wraps rc. ttl <= 0 means DefaultTTL.
func NewRedis(rc *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rc: rc, prefix: "pestmap:render:", ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.rc.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("render cache read failed", zap.String("key", key), zap.Error(err))
		}
		record(false)
		return nil, false
	}
	record(true)
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, data []byte) {
	if err := r.rc.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		r.log.Warn("render cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Tiered reads the front cache first and fills it from the back.
type Tiered struct {
	Front, Back Cache
}

func (t Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := t.Front.Get(ctx, key); ok {
		return data, true
	}
	data, ok := t.Back.Get(ctx, key)
	if ok {
		t.Front.Set(ctx, key, data)
	}
	return data, ok
}

func (t Tiered) Set(ctx context.Context, key string, data []byte) {
	t.Front.Set(ctx, key, data)
	t.Back.Set(ctx, key, data)
}
