package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AlertDeduper reports whether an alert key is seen for the first time
// within the dedupe window. Forget releases a key whose alert was not sent.
type AlertDeduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// MemoryAlertDeduper keeps alert keys in process memory.
type MemoryAlertDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewMemoryAlertDeduper builds an in-memory deduper.
func NewMemoryAlertDeduper(window time.Duration) *MemoryAlertDeduper {
	return &MemoryAlertDeduper{seen: map[string]time.Time{}, window: window, now: time.Now}
}

// FirstSeen implements AlertDeduper.
func (d *MemoryAlertDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[key] = now.Add(d.window)
	if len(d.seen) > 10000 {
		for k, exp := range d.seen {
			if !now.Before(exp) {
				delete(d.seen, k)
			}
		}
	}
	return true, nil
}

// Forget implements AlertDeduper.
func (d *MemoryAlertDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
	return nil
}

// RedisAlertDeduper shares alert keys across instances with SET NX. Redis
// failures fall back to an in-memory deduper.
type RedisAlertDeduper struct {
	client   *redis.Client
	prefix   string
	window   time.Duration
	fallback *MemoryAlertDeduper
	logger   *zap.Logger
}

// NewRedisAlertDeduper builds a Redis-backed deduper.
func NewRedisAlertDeduper(client *redis.Client, window time.Duration, logger *zap.Logger) *RedisAlertDeduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisAlertDeduper{
		client:   client,
		prefix:   "sla:alert:",
		window:   window,
		fallback: NewMemoryAlertDeduper(window),
		logger:   logger,
	}
}

// FirstSeen implements AlertDeduper.
func (d *RedisAlertDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	wasSet, err := d.client.SetNX(ctx, d.prefix+key, "1", d.window).Result()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		d.logger.Warn("alert dedupe via redis failed, using memory", zap.Error(err))
		return d.fallback.FirstSeen(ctx, key)
	}
	return wasSet, nil
}

// Forget implements AlertDeduper.
func (d *RedisAlertDeduper) Forget(ctx context.Context, key string) error {
	_ = d.fallback.Forget(ctx, key)
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("forget alert key: %w", err)
	}
	return nil
}
