package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	// ActiveRulesCacheKey holds the serialized active rule listing.
	ActiveRulesCacheKey = "sla:rules:active"
	// RulesVersionKey is bumped on every rule write. A cached listing is
	// served only while its version equals the current one.
	RulesVersionKey = "sla:rules:version"
)

// ErrRuleCacheInvalidation reports a rule write that reached the database
// but could not bump the cache version. Callers should retry the write.
var ErrRuleCacheInvalidation = errors.New("sla rule cache invalidation failed")

type cachedRules struct {
	Version int64            `json:"version"`
	Rules   []domain.SLARule `json:"rules"`
}

// CachedRuleRepository fronts an SLARuleRepository with a Redis copy of the
// active rule listing. Redis read failures degrade to the database.
type CachedRuleRepository struct {
	next   SLARuleRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ SLARuleRepository = (*CachedRuleRepository)(nil)

// NewCachedRuleRepository wraps next. A nil client disables caching.
func NewCachedRuleRepository(next SLARuleRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRuleRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRuleRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *CachedRuleRepository) Create(ctx context.Context, rule *domain.SLARule) error {
	if err := r.next.Create(ctx, rule); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedRuleRepository) Update(ctx context.Context, rule *domain.SLARule) error {
	if err := r.next.Update(ctx, rule); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedRuleRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedRuleRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	return r.next.List(ctx)
}

// ListActiveRules serves the cached listing when it was filled under the
// current version. Otherwise it reads the database and tags the fresh listing
// with the version observed before that read, so a write racing the fill
// leaves an entry no reader will accept.
func (r *CachedRuleRepository) ListActiveRules(ctx context.Context) ([]domain.SLARule, error) {
	if r.client == nil || r.ttl <= 0 {
		return r.next.ListActiveRules(ctx)
	}

	version, cached, err := r.readCache(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("sla rule cache read failed", zap.Error(err))
		return r.next.ListActiveRules(ctx)
	}
	if cached != nil && cached.Version == version {
		return cached.Rules, nil
	}

	rules, err := r.next.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cachedRules{Version: version, Rules: rules})
	if err == nil {
		err = r.client.Set(ctx, ActiveRulesCacheKey, payload, r.ttl).Err()
	}
	if err != nil {
		r.logger.Warn("sla rule cache write failed", zap.Error(err))
	}
	return rules, nil
}

// readCache returns the current version and the cached listing, if any. A
// missing version key is seeded with a fresh value so entries written under
// an evicted version never match again.
func (r *CachedRuleRepository) readCache(ctx context.Context) (int64, *cachedRules, error) {
	values, err := r.client.MGet(ctx, RulesVersionKey, ActiveRulesCacheKey).Result()
	if err != nil {
		return 0, nil, err
	}

	var version int64
	if raw, ok := values[0].(string); ok {
		if version, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, nil, fmt.Errorf("parse rule cache version: %w", err)
		}
	} else {
		if err := r.client.SetNX(ctx, RulesVersionKey, time.Now().UnixNano(), 0).Err(); err != nil {
			return 0, nil, err
		}
		if version, err = r.client.Get(ctx, RulesVersionKey).Int64(); err != nil {
			return 0, nil, err
		}
		return version, nil, nil
	}

	raw, ok := values[1].(string)
	if !ok {
		return version, nil, nil
	}
	var cached cachedRules
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		r.logger.Warn("discarding corrupt sla rule cache entry")
		return version, nil, nil
	}
	return version, &cached, nil
}

func (r *CachedRuleRepository) invalidate(ctx context.Context) error {
	if r.client == nil || r.ttl <= 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, RulesVersionKey, time.Now().UnixNano(), 0)
		pipe.Incr(ctx, RulesVersionKey)
		return nil
	})
	if err != nil {
		r.logger.Error("sla rule cache invalidation failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRuleCacheInvalidation, err)
	}
	return nil
}
