package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type countingRules struct {
	rules       []domain.SLARule
	activeCalls int
	// duringList runs once, after the listing snapshot is taken.
	duringList func()
}

func (c *countingRules) Create(_ context.Context, rule *domain.SLARule) error {
	rule.ID = "new"
	c.rules = append(c.rules, *rule)
	return nil
}

func (c *countingRules) Update(_ context.Context, rule *domain.SLARule) error {
	for i := range c.rules {
		if c.rules[i].ID == rule.ID {
			c.rules[i] = *rule
		}
	}
	return nil
}

func (c *countingRules) Delete(context.Context, string) error { return nil }

func (c *countingRules) GetByID(_ context.Context, id string) (*domain.SLARule, error) {
	for _, r := range c.rules {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (c *countingRules) List(context.Context) ([]domain.SLARule, error) { return c.rules, nil }

func (c *countingRules) ListActiveRules(context.Context) ([]domain.SLARule, error) {
	c.activeCalls++
	snapshot := append([]domain.SLARule(nil), c.rules...)
	if hook := c.duringList; hook != nil {
		c.duringList = nil
		hook()
	}
	return snapshot, nil
}

func seededRules() *countingRules {
	return &countingRules{rules: []domain.SLARule{{ID: "r1", Name: "old", IsActive: true, TimeHours: 8}}}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedRuleRepository_PassThroughWithoutClient(t *testing.T) {
	next := &countingRules{rules: []domain.SLARule{{ID: "r1", Name: "All", IsActive: true, TimeHours: 8}}}
	repo := NewCachedRuleRepository(next, nil, time.Minute, nil)

	rules, err := repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	_, err = repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, next.activeCalls)

	require.NoError(t, repo.Create(context.Background(), &domain.SLARule{Name: "Second", IsActive: true, TimeHours: 2}))
	rules, err = repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCachedRuleRepository_ServesFromCache(t *testing.T) {
	mr, client := newTestRedis(t)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, nil)
	ctx := context.Background()

	first, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	second, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.activeCalls)
	assert.True(t, mr.Exists(ActiveRulesCacheKey))
	assert.Equal(t, time.Minute, mr.TTL(ActiveRulesCacheKey))
}

func TestCachedRuleRepository_WritesAreVisibleToNextRead(t *testing.T) {
	_, client := newTestRedis(t)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, &domain.SLARule{ID: "r1", Name: "new", IsActive: true, TimeHours: 2}))
	rules, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "new", rules[0].Name)
	assert.Equal(t, 2.0, rules[0].TimeHours)

	require.NoError(t, repo.Create(ctx, &domain.SLARule{Name: "extra", IsActive: true, TimeHours: 1}))
	rules, err = repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, 3, next.activeCalls)
}

func TestCachedRuleRepository_WriteDuringFillIsNotMasked(t *testing.T) {
	_, client := newTestRedis(t)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, nil)
	ctx := context.Background()

	next.duringList = func() {
		require.NoError(t, repo.Update(ctx, &domain.SLARule{ID: "r1", Name: "new", IsActive: true, TimeHours: 2}))
	}
	rules, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", rules[0].Name, "the racing read returns its own snapshot")

	rules, err = repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", rules[0].Name)

	rules, err = repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", rules[0].Name)
	assert.Equal(t, 2, next.activeCalls, "the fresh listing is cached again")
}

func TestCachedRuleRepository_FailedInvalidationIsReported(t *testing.T) {
	mr, client := newTestRedis(t)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)

	mr.SetError("ERR server unavailable")
	err = repo.Update(ctx, &domain.SLARule{ID: "r1", Name: "new", IsActive: true, TimeHours: 2})
	require.ErrorIs(t, err, ErrRuleCacheInvalidation)
	mr.SetError("")

	require.NoError(t, repo.Update(ctx, &domain.SLARule{ID: "r1", Name: "new", IsActive: true, TimeHours: 2}))
	rules, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", rules[0].Name)
}

func TestCachedRuleRepository_EvictedVersionDiscardsEntry(t *testing.T) {
	mr, client := newTestRedis(t)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	mr.Del(RulesVersionKey)

	_, err = repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.activeCalls)
	assert.True(t, mr.Exists(RulesVersionKey))
}

func TestCachedRuleRepository_CorruptEntryIsReplaced(t *testing.T) {
	mr, client := newTestRedis(t)
	core, logs := observer.New(zapcore.WarnLevel)
	next := seededRules()
	repo := NewCachedRuleRepository(next, client, time.Minute, zap.New(core))
	ctx := context.Background()

	_, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	require.NoError(t, mr.Set(ActiveRulesCacheKey, "{not json"))

	rules, err := repo.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, 1, logs.FilterMessage("discarding corrupt sla rule cache entry").Len())
}

func TestCachedRuleRepository_RedisFailureFallsBackToDatabase(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &countingRules{rules: []domain.SLARule{{ID: "r1", Name: "All", IsActive: true, TimeHours: 8}}}
	repo := NewCachedRuleRepository(next, unreachableRedis(t), time.Minute, zap.New(core))

	rules, err := repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, next.rules, rules)
	assert.Equal(t, 1, next.activeCalls)
	assert.Equal(t, 1, logs.FilterMessage("sla rule cache read failed").Len())

	err = repo.Create(context.Background(), &domain.SLARule{Name: "Second", IsActive: true, TimeHours: 2})
	assert.ErrorIs(t, err, ErrRuleCacheInvalidation)
	assert.Equal(t, 1, logs.FilterMessage("sla rule cache invalidation failed").Len())

	rules, err = repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 2, "the database still serves reads")
}

func TestCachedRuleRepository_CancelledContext(t *testing.T) {
	next := &countingRules{}
	repo := NewCachedRuleRepository(next, unreachableRedis(t), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.ListActiveRules(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, next.activeCalls)
}
