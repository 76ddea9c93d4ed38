package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/reports"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/storetest"
)

type observer struct {
	hits, misses int
	computed     map[string]int
}

func (o *observer) ObserveReport(report string, _ time.Duration) {
	if o.computed == nil {
		o.computed = map[string]int{}
	}
	o.computed[report]++
}

func (o *observer) RecordCacheLookup(_ string, hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func newRedisCache(t *testing.T) *reports.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return reports.NewRedisCache(client, "test-reports")
}

func TestServiceServesFromCacheUntilInvalidated(t *testing.T) {
	e := newEnv(t)
	obs := &observer{}
	svc := reports.NewService(reports.ServiceDependencies{
		Store:    e.store,
		Engine:   e.engine,
		Cache:    newRedisCache(t),
		CacheTTL: time.Minute,
		Metrics:  obs,
	})
	ctx := context.Background()
	storetest.InsertRequest(t, e.store, e.f.Request(domain.Date(2024, 1, 1)))

	first, err := svc.IssueTypeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []reports.CountRow{{Name: "Leak", Count: 1}}, first)

	storetest.InsertRequest(t, e.store, e.f.Request(domain.Date(2024, 1, 1)))
	cached, err := svc.IssueTypeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.computed[string(reports.IssueTypeStats)])

	require.NoError(t, svc.Invalidate(ctx))
	fresh, err := svc.IssueTypeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []reports.CountRow{{Name: "Leak", Count: 2}}, fresh)
	assert.Equal(t, 2, obs.misses)
}

func TestServiceWithoutCache(t *testing.T) {
	e := newEnv(t)
	svc := reports.NewService(reports.ServiceDependencies{Store: e.store, Engine: e.engine})
	ctx := context.Background()

	for _, name := range reports.Names {
		out, err := svc.Run(ctx, name)
		require.NoError(t, err, name)
		assert.NotNil(t, out, name)
	}
	require.NoError(t, svc.Invalidate(ctx))

	_, err := svc.Run(ctx, reports.Name("nope"))
	assert.Error(t, err)
}

// writeDuringView commits a write and invalidates the cache after the first
// read finishes but before its result reaches the cache.
type writeDuringView struct {
	store.Store
	afterFirstView func()
	fired          bool
}

func (w *writeDuringView) View(ctx context.Context, fn func(store.View) error) error {
	err := w.Store.View(ctx, fn)
	if !w.fired && w.afterFirstView != nil {
		w.fired = true
		w.afterFirstView()
	}
	return err
}

func TestServiceDoesNotCacheResultOlderThanInvalidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	storetest.InsertRequest(t, e.store, e.f.Request(domain.Date(2024, 1, 1)))

	racing := &writeDuringView{Store: e.store}
	svc := reports.NewService(reports.ServiceDependencies{
		Store:    racing,
		Engine:   e.engine,
		Cache:    newRedisCache(t),
		CacheTTL: time.Minute,
	})
	racing.afterFirstView = func() {
		storetest.InsertRequest(t, e.store, e.f.Request(domain.Date(2024, 1, 1)))
		require.NoError(t, svc.Invalidate(ctx))
	}

	first, err := svc.IssueTypeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []reports.CountRow{{Name: "Leak", Count: 1}}, first)

	next, err := svc.IssueTypeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []reports.CountRow{{Name: "Leak", Count: 2}}, next)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache := newRedisCache(t)
	ctx := context.Background()

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, hit, err := cache.Get(ctx, gen, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, gen, "k", []byte(`[1]`), time.Minute))
	val, hit, err := cache.Get(ctx, gen, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte(`[1]`), val)

	require.NoError(t, cache.Invalidate(ctx))
	next, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	_, hit, err = cache.Get(ctx, next, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, gen, "k", []byte(`[2]`), time.Minute))
	_, hit, err = cache.Get(ctx, next, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}
