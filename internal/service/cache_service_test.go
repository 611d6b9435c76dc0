package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	raw, ok := f.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return raw, nil
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = payload
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newFakeCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out []string
	hit, err := svc.Get(context.Background(), "passes:query:uni:a", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "passes:query:uni:a", []string{"p1"}, 0))
	assert.Equal(t, time.Minute, repo.ttls["passes:query:uni:a"])

	hit, err = svc.Get(context.Background(), "passes:query:uni:a", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"p1"}, out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceStoreFailureIsMiss(t *testing.T) {
	repo := newFakeCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newFakeCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.entries)

	var out int
	hit, err := svc.Remember(context.Background(), "k", 0, &out, func(context.Context) (interface{}, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, out)
	assert.Empty(t, repo.entries)
}

func TestCacheServiceRemember(t *testing.T) {
	repo := newFakeCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	calls := 0
	load := func(context.Context) (interface{}, error) {
		calls++
		return map[string]int{"total": 3}, nil
	}

	var first map[string]int
	hit, err := svc.Remember(context.Background(), "passes:query:uni:summary", 0, &first, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, first["total"])

	var second map[string]int
	hit, err = svc.Remember(context.Background(), "passes:query:uni:summary", 0, &second, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	require.NoError(t, svc.Invalidate(context.Background(), "passes:query:uni:*"))
	_, err = svc.Remember(context.Background(), "passes:query:uni:summary", 0, &second, func(context.Context) (interface{}, error) {
		return nil, errors.New("db down")
	})
	require.Error(t, err)
	assert.Empty(t, repo.entries)
}

func TestCacheServiceRememberSharesConcurrentLoads(t *testing.T) {
	svc := NewCacheService(newFakeCacheRepo(), nil, time.Minute, nil, true)
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls int
	)
	load := func(context.Context) (interface{}, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Remember(context.Background(), "shared", 0, &results[i], load)
			assert.NoError(t, err)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	for _, r := range results {
		assert.Equal(t, "ok", r)
	}
}
