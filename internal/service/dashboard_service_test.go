package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
)

type fakeSummaryRepo struct {
	calls int
	err   error
}

func (f *fakeSummaryRepo) Summary(_ context.Context, universityID string) (*models.PassSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PassSummary{UniversityID: universityID, TotalPasses: 4, ActivePasses: 3}, nil
}

func (c *memoryCache) Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func(context.Context) (interface{}, error)) (bool, error) {
	if hit, err := c.Get(ctx, key, dest); hit || err != nil {
		return hit, err
	}
	value, err := load(ctx)
	if err != nil {
		return false, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return false, err
	}
	_, err = c.Get(ctx, key, dest)
	return false, err
}

func TestDashboardSummaryCachesResult(t *testing.T) {
	repo := &fakeSummaryRepo{}
	cache := newMemoryCache()
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	first, hit, err := svc.Summary(context.Background(), "uni")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, first.TotalPasses)
	assert.False(t, first.GeneratedAt.IsZero())

	second, hit, err := svc.Summary(context.Background(), "uni")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, second.ActivePasses)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardSummaryInvalidatedWithPassQueries(t *testing.T) {
	repo := &fakeSummaryRepo{}
	cache := newMemoryCache()
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	_, _, err := svc.Summary(context.Background(), "uni")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(context.Background(), "passes:query:uni:*"))

	_, hit, err := svc.Summary(context.Background(), "uni")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardSummaryErrors(t *testing.T) {
	svc := NewDashboardService(&fakeSummaryRepo{err: errors.New("boom")}, nil, 0, nil)

	_, _, err := svc.Summary(context.Background(), "")
	require.Error(t, err)

	_, _, err = svc.Summary(context.Background(), "uni")
	require.Error(t, err)
}
