package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 10*time.Millisecond)
	m.ObserveWalletOperation(models.PlatformGoogle, "create_pass", time.Millisecond, nil)
	m.ObserveWalletOperation(models.PlatformApple, "push", time.Millisecond, errors.New("boom"))
	m.RecordNotification(models.PlatformGoogle, true)
	m.RecordNotification(models.PlatformApple, false)

	snap := m.Snapshot()
	assert.Equal(t, 0.5, snap.CacheHitRatio)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.Equal(t, uint64(2), snap.WalletOperations)
	assert.Equal(t, uint64(1), snap.WalletFailures)
	assert.Equal(t, uint64(1), snap.NotificationsSent)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wallet_operations_total{operation="push",platform="apple",result="failure"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveWalletOperation(models.PlatformApple, "push", time.Second, nil)
	m.RecordNotification(models.PlatformApple, true)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubQueue struct {
	name  string
	depth int
}

func (q stubQueue) Name() string { return q.name }
func (q stubQueue) Depth() int   { return q.depth }

func TestMetricsServiceQueueDepth(t *testing.T) {
	m := NewMetricsService()
	m.RegisterQueue(stubQueue{name: "notifications", depth: 3})
	m.RegisterQueue(stubQueue{name: "notifications", depth: 9})

	assert.Equal(t, map[string]int{"notifications": 3}, m.Snapshot().QueueDepths)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `queue_depth{queue="notifications"} 3`)
}
