package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/unipass-api/internal/service"
	"github.com/noah-isme/unipass-api/pkg/response"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck probes one backing dependency.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// MetricsHandler serves the operational endpoints: probes, Prometheus and
// the in-process snapshot.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  []ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. Checks with a nil probe are
// ignored so optional dependencies can be passed unconditionally.
func NewMetricsHandler(metrics *service.MetricsService, checks ...ReadinessCheck) *MetricsHandler {
	active := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check.Probe != nil {
			active = append(active, check)
		}
	}
	return &MetricsHandler{metrics: metrics, checks: active}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is the liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every readiness check concurrently and answers 503 listing the
// components that failed.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.checks))
	var g errgroup.Group
	for i, check := range h.checks {
		i, check := i, check
		g.Go(func() error {
			if err := check.Probe(ctx); err != nil {
				results[i] = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]string)
	for i, check := range h.checks {
		if results[i] != "" {
			failed[check.Name] = results[i]
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// System godoc
// @Summary Process metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *MetricsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
