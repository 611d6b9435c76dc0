package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
)

type fakeDashboardSrv struct {
	summary    *models.PassSummary
	hit        bool
	err        error
	university string
}

func (f *fakeDashboardSrv) Summary(_ context.Context, universityID string) (*models.PassSummary, bool, error) {
	f.university = universityID
	return f.summary, f.hit, f.err
}

func TestDashboardHandlerSummaryCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{summary: &models.PassSummary{UniversityID: "uni-1", TotalPasses: 12}, hit: true}
	handler := NewDashboardHandler(srv)

	c, rec := newScopedContext(http.MethodGet, "/dashboard", nil)
	serve(c, handler.Summary)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uni-1", srv.university)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, float64(12), envelope.Data["totalPasses"])
}

func TestDashboardHandlerSummaryError(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{err: errors.New("db down")})

	c, rec := newScopedContext(http.MethodGet, "/dashboard", nil)
	serve(c, handler.Summary)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
