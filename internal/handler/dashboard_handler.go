package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/middleware"
	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, universityID string) (*models.PassSummary, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary University pass dashboard
// @Tags Dashboard
// @Produce json
// @Param X-University-ID header string false "University scope for super admins"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), middleware.UniversityID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
