package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/service"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

// UniversityHandler exposes university endpoints to super administrators.
type UniversityHandler struct {
	universities *service.UniversityService
}

// NewUniversityHandler constructs UniversityHandler.
func NewUniversityHandler(universities *service.UniversityService) *UniversityHandler {
	return &UniversityHandler{universities: universities}
}

// List godoc
// @Summary List universities
// @Tags Universities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *UniversityHandler) List(c *gin.Context) {
	universities, err := h.universities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, universities, nil)
}

// Get godoc
// @Summary Get university
// @Tags Universities
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Router /universities/{id} [get]
func (h *UniversityHandler) Get(c *gin.Context) {
	university, err := h.universities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}

// Create godoc
// @Summary Create university
// @Tags Universities
// @Accept json
// @Produce json
// @Param payload body models.UpsertUniversityRequest true "University payload"
// @Success 201 {object} response.Envelope
// @Router /universities [post]
func (h *UniversityHandler) Create(c *gin.Context) {
	var req models.UpsertUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	university, err := h.universities.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, university)
}

// Update godoc
// @Summary Rename university
// @Tags Universities
// @Accept json
// @Produce json
// @Param id path string true "University ID"
// @Param payload body models.UpsertUniversityRequest true "University payload"
// @Success 200 {object} response.Envelope
// @Router /universities/{id} [put]
func (h *UniversityHandler) Update(c *gin.Context) {
	var req models.UpsertUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	university, err := h.universities.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}
