package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/service"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

// CareerHandler exposes career endpoints scoped to the caller's university.
type CareerHandler struct {
	careers *service.CareerService
}

// NewCareerHandler constructs CareerHandler.
func NewCareerHandler(careers *service.CareerService) *CareerHandler {
	return &CareerHandler{careers: careers}
}

// List godoc
// @Summary List careers
// @Tags Careers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /careers [get]
func (h *CareerHandler) List(c *gin.Context) {
	careers, err := h.careers.List(c.Request.Context(), universityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, careers, nil)
}

// Get godoc
// @Summary Get career
// @Tags Careers
// @Produce json
// @Param code path string true "Career code"
// @Success 200 {object} response.Envelope
// @Router /careers/{code} [get]
func (h *CareerHandler) Get(c *gin.Context) {
	career, err := h.careers.Get(c.Request.Context(), universityFromContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}

// Create godoc
// @Summary Create career
// @Tags Careers
// @Accept json
// @Produce json
// @Param payload body models.CreateCareerRequest true "Career payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /careers [post]
func (h *CareerHandler) Create(c *gin.Context) {
	var req models.CreateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	career, err := h.careers.Create(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, career)
}

// Update godoc
// @Summary Rename career
// @Tags Careers
// @Accept json
// @Produce json
// @Param code path string true "Career code"
// @Param payload body models.UpdateCareerRequest true "Career payload"
// @Success 200 {object} response.Envelope
// @Router /careers/{code} [put]
func (h *CareerHandler) Update(c *gin.Context) {
	var req models.UpdateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	career, err := h.careers.Update(c.Request.Context(), universityFromContext(c), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}
