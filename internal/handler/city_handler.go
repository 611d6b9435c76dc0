package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/service"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

// CityHandler exposes city endpoints scoped to the caller's university.
type CityHandler struct {
	cities *service.CityService
}

// NewCityHandler constructs CityHandler.
func NewCityHandler(cities *service.CityService) *CityHandler {
	return &CityHandler{cities: cities}
}

// List godoc
// @Summary List cities
// @Tags Cities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cities [get]
func (h *CityHandler) List(c *gin.Context) {
	cities, err := h.cities.List(c.Request.Context(), universityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cities, nil)
}

// Get godoc
// @Summary Get city
// @Tags Cities
// @Produce json
// @Param code path string true "City code"
// @Success 200 {object} response.Envelope
// @Router /cities/{code} [get]
func (h *CityHandler) Get(c *gin.Context) {
	city, err := h.cities.Get(c.Request.Context(), universityFromContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, city, nil)
}

// Create godoc
// @Summary Create city
// @Tags Cities
// @Accept json
// @Produce json
// @Param payload body models.CreateCityRequest true "City payload"
// @Success 201 {object} response.Envelope
// @Router /cities [post]
func (h *CityHandler) Create(c *gin.Context) {
	var req models.CreateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	city, err := h.cities.Create(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, city)
}

// CreateMany godoc
// @Summary Create cities in batch
// @Description Codes must be unique within the batch and the university
// @Tags Cities
// @Accept json
// @Produce json
// @Param payload body models.CreateManyCitiesRequest true "Cities payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cities/batch [post]
func (h *CityHandler) CreateMany(c *gin.Context) {
	var req models.CreateManyCitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	cities, err := h.cities.CreateMany(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cities)
}

// Update godoc
// @Summary Rename city
// @Tags Cities
// @Accept json
// @Produce json
// @Param code path string true "City code"
// @Param payload body models.UpdateCityRequest true "City payload"
// @Success 200 {object} response.Envelope
// @Router /cities/{code} [put]
func (h *CityHandler) Update(c *gin.Context) {
	var req models.UpdateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	city, err := h.cities.Update(c.Request.Context(), universityFromContext(c), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, city, nil)
}
