package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

type tagService interface {
	List(ctx context.Context, universityID string) ([]models.Tag, error)
	Get(ctx context.Context, universityID, id string) (*models.Tag, error)
	Create(ctx context.Context, universityID string, req models.CreateTagRequest) (*models.Tag, error)
	Update(ctx context.Context, universityID, id string, req models.UpdateTagRequest) (*models.Tag, error)
	ListOptions(ctx context.Context, universityID, tagID string) ([]models.ListTagOption, error)
	CreateOption(ctx context.Context, universityID, tagID string, req models.UpsertListTagOptionRequest) (*models.ListTagOption, error)
	UpdateOption(ctx context.Context, universityID, tagID, optionID string, req models.UpsertListTagOptionRequest) (*models.ListTagOption, error)
	DeleteOption(ctx context.Context, universityID, tagID, optionID string) error
	PassValues(ctx context.Context, universityID string, key models.PassKey) (map[string]models.TagValue, error)
	SetValue(ctx context.Context, universityID, tagID string, req models.SetTagValueRequest) (*models.TagValue, error)
}

// TagHandler exposes custom tag definitions and per-pass values.
type TagHandler struct {
	tags tagService
}

// NewTagHandler constructs TagHandler.
func NewTagHandler(tags tagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// List godoc
// @Summary List tags
// @Tags Tags
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tags [get]
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context(), universityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Get godoc
// @Summary Get tag
// @Tags Tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} response.Envelope
// @Router /tags/{id} [get]
func (h *TagHandler) Get(c *gin.Context) {
	tag, err := h.tags.Get(c.Request.Context(), universityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tag, nil)
}

// Create godoc
// @Summary Create tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param payload body models.CreateTagRequest true "Tag payload"
// @Success 201 {object} response.Envelope
// @Router /tags [post]
func (h *TagHandler) Create(c *gin.Context) {
	var req models.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tag)
}

// Update godoc
// @Summary Update tag name and description
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param payload body models.UpdateTagRequest true "Tag payload"
// @Success 200 {object} response.Envelope
// @Router /tags/{id} [put]
func (h *TagHandler) Update(c *gin.Context) {
	var req models.UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	tag, err := h.tags.Update(c.Request.Context(), universityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tag, nil)
}

// ListOptions godoc
// @Summary List options of a list tag
// @Tags Tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} response.Envelope
// @Router /tags/{id}/options [get]
func (h *TagHandler) ListOptions(c *gin.Context) {
	options, err := h.tags.ListOptions(c.Request.Context(), universityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// CreateOption godoc
// @Summary Add option to a list tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param payload body models.UpsertListTagOptionRequest true "Option payload"
// @Success 201 {object} response.Envelope
// @Router /tags/{id}/options [post]
func (h *TagHandler) CreateOption(c *gin.Context) {
	var req models.UpsertListTagOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	option, err := h.tags.CreateOption(c.Request.Context(), universityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, option)
}

// UpdateOption godoc
// @Summary Update a list tag option
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param optionId path string true "Option ID"
// @Param payload body models.UpsertListTagOptionRequest true "Option payload"
// @Success 200 {object} response.Envelope
// @Router /tags/{id}/options/{optionId} [put]
func (h *TagHandler) UpdateOption(c *gin.Context) {
	var req models.UpsertListTagOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	option, err := h.tags.UpdateOption(c.Request.Context(), universityFromContext(c), c.Param("id"), c.Param("optionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, option, nil)
}

// DeleteOption godoc
// @Summary Delete a list tag option
// @Tags Tags
// @Param id path string true "Tag ID"
// @Param optionId path string true "Option ID"
// @Success 204
// @Router /tags/{id}/options/{optionId} [delete]
func (h *TagHandler) DeleteOption(c *gin.Context) {
	if err := h.tags.DeleteOption(c.Request.Context(), universityFromContext(c), c.Param("id"), c.Param("optionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetValue godoc
// @Summary Set tag value on a pass
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param payload body models.SetTagValueRequest true "Value payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tags/{id}/values [put]
func (h *TagHandler) SetValue(c *gin.Context) {
	var req models.SetTagValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	value, err := h.tags.SetValue(c.Request.Context(), universityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, value, nil)
}

// PassValues godoc
// @Summary List tag values of a pass
// @Tags Tags
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 200 {object} response.Envelope
// @Router /passes/{careerId}/{uniqueIdentifier}/tags [get]
func (h *TagHandler) PassValues(c *gin.Context) {
	values, err := h.tags.PassValues(c.Request.Context(), universityFromContext(c), passKeyFromPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, values, nil)
}
