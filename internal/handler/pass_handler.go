package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/middleware"
	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

type passService interface {
	Create(ctx context.Context, universityID string, req models.CreatePassRequest) (*models.Pass, error)
	List(ctx context.Context, filter models.PassListFilter) ([]models.Pass, *models.Pagination, error)
	Get(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error)
	Import(ctx context.Context, universityID string, r io.Reader) (*models.ImportResult, error)
	UpdateDue(ctx context.Context, universityID string, req models.UpdateDueRequest) error
	Deactivate(ctx context.Context, universityID string, key models.PassKey) error
	MarkInstalled(ctx context.Context, universityID string, key models.PassKey, req models.MarkInstalledRequest) (bool, error)
	Query(ctx context.Context, universityID string, req models.QueryPassesRequest) ([]models.Pass, *models.Pagination, bool, error)
	Export(ctx context.Context, universityID string, filter models.PassFilter, format models.ExportFormat) ([]byte, string, string, error)
}

// PassHandler exposes pass enrollment, billing and filtering endpoints.
type PassHandler struct {
	passes passService
}

// NewPassHandler constructs PassHandler.
func NewPassHandler(passes passService) *PassHandler {
	return &PassHandler{passes: passes}
}

// List godoc
// @Summary List passes
// @Tags Passes
// @Produce json
// @Param careerId query string false "Filter by career"
// @Param status query string false "Active or Inactive"
// @Param search query string false "Search by name, email or identifier"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /passes [get]
func (h *PassHandler) List(c *gin.Context) {
	filter := models.PassListFilter{
		UniversityID: universityFromContext(c),
		CareerID:     strings.TrimSpace(c.Query("careerId")),
		Search:       strings.TrimSpace(c.Query("search")),
	}
	switch status := models.PassStatus(c.Query("status")); status {
	case models.PassStatusActive, models.PassStatusInactive:
		filter.Status = &status
	case "":
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be Active or Inactive"))
		return
	}
	filter.Page, filter.PageSize = pageFromQuery(c)

	passes, pagination, err := h.passes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, passes, pagination)
}

// Get godoc
// @Summary Get pass
// @Tags Passes
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /passes/{careerId}/{uniqueIdentifier} [get]
func (h *PassHandler) Get(c *gin.Context) {
	pass, err := h.passes.Get(c.Request.Context(), universityFromContext(c), passKeyFromPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pass, nil)
}

// Create godoc
// @Summary Enroll pass
// @Tags Passes
// @Accept json
// @Produce json
// @Param payload body models.CreatePassRequest true "Pass payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /passes [post]
func (h *PassHandler) Create(c *gin.Context) {
	var req models.CreatePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	pass, err := h.passes.Create(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pass)
}

// Import godoc
// @Summary Import passes from XLSX
// @Description The first sheet must have a header row using the pass JSON field names
// @Tags Passes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Enrollment workbook"
// @Success 200 {object} response.Envelope
// @Router /passes/import [post]
func (h *PassHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "unable to read file"))
		return
	}
	defer file.Close()

	result, err := h.passes.Import(c.Request.Context(), universityFromContext(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateDue godoc
// @Summary Update payment data in batch
// @Description Applies every item or none; duplicate keys reject the batch
// @Tags Passes
// @Accept json
// @Produce json
// @Param payload body models.UpdateDueRequest true "Batch payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /passes/update-due [put]
func (h *PassHandler) UpdateDue(c *gin.Context) {
	var req models.UpdateDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	if err := h.passes.UpdateDue(c.Request.Context(), universityFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate pass
// @Tags Passes
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 204
// @Router /passes/{careerId}/{uniqueIdentifier} [delete]
func (h *PassHandler) Deactivate(c *gin.Context) {
	if err := h.passes.Deactivate(c.Request.Context(), universityFromContext(c), passKeyFromPath(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkInstalled godoc
// @Summary Mark pass installed on a wallet
// @Tags Passes
// @Accept json
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Param payload body models.MarkInstalledRequest true "Platform"
// @Success 200 {object} response.Envelope
// @Router /passes/{careerId}/{uniqueIdentifier}/installed [post]
func (h *PassHandler) MarkInstalled(c *gin.Context) {
	var req models.MarkInstalledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	changed, err := h.passes.MarkInstalled(c.Request.Context(), universityFromContext(c), passKeyFromPath(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"changed": changed}, nil)
}

// Query godoc
// @Summary Filter passes
// @Description Returns active passes matching every clause of the filter
// @Tags Passes
// @Accept json
// @Produce json
// @Param payload body models.QueryPassesRequest true "Filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /passes/query [post]
func (h *PassHandler) Query(c *gin.Context) {
	var req models.QueryPassesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid filter payload"))
		return
	}
	passes, pagination, cacheHit, err := h.passes.Query(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, passes, pagination, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export filtered roster
// @Tags Passes
// @Accept json
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Param payload body models.PassFilter false "Filter"
// @Success 200 {file} file
// @Router /passes/export [post]
func (h *PassHandler) Export(c *gin.Context) {
	var filter models.PassFilter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&filter); err != nil {
			response.Error(c, appErrors.Invalid(err, "invalid filter payload"))
			return
		}
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	data, filename, contentType, err := h.passes.Export(c.Request.Context(), universityFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, data)
}
