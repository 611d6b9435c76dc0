package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

type deviceService interface {
	Register(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serial string, req models.RegisterDeviceRequest) (bool, error)
	Unregister(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serial string) error
	UpdatedSerials(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, passesUpdatedSince string) (*models.SerialNumbersResponse, error)
	LatestPass(ctx context.Context, passTypeIdentifier, serial string) ([]byte, time.Time, error)
	Log(req models.DeviceLogRequest)
}

// PassKitHandler implements the Apple Wallet web service protocol. Its
// responses are plain JSON, not the API envelope, because devices parse them.
type PassKitHandler struct {
	devices deviceService
}

// NewPassKitHandler constructs PassKitHandler.
func NewPassKitHandler(devices deviceService) *PassKitHandler {
	return &PassKitHandler{devices: devices}
}

// Register handles POST /v1/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber.
// It answers 201 for a new registration and 200 when the device already had one.
func (h *PassKitHandler) Register(c *gin.Context) {
	var req models.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	created, err := h.devices.Register(c.Request.Context(), c.Param("deviceLibraryIdentifier"), c.Param("passTypeIdentifier"), c.Param("serialNumber"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !created {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusCreated)
}

// Unregister handles DELETE on the registration path.
func (h *PassKitHandler) Unregister(c *gin.Context) {
	err := h.devices.Unregister(c.Request.Context(), c.Param("deviceLibraryIdentifier"), c.Param("passTypeIdentifier"), c.Param("serialNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SerialNumbers handles GET /v1/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier.
func (h *PassKitHandler) SerialNumbers(c *gin.Context) {
	resp, err := h.devices.UpdatedSerials(c.Request.Context(), c.Param("deviceLibraryIdentifier"), c.Param("passTypeIdentifier"), c.Query("passesUpdatedSince"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LatestPass handles GET /v1/passes/:passTypeIdentifier/:serialNumber.
func (h *PassKitHandler) LatestPass(c *gin.Context) {
	data, updatedAt, err := h.devices.LatestPass(c.Request.Context(), c.Param("passTypeIdentifier"), c.Param("serialNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if since := c.GetHeader("If-Modified-Since"); since != "" && !updatedAt.IsZero() {
		if t, parseErr := http.ParseTime(since); parseErr == nil && !updatedAt.Truncate(time.Second).After(t) {
			c.Status(http.StatusNotModified)
			return
		}
	}
	if !updatedAt.IsZero() {
		c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	}
	c.Data(http.StatusOK, pkpassContentType, data)
}

// Log handles POST /v1/log.
func (h *PassKitHandler) Log(c *gin.Context) {
	var req models.DeviceLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	h.devices.Log(req)
	c.Status(http.StatusOK)
}
