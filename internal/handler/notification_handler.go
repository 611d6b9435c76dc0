package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

type notificationService interface {
	Types() []models.NotificationTypeInfo
	Send(ctx context.Context, universityID string, req models.SendNotificationRequest) (*models.NotificationDispatch, error)
}

// NotificationHandler exposes wallet notification endpoints.
type NotificationHandler struct {
	notifications notificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Types godoc
// @Summary List notification types
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/types [get]
func (h *NotificationHandler) Types(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.notifications.Types(), nil)
}

// Send godoc
// @Summary Queue a notification for passes matching a filter
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.SendNotificationRequest true "Notification payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	dispatch, err := h.notifications.Send(c.Request.Context(), universityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, dispatch, nil)
}
