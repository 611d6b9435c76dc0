package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type fakeNotificationSrv struct {
	err     error
	lastUni string
	lastReq models.SendNotificationRequest
}

func (f *fakeNotificationSrv) Types() []models.NotificationTypeInfo {
	return []models.NotificationTypeInfo{{Type: models.NotificationTypes[0]}}
}

func (f *fakeNotificationSrv) Send(_ context.Context, uni string, req models.SendNotificationRequest) (*models.NotificationDispatch, error) {
	f.lastUni, f.lastReq = uni, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.NotificationDispatch{Type: req.Type}, nil
}

func TestNotificationHandlerTypes(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{})

	c, rec := newScopedContext(http.MethodGet, "/notifications/types", nil)
	serve(c, handler.Types)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, string(models.NotificationTypes[0]), envelope.Data[0]["type"])
}

func TestNotificationHandlerSendAccepted(t *testing.T) {
	srv := &fakeNotificationSrv{}
	handler := NewNotificationHandler(srv)

	payload := `{"type":"` + string(models.NotificationTypes[0]) + `","filter":{"paymentStatus":["Overdue"]}}`
	c, rec := newScopedContext(http.MethodPost, "/notifications", bytes.NewBufferString(payload))
	serve(c, handler.Send)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "uni-1", srv.lastUni)
	assert.Equal(t, models.NotificationTypes[0], srv.lastReq.Type)
}

func TestNotificationHandlerSendValidation(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{err: appErrors.Clone(appErrors.ErrValidation, "unknown notification type")})

	c, rec := newScopedContext(http.MethodPost, "/notifications", bytes.NewBufferString(`{"type":"nope"}`))
	serve(c, handler.Send)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
