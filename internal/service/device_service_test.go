package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/repository"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
)

type fakeDeviceRepo struct {
	registered map[string]string
	updates    []repository.SerialUpdate
	since      *time.Time
}

func (f *fakeDeviceRepo) RegisterDevice(_ context.Context, dli, _, serial, pushToken string) (bool, error) {
	if f.registered == nil {
		f.registered = map[string]string{}
	}
	_, existed := f.registered[dli+"/"+serial]
	f.registered[dli+"/"+serial] = pushToken
	return !existed, nil
}

func (f *fakeDeviceRepo) UnregisterDevice(_ context.Context, dli, _, serial string) error {
	delete(f.registered, dli+"/"+serial)
	return nil
}

func (f *fakeDeviceRepo) ListSerialsForDevice(_ context.Context, _, _ string, since *time.Time) ([]repository.SerialUpdate, error) {
	f.since = since
	return f.updates, nil
}

type fakeDevicePassRepo struct {
	pass      *models.Pass
	installed int
}

func (f *fakeDevicePassRepo) FindBySerial(_ context.Context, serial string) (*models.Pass, error) {
	if f.pass == nil || f.pass.AppleWalletSerialNumber == nil || *f.pass.AppleWalletSerialNumber != serial {
		return nil, sql.ErrNoRows
	}
	return f.pass, nil
}

func (f *fakeDevicePassRepo) MarkInstalled(_ context.Context, _ string, platform models.WalletPlatform) (bool, error) {
	if platform != models.PlatformApple {
		return false, nil
	}
	f.installed++
	return f.installed == 1, nil
}

type fakeLatestPass struct{}

func (fakeLatestPass) LatestApplePass(_ context.Context, serial string) ([]byte, time.Time, error) {
	return []byte(serial), time.Unix(0, 0), nil
}

func TestDeviceServiceAuthenticate(t *testing.T) {
	svc := NewDeviceService(&fakeDeviceRepo{}, &fakeDevicePassRepo{}, fakeLatestPass{}, nil, nil, "pass.example", "secret")

	require.NoError(t, svc.Authenticate("serial-1", "ApplePass "+apple.AuthenticationToken("serial-1", "secret")))

	err := svc.Authenticate("serial-1", "ApplePass "+apple.AuthenticationToken("serial-2", "secret"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	require.Error(t, svc.Authenticate("serial-1", "Bearer abc"))
}

func TestDeviceServiceRegisterMarksInstalled(t *testing.T) {
	pass := walletTestPass()
	pass.AppleWalletSerialNumber = strPtr("serial-1")
	devices := &fakeDeviceRepo{}
	passes := &fakeDevicePassRepo{pass: &pass}
	svc := NewDeviceService(devices, passes, fakeLatestPass{}, nil, nil, "pass.example", "secret")

	req := models.RegisterDeviceRequest{PushToken: "token"}
	created, err := svc.Register(context.Background(), "dev-1", "pass.example", "serial-1", req)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Register(context.Background(), "dev-2", "pass.example", "serial-1", req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "token", devices.registered["dev-1/serial-1"])
	assert.Equal(t, 2, passes.installed)

	created, err = svc.Register(context.Background(), "dev-1", "pass.example", "serial-1", models.RegisterDeviceRequest{PushToken: "token-2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "token-2", devices.registered["dev-1/serial-1"])

	_, err = svc.Register(context.Background(), "dev-1", "pass.example", "unknown", req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDeviceServiceRegisterRejectsForeignPassType(t *testing.T) {
	svc := NewDeviceService(&fakeDeviceRepo{}, &fakeDevicePassRepo{}, fakeLatestPass{}, nil, nil, "pass.example", "secret")
	_, err := svc.Register(context.Background(), "dev-1", "pass.other", "serial-1", models.RegisterDeviceRequest{PushToken: "t"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDeviceServiceUpdatedSerials(t *testing.T) {
	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	devices := &fakeDeviceRepo{updates: []repository.SerialUpdate{
		{SerialNumber: "s1", UpdatedAt: first},
		{SerialNumber: "s2", UpdatedAt: second},
	}}
	svc := NewDeviceService(devices, &fakeDevicePassRepo{}, fakeLatestPass{}, nil, nil, "pass.example", "secret")

	resp, err := svc.UpdatedSerials(context.Background(), "dev-1", "pass.example", first.Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NotNil(t, devices.since)
	assert.True(t, devices.since.Equal(first))
	assert.Equal(t, []string{"s1", "s2"}, resp.SerialNumbers)
	assert.Equal(t, second.Format(time.RFC3339Nano), resp.LastUpdated)

	devices.updates = nil
	resp, err = svc.UpdatedSerials(context.Background(), "dev-1", "pass.example", "")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Nil(t, devices.since)

	_, err = svc.UpdatedSerials(context.Background(), "dev-1", "pass.example", "yesterday")
	require.Error(t, err)
}

func TestDeviceServiceLatestPass(t *testing.T) {
	svc := NewDeviceService(&fakeDeviceRepo{}, &fakeDevicePassRepo{}, fakeLatestPass{}, nil, nil, "pass.example", "secret")
	data, _, err := svc.LatestPass(context.Background(), "pass.example", "serial-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("serial-1"), data)
}
