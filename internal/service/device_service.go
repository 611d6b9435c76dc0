package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/repository"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/validation"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
)

const applePassAuthScheme = "ApplePass "

type deviceRepository interface {
	apple.DeviceRepository
	ListSerialsForDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier string, since *time.Time) ([]repository.SerialUpdate, error)
}

type devicePassRepository interface {
	FindBySerial(ctx context.Context, serial string) (*models.Pass, error)
	MarkInstalled(ctx context.Context, passID string, platform models.WalletPlatform) (bool, error)
}

type latestPassProvider interface {
	LatestApplePass(ctx context.Context, serial string) ([]byte, time.Time, error)
}

// DeviceService implements the PassKit web service used by Apple devices.
type DeviceService struct {
	devices     deviceRepository
	passes      devicePassRepository
	wallet      latestPassProvider
	validator   *validator.Validate
	logger      *zap.Logger
	tokenSecret string
	passTypeID  string
}

// NewDeviceService constructs the PassKit web service.
func NewDeviceService(devices deviceRepository, passes devicePassRepository, wallet latestPassProvider, validate *validator.Validate, logger *zap.Logger, passTypeID, tokenSecret string) *DeviceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceService{
		devices:     devices,
		passes:      passes,
		wallet:      wallet,
		validator:   validate,
		logger:      logger,
		tokenSecret: tokenSecret,
		passTypeID:  passTypeID,
	}
}

// Authenticate checks an "ApplePass <token>" header against the pass serial.
func (s *DeviceService) Authenticate(serial, header string) error {
	if !strings.HasPrefix(header, applePassAuthScheme) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing pass authentication token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, applePassAuthScheme))
	expected := apple.AuthenticationToken(serial, s.tokenSecret)
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid pass authentication token")
	}
	return nil
}

// Register stores a device registration and marks the pass installed on
// Apple. It reports whether the registration is new; a repeated registration
// only refreshes the push token.
func (s *DeviceService) Register(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serial string, req models.RegisterDeviceRequest) (bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Invalid(err, "invalid registration payload")
	}
	if err := s.checkPassType(passTypeIdentifier); err != nil {
		return false, err
	}
	pass, err := s.passes.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass")
	}
	created, err := s.devices.RegisterDevice(ctx, deviceLibraryIdentifier, passTypeIdentifier, serial, req.PushToken)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register device")
	}
	changed, err := s.passes.MarkInstalled(ctx, pass.ID, models.PlatformApple)
	if err != nil {
		s.logger.Warn("failed to mark apple installation", zap.String("pass_id", pass.ID), zap.Error(err))
	} else if changed {
		s.logger.Info("apple pass installed", zap.String("pass_id", pass.ID), zap.String("serial", serial))
	}
	return created, nil
}

// Unregister removes a device registration.
func (s *DeviceService) Unregister(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serial string) error {
	if err := s.checkPassType(passTypeIdentifier); err != nil {
		return err
	}
	if err := s.devices.UnregisterDevice(ctx, deviceLibraryIdentifier, passTypeIdentifier, serial); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unregister device")
	}
	return nil
}

// UpdatedSerials lists the serials on a device changed after passesUpdatedSince.
// A nil response means nothing changed.
func (s *DeviceService) UpdatedSerials(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, passesUpdatedSince string) (*models.SerialNumbersResponse, error) {
	if err := s.checkPassType(passTypeIdentifier); err != nil {
		return nil, err
	}
	var since *time.Time
	if raw := strings.TrimSpace(passesUpdatedSince); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "passesUpdatedSince must be a previously returned lastUpdated tag")
		}
		since = &parsed
	}
	updates, err := s.devices.ListSerialsForDevice(ctx, deviceLibraryIdentifier, passTypeIdentifier, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list serials")
	}
	if len(updates) == 0 {
		return nil, nil
	}
	resp := &models.SerialNumbersResponse{SerialNumbers: make([]string, 0, len(updates))}
	var latest time.Time
	for _, u := range updates {
		resp.SerialNumbers = append(resp.SerialNumbers, u.SerialNumber)
		if u.UpdatedAt.After(latest) {
			latest = u.UpdatedAt
		}
	}
	resp.LastUpdated = latest.UTC().Format(time.RFC3339Nano)
	return resp, nil
}

// LatestPass returns a freshly signed bundle for serial.
func (s *DeviceService) LatestPass(ctx context.Context, passTypeIdentifier, serial string) ([]byte, time.Time, error) {
	if err := s.checkPassType(passTypeIdentifier); err != nil {
		return nil, time.Time{}, err
	}
	return s.wallet.LatestApplePass(ctx, serial)
}

// Log records diagnostic messages sent by devices.
func (s *DeviceService) Log(req models.DeviceLogRequest) {
	for _, line := range req.Logs {
		s.logger.Info("passkit device log", zap.String("message", line))
	}
}

func (s *DeviceService) checkPassType(passTypeIdentifier string) error {
	if s.passTypeID != "" && passTypeIdentifier != s.passTypeID {
		return appErrors.Clone(appErrors.ErrNotFound, "unknown pass type identifier")
	}
	return nil
}
