package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
	"github.com/noah-isme/unipass-api/pkg/wallet/google"
)

type walletPassRepository interface {
	FindByKey(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error)
	FindBySerial(ctx context.Context, serial string) (*models.Pass, error)
	SetAppleSerial(ctx context.Context, passID, serial string) error
	SetGoogleObjectID(ctx context.Context, passID, objectID string) error
}

type walletDeviceRepository interface {
	ListBySerial(ctx context.Context, serialNumber string) ([]models.AppleDevice, error)
}

// AppleWallet renders and pushes PassKit passes.
type AppleWallet interface {
	GeneratePass(ctx context.Context, props apple.IssueProps, images apple.Images, creds apple.Credentials, webServiceURL, tokenSecret string) ([]byte, error)
	SendSilentPushNotification(ctx context.Context, pusher apple.Pusher, devices []apple.Device) error
}

// GoogleWallet manages generic objects on the Google Wallet API.
type GoogleWallet interface {
	IssuerID() string
	CreatePass(ctx context.Context, objectID, classID string, props google.IssueProps, origin string) (string, error)
	UpdatePass(ctx context.Context, objectID string, patch google.UpdateProps) error
	SendPassNotification(ctx context.Context, objectID, header, body string) error
	CreatePassClass(ctx context.Context, suffix string) (string, error)
}

type passFileStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, time.Time, error)
}

type downloadSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subject, relPath string, expiresAt time.Time, err error)
}

// AppleWalletSettings carries the PassKit material loaded at startup.
type AppleWalletSettings struct {
	Credentials   apple.Credentials
	Images        apple.Images
	WebServiceURL string
	TokenSecret   string
}

// GoogleWalletSettings carries the presentation defaults of Google passes.
type GoogleWalletSettings struct {
	ClassSuffix   string
	Origin        string
	LogoURI       string
	HeroURI       string
	HexBackground string
}

// WalletServiceConfig groups wallet settings. A nil manager disables its platform.
type WalletServiceConfig struct {
	Apple         AppleWalletSettings
	Google        GoogleWalletSettings
	PublicBaseURL string
	APIPrefix     string
}

// WalletService provisions and refreshes passes on Apple and Google wallets.
type WalletService struct {
	passes  walletPassRepository
	devices walletDeviceRepository
	apple   AppleWallet
	pusher  apple.Pusher
	google  GoogleWallet
	store   passFileStore
	signer  downloadSigner
	metrics *MetricsService
	logger  *zap.Logger
	config  WalletServiceConfig
}

// NewWalletService constructs the wallet service.
func NewWalletService(passes walletPassRepository, devices walletDeviceRepository, appleManager AppleWallet, pusher apple.Pusher,
	googleManager GoogleWallet, store passFileStore, signer downloadSigner, metrics *MetricsService, logger *zap.Logger, cfg WalletServiceConfig) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{
		passes:  passes,
		devices: devices,
		apple:   appleManager,
		pusher:  pusher,
		google:  googleManager,
		store:   store,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
}

// IssueApplePass generates a signed .pkpass for the pass, stores it and
// returns a signed download URL.
func (s *WalletService) IssueApplePass(ctx context.Context, universityID string, key models.PassKey) (*models.IssueApplePassResponse, error) {
	if s.apple == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "apple wallet is not configured")
	}
	pass, err := s.loadPass(ctx, universityID, key)
	if err != nil {
		return nil, err
	}
	serial := ""
	if pass.AppleWalletSerialNumber != nil {
		serial = *pass.AppleWalletSerialNumber
	}
	if serial == "" {
		serial = uuid.NewString()
		if err := s.passes.SetAppleSerial(ctx, pass.ID, serial); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link apple serial")
		}
		pass.AppleWalletSerialNumber = &serial
	}

	relPath, err := s.renderApplePass(ctx, *pass, serial)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(serial, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &models.IssueApplePassResponse{
		SerialNumber: serial,
		DownloadURL:  fmt.Sprintf("%s%s/wallet/apple/download/%s", s.config.PublicBaseURL, s.config.APIPrefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadApplePass returns the stored bundle referenced by a signed token.
func (s *WalletService) DownloadApplePass(ctx context.Context, token string) ([]byte, string, error) {
	serial, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	data, _, err := s.store.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "pass bundle not found")
	}
	return data, serial + ".pkpass", nil
}

// LatestApplePass regenerates the bundle for serial from current data. It is
// served to devices polling the PassKit web service.
func (s *WalletService) LatestApplePass(ctx context.Context, serial string) ([]byte, time.Time, error) {
	if s.apple == nil {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrUnavailable, "apple wallet is not configured")
	}
	pass, err := s.passes.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
		}
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass")
	}
	relPath, err := s.renderApplePass(ctx, *pass, serial)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, _, err := s.store.Read(relPath)
	if err != nil {
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read pass bundle")
	}
	return data, pass.UpdatedAt, nil
}

// PushApplePass asks every device holding serial to fetch the latest version.
func (s *WalletService) PushApplePass(ctx context.Context, serial string) error {
	if s.apple == nil || s.pusher == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "apple push is not configured")
	}
	registrations, err := s.devices.ListBySerial(ctx, serial)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load devices")
	}
	devices := make([]apple.Device, len(registrations))
	for i, r := range registrations {
		devices[i] = apple.Device{PassSerialNumber: r.SerialNumber, PushToken: r.PushToken, PassTypeIdentifier: r.PassTypeIdentifier}
	}
	start := time.Now()
	err = s.apple.SendSilentPushNotification(ctx, s.pusher, devices)
	s.metrics.ObserveWalletOperation(models.PlatformApple, "push", time.Since(start), err)
	return err
}

// IssueGooglePass builds the Google object of the pass and returns its save link.
func (s *WalletService) IssueGooglePass(ctx context.Context, universityID string, key models.PassKey) (*models.IssueGooglePassResponse, error) {
	if s.google == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "google wallet is not configured")
	}
	pass, err := s.loadPass(ctx, universityID, key)
	if err != nil {
		return nil, err
	}
	objectID := pass.ID
	classID := s.google.IssuerID() + "." + s.config.Google.ClassSuffix

	start := time.Now()
	link, err := s.google.CreatePass(ctx, objectID, classID, s.googleIssueProps(*pass), s.config.Google.Origin)
	s.metrics.ObserveWalletOperation(models.PlatformGoogle, "create_pass", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if pass.GoogleWalletObjectID == nil || *pass.GoogleWalletObjectID != objectID {
		if err := s.passes.SetGoogleObjectID(ctx, pass.ID, objectID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link google object")
		}
	}
	return &models.IssueGooglePassResponse{ObjectID: objectID, SaveLink: link}, nil
}

// UpdateGooglePass merges the current pass data into its Google object.
func (s *WalletService) UpdateGooglePass(ctx context.Context, universityID string, key models.PassKey) error {
	if s.google == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "google wallet is not configured")
	}
	pass, err := s.loadPass(ctx, universityID, key)
	if err != nil {
		return err
	}
	if pass.GoogleWalletObjectID == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "pass has no google wallet object")
	}
	return s.updateGoogle(ctx, *pass)
}

// CreateGooglePassClass creates the Google class used by issued passes.
func (s *WalletService) CreateGooglePassClass(ctx context.Context, req models.CreatePassClassRequest) (*models.CreatePassClassResponse, error) {
	if s.google == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "google wallet is not configured")
	}
	suffix := strings.TrimSpace(req.Suffix)
	if suffix == "" {
		suffix = s.config.Google.ClassSuffix
	}
	start := time.Now()
	classID, err := s.google.CreatePassClass(ctx, suffix)
	s.metrics.ObserveWalletOperation(models.PlatformGoogle, "create_class", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &models.CreatePassClassResponse{ClassID: classID}, nil
}

// NotifyGoogle attaches a notifying message to the pass' Google object.
func (s *WalletService) NotifyGoogle(ctx context.Context, pass models.Pass, content models.NotificationContent) error {
	if s.google == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "google wallet is not configured")
	}
	if pass.GoogleWalletObjectID == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "pass has no google wallet object")
	}
	start := time.Now()
	err := s.google.SendPassNotification(ctx, *pass.GoogleWalletObjectID, content.Title, content.Body)
	s.metrics.ObserveWalletOperation(models.PlatformGoogle, "notify", time.Since(start), err)
	return err
}

// NotifyApple pushes an update to the devices holding the pass.
func (s *WalletService) NotifyApple(ctx context.Context, pass models.Pass) error {
	if pass.AppleWalletSerialNumber == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "pass has no apple wallet serial")
	}
	return s.PushApplePass(ctx, *pass.AppleWalletSerialNumber)
}

// PassesUpdated refreshes wallet copies after payment data changed. Failures
// are logged; the database update already succeeded.
func (s *WalletService) PassesUpdated(ctx context.Context, universityID string, keys []models.PassKey) {
	for _, key := range keys {
		pass, err := s.passes.FindByKey(ctx, universityID, key)
		if err != nil {
			s.logger.Warn("wallet refresh skipped", zap.String("unique_identifier", key.UniqueIdentifier), zap.Error(err))
			continue
		}
		if s.google != nil && pass.GoogleWalletObjectID != nil {
			if err := s.updateGoogle(ctx, *pass); err != nil {
				s.logger.Warn("google wallet refresh failed", zap.String("pass_id", pass.ID), zap.Error(err))
			}
		}
		if s.apple != nil && s.pusher != nil && pass.AppleWalletSerialNumber != nil {
			if err := s.PushApplePass(ctx, *pass.AppleWalletSerialNumber); err != nil {
				s.logger.Warn("apple wallet refresh failed", zap.String("pass_id", pass.ID), zap.Error(err))
			}
		}
	}
}

func (s *WalletService) updateGoogle(ctx context.Context, pass models.Pass) error {
	start := time.Now()
	err := s.google.UpdatePass(ctx, *pass.GoogleWalletObjectID, s.googleUpdateProps(pass))
	s.metrics.ObserveWalletOperation(models.PlatformGoogle, "update_pass", time.Since(start), err)
	return err
}

func (s *WalletService) renderApplePass(ctx context.Context, pass models.Pass, serial string) (string, error) {
	start := time.Now()
	bundle, err := s.apple.GeneratePass(ctx, appleIssueProps(pass, serial), s.config.Apple.Images, s.config.Apple.Credentials,
		s.config.Apple.WebServiceURL, s.config.Apple.TokenSecret)
	s.metrics.ObserveWalletOperation(models.PlatformApple, "generate_pass", time.Since(start), err)
	if err != nil {
		return "", err
	}
	relPath, err := s.store.Save(serial+".pkpass", bundle)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pass bundle")
	}
	return relPath, nil
}

func (s *WalletService) loadPass(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error) {
	pass, err := s.passes.FindByKey(ctx, universityID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass")
	}
	if pass.Status != models.PassStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pass is inactive")
	}
	return pass, nil
}

func paymentStatusLabel(status models.PaymentStatus) string {
	switch status {
	case models.PaymentStatusPaid:
		return "Pagado"
	case models.PaymentStatusOverdue:
		return "Vencido"
	default:
		return "Pendiente"
	}
}

func formatAmount(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 0, 64)
}

func appleIssueProps(pass models.Pass, serial string) apple.IssueProps {
	back := []apple.FieldContent{
		{Key: "paymentReference", Label: "Referencia de pago", Value: pass.PaymentReference},
		{Key: "cashback", Label: "Cashback", Value: formatAmount(pass.Cashback)},
		{Key: "startDueDate", Label: "Inicio de pago", Value: pass.StartDueDate.String()},
	}
	if pass.OnlinePaymentLink != nil {
		back = append(back, apple.FieldContent{Key: "onlinePaymentLink", Label: "Pago en línea", Value: *pass.OnlinePaymentLink})
	}
	if pass.AcademicCalendarLink != nil {
		back = append(back, apple.FieldContent{Key: "academicCalendarLink", Label: "Calendario académico", Value: *pass.AcademicCalendarLink})
	}
	return apple.IssueProps{
		Description:        "Carnet estudiantil",
		BackgroundColorRGB: "rgb(255,255,255)",
		ForegroundColorRGB: "rgb(0,0,0)",
		LabelColorRGB:      "rgb(90,90,90)",
		SerialNumber:       serial,
		Barcode:            apple.Barcode{Value: pass.UniqueIdentifier, AlternativeText: pass.UniqueIdentifier},
		Header:             apple.FieldContent{Key: "paymentStatus", Label: "Estado", Value: paymentStatusLabel(pass.PaymentStatus), ChangeMessage: "Estado de pago: %@"},
		PrimaryField:       apple.FieldContent{Key: "name", Label: "Estudiante", Value: pass.Name},
		SecondaryFields: [2]apple.FieldContent{
			{Key: "careerId", Label: "Programa", Value: pass.CareerID},
			{Key: "semester", Label: "Semestre", Value: strconv.Itoa(pass.Semester)},
		},
		AuxiliaryFields: [2]apple.FieldContent{
			{Key: "totalToPay", Label: "Total a pagar", Value: formatAmount(pass.TotalToPay), ChangeMessage: "Nuevo valor a pagar: %@"},
			{Key: "endDueDate", Label: "Fecha límite", Value: pass.EndDueDate.String(), ChangeMessage: "Nueva fecha límite: %@"},
		},
		BackFields: back,
	}
}

func googleTextModules(pass models.Pass) []google.TextModule {
	return []google.TextModule{
		{ID: string(google.PrimaryLeft), Header: "Semestre", Body: strconv.Itoa(pass.Semester)},
		{ID: string(google.PrimaryRight), Header: "Estado", Body: paymentStatusLabel(pass.PaymentStatus)},
		{ID: string(google.SecondaryLeft), Header: "Total a pagar", Body: formatAmount(pass.TotalToPay)},
		{ID: string(google.SecondaryRight), Header: "Fecha límite", Body: pass.EndDueDate.String()},
	}
}

func googleLinkModules(pass models.Pass) []google.LinkModule {
	var links []google.LinkModule
	if pass.OnlinePaymentLink != nil {
		links = append(links, google.LinkModule{ID: "onlinePaymentLink", URI: *pass.OnlinePaymentLink, Description: "Pago en línea"})
	}
	if pass.AcademicCalendarLink != nil {
		links = append(links, google.LinkModule{ID: "academicCalendarLink", URI: *pass.AcademicCalendarLink, Description: "Calendario académico"})
	}
	return links
}

func (s *WalletService) googleIssueProps(pass models.Pass) google.IssueProps {
	return google.IssueProps{
		LogoURI:            s.config.Google.LogoURI,
		HeroURI:            s.config.Google.HeroURI,
		CardTitle:          pass.CareerID,
		Header:             pass.Name,
		Subheader:          "Estudiante",
		HexBackgroundColor: s.config.Google.HexBackground,
		TextModulesData:    googleTextModules(pass),
		LinksModuleData:    googleLinkModules(pass),
		Barcode:            google.Barcode{Value: pass.UniqueIdentifier, AlternativeText: pass.UniqueIdentifier},
	}
}

func (s *WalletService) googleUpdateProps(pass models.Pass) google.UpdateProps {
	return google.UpdateProps{
		Header:          pass.Name,
		TextModulesData: googleTextModules(pass),
		LinksModuleData: googleLinkModules(pass),
	}
}
