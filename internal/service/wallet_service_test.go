package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/storage"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
	"github.com/noah-isme/unipass-api/pkg/wallet/google"
)

type fakeWalletPassRepo struct {
	passes       map[models.PassKey]*models.Pass
	appleSerials map[string]string
	googleIDs    map[string]string
}

func newFakeWalletPassRepo(passes ...models.Pass) *fakeWalletPassRepo {
	repo := &fakeWalletPassRepo{
		passes:       map[models.PassKey]*models.Pass{},
		appleSerials: map[string]string{},
		googleIDs:    map[string]string{},
	}
	for i := range passes {
		p := passes[i]
		repo.passes[p.Key()] = &p
	}
	return repo
}

func (f *fakeWalletPassRepo) FindByKey(_ context.Context, universityID string, key models.PassKey) (*models.Pass, error) {
	p, ok := f.passes[key]
	if !ok || p.UniversityID != universityID {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (f *fakeWalletPassRepo) FindBySerial(_ context.Context, serial string) (*models.Pass, error) {
	for _, p := range f.passes {
		if p.AppleWalletSerialNumber != nil && *p.AppleWalletSerialNumber == serial {
			clone := *p
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeWalletPassRepo) SetAppleSerial(_ context.Context, passID, serial string) error {
	f.appleSerials[passID] = serial
	for _, p := range f.passes {
		if p.ID == passID {
			s := serial
			p.AppleWalletSerialNumber = &s
		}
	}
	return nil
}

func (f *fakeWalletPassRepo) SetGoogleObjectID(_ context.Context, passID, objectID string) error {
	f.googleIDs[passID] = objectID
	return nil
}

type fakeDeviceLister struct {
	devices []models.AppleDevice
}

func (f *fakeDeviceLister) ListBySerial(_ context.Context, serial string) ([]models.AppleDevice, error) {
	var out []models.AppleDevice
	for _, d := range f.devices {
		if d.SerialNumber == serial {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeAppleWallet struct {
	generated []apple.IssueProps
	pushed    [][]apple.Device
	pushErr   error
}

func (f *fakeAppleWallet) GeneratePass(_ context.Context, props apple.IssueProps, _ apple.Images, _ apple.Credentials, _, _ string) ([]byte, error) {
	f.generated = append(f.generated, props)
	return []byte("bundle:" + props.SerialNumber), nil
}

func (f *fakeAppleWallet) SendSilentPushNotification(_ context.Context, _ apple.Pusher, devices []apple.Device) error {
	f.pushed = append(f.pushed, devices)
	return f.pushErr
}

type fakeGoogleWallet struct {
	created  map[string]string
	updates  map[string]google.UpdateProps
	messages []string
	classes  []string
	err      error
}

func newFakeGoogleWallet() *fakeGoogleWallet {
	return &fakeGoogleWallet{created: map[string]string{}, updates: map[string]google.UpdateProps{}}
}

func (f *fakeGoogleWallet) IssuerID() string { return "3388" }

func (f *fakeGoogleWallet) CreatePass(_ context.Context, objectID, classID string, _ google.IssueProps, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created[objectID] = classID
	return "https://pay.google.com/gp/v/save/" + objectID, nil
}

func (f *fakeGoogleWallet) UpdatePass(_ context.Context, objectID string, patch google.UpdateProps) error {
	if f.err != nil {
		return f.err
	}
	f.updates[objectID] = patch
	return nil
}

func (f *fakeGoogleWallet) SendPassNotification(_ context.Context, objectID, header, body string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, objectID+"|"+header+"|"+body)
	return nil
}

func (f *fakeGoogleWallet) CreatePassClass(_ context.Context, suffix string) (string, error) {
	f.classes = append(f.classes, suffix)
	return "3388." + suffix, nil
}

type noopPusher struct{ apple.Pusher }

func strPtr(v string) *string { return &v }

func walletTestPass() models.Pass {
	return models.Pass{
		ID:               "pass-1",
		UniversityID:     "uni-1",
		UniqueIdentifier: "A001",
		CareerID:         "SIS",
		Name:             "Ana Perez",
		Semester:         3,
		PaymentStatus:    models.PaymentStatusDue,
		TotalToPay:       1500000,
		StartDueDate:     models.NewDate(2024, time.January, 1),
		EndDueDate:       models.NewDate(2024, time.January, 31),
		Status:           models.PassStatusActive,
	}
}

type walletFixture struct {
	service *WalletService
	passes  *fakeWalletPassRepo
	devices *fakeDeviceLister
	apple   *fakeAppleWallet
	google  *fakeGoogleWallet
}

func newWalletFixture(t *testing.T, passes ...models.Pass) walletFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	fx := walletFixture{
		passes:  newFakeWalletPassRepo(passes...),
		devices: &fakeDeviceLister{},
		apple:   &fakeAppleWallet{},
		google:  newFakeGoogleWallet(),
	}
	fx.service = NewWalletService(fx.passes, fx.devices, fx.apple, noopPusher{}, fx.google, store, signer, NewMetricsService(), nil, WalletServiceConfig{
		Google:        GoogleWalletSettings{ClassSuffix: "student_pass"},
		PublicBaseURL: "https://pass.example",
		APIPrefix:     "/api/v1",
	})
	return fx
}

func TestWalletServiceIssueApplePassAndDownload(t *testing.T) {
	pass := walletTestPass()
	fx := newWalletFixture(t, pass)

	resp, err := fx.service.IssueApplePass(context.Background(), "uni-1", pass.Key())
	require.NoError(t, err)
	require.NotEmpty(t, resp.SerialNumber)
	assert.Equal(t, resp.SerialNumber, fx.passes.appleSerials["pass-1"])
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "https://pass.example/api/v1/wallet/apple/download/"))

	require.Len(t, fx.apple.generated, 1)
	props := fx.apple.generated[0]
	assert.Equal(t, "Ana Perez", props.PrimaryField.Value)
	assert.Equal(t, "A001", props.Barcode.Value)
	assert.Equal(t, "Pendiente", props.Header.Value)

	token := resp.DownloadURL[strings.LastIndex(resp.DownloadURL, "/")+1:]
	data, filename, err := fx.service.DownloadApplePass(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, resp.SerialNumber+".pkpass", filename)
	assert.Equal(t, []byte("bundle:"+resp.SerialNumber), data)
}

func TestWalletServiceIssueApplePassReusesSerial(t *testing.T) {
	pass := walletTestPass()
	pass.AppleWalletSerialNumber = strPtr("serial-existing")
	fx := newWalletFixture(t, pass)

	resp, err := fx.service.IssueApplePass(context.Background(), "uni-1", pass.Key())
	require.NoError(t, err)
	assert.Equal(t, "serial-existing", resp.SerialNumber)
	assert.Empty(t, fx.passes.appleSerials)
}

func TestWalletServiceRejectsInactivePass(t *testing.T) {
	pass := walletTestPass()
	pass.Status = models.PassStatusInactive
	fx := newWalletFixture(t, pass)

	_, err := fx.service.IssueGooglePass(context.Background(), "uni-1", pass.Key())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestWalletServiceDownloadRejectsBadToken(t *testing.T) {
	fx := newWalletFixture(t)
	_, _, err := fx.service.DownloadApplePass(context.Background(), "garbage")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestWalletServiceIssueGooglePass(t *testing.T) {
	pass := walletTestPass()
	fx := newWalletFixture(t, pass)

	resp, err := fx.service.IssueGooglePass(context.Background(), "uni-1", pass.Key())
	require.NoError(t, err)
	assert.Equal(t, "pass-1", resp.ObjectID)
	assert.Equal(t, "3388.student_pass", fx.google.created["pass-1"])
	assert.Equal(t, "pass-1", fx.passes.googleIDs["pass-1"])
	assert.Contains(t, resp.SaveLink, "pass-1")
}

func TestWalletServiceIssueGooglePassProviderFailure(t *testing.T) {
	pass := walletTestPass()
	fx := newWalletFixture(t, pass)
	fx.google.err = appErrors.NewGoogleError(appErrors.GoogleCreatePass, errors.New("boom"))

	_, err := fx.service.IssueGooglePass(context.Background(), "uni-1", pass.Key())
	require.Error(t, err)
	assert.Empty(t, fx.passes.googleIDs)
	assert.Equal(t, uint64(1), fx.service.metrics.Snapshot().WalletFailures)
}

func TestWalletServiceUpdateGooglePassRequiresObject(t *testing.T) {
	pass := walletTestPass()
	fx := newWalletFixture(t, pass)

	err := fx.service.UpdateGooglePass(context.Background(), "uni-1", pass.Key())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestWalletServicePassesUpdatedRefreshesBothWallets(t *testing.T) {
	pass := walletTestPass()
	pass.GoogleWalletObjectID = strPtr("pass-1")
	pass.AppleWalletSerialNumber = strPtr("serial-1")
	pass.PaymentStatus = models.PaymentStatusPaid
	fx := newWalletFixture(t, pass)
	fx.devices.devices = []models.AppleDevice{
		{DeviceLibraryIdentifier: "dev-1", PassTypeIdentifier: "pass.example", SerialNumber: "serial-1", PushToken: strPtr("token-1")},
		{DeviceLibraryIdentifier: "dev-2", PassTypeIdentifier: "pass.example", SerialNumber: "other"},
	}

	fx.service.PassesUpdated(context.Background(), "uni-1", []models.PassKey{pass.Key(), {UniqueIdentifier: "missing", CareerID: "SIS"}})

	patch, ok := fx.google.updates["pass-1"]
	require.True(t, ok)
	assert.Equal(t, "Ana Perez", patch.Header)
	require.Len(t, patch.TextModulesData, 4)
	assert.Equal(t, "Pagado", patch.TextModulesData[1].Body)

	require.Len(t, fx.apple.pushed, 1)
	require.Len(t, fx.apple.pushed[0], 1)
	assert.Equal(t, "serial-1", fx.apple.pushed[0][0].PassSerialNumber)
}

func TestWalletServiceNotifyGoogle(t *testing.T) {
	pass := walletTestPass()
	pass.GoogleWalletObjectID = strPtr("pass-1")
	fx := newWalletFixture(t, pass)

	err := fx.service.NotifyGoogle(context.Background(), pass, models.NotificationContent{Title: "Hola", Body: "Pago pendiente"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pass-1|Hola|Pago pendiente"}, fx.google.messages)
}

func TestWalletServiceCreatePassClassDefaultsSuffix(t *testing.T) {
	fx := newWalletFixture(t)
	resp, err := fx.service.CreateGooglePassClass(context.Background(), models.CreatePassClassRequest{})
	require.NoError(t, err)
	assert.Equal(t, "3388.student_pass", resp.ClassID)
}

func TestWalletServiceDisabledPlatforms(t *testing.T) {
	svc := NewWalletService(newFakeWalletPassRepo(), &fakeDeviceLister{}, nil, nil, nil, nil, nil, nil, nil, WalletServiceConfig{})
	_, err := svc.IssueGooglePass(context.Background(), "uni-1", models.PassKey{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)

	_, err = svc.IssueApplePass(context.Background(), "uni-1", models.PassKey{})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)
}
