package apple

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/unipass-api/pkg/config"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

const updateAlert = "Update pass"

// Pusher sends a single APNs notification. *apns2.Client satisfies it.
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Manager builds signed pass bundles and pushes update notifications.
type Manager struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewManager constructs an Apple wallet manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger, now: time.Now}
}

// GeneratePass renders pass.json, bundles it with the images, signs the
// manifest and returns the zipped .pkpass. Any failure is reported as A-001.
func (m *Manager) GeneratePass(ctx context.Context, props IssueProps, images Images, creds Credentials, webServiceURL, tokenSecret string) ([]byte, error) {
	bundle, err := m.generate(ctx, props, images, creds, webServiceURL, tokenSecret)
	if err != nil {
		m.logger.Error("generate apple pass", zap.String("serial_number", props.SerialNumber), zap.Error(err))
		return nil, appErrors.NewAppleError(appErrors.AppleGeneratePass, err)
	}
	return bundle, nil
}

func (m *Manager) generate(ctx context.Context, props IssueProps, images Images, creds Credentials, webServiceURL, tokenSecret string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if props.SerialNumber == "" {
		return nil, fmt.Errorf("serial number required")
	}
	passJSON, err := json.Marshal(BuildPassJSON(props, creds, webServiceURL, tokenSecret))
	if err != nil {
		return nil, fmt.Errorf("marshal pass.json: %w", err)
	}

	files := bundleFiles{"pass.json": passJSON}
	for name, data := range images.files() {
		if len(data) == 0 {
			return nil, fmt.Errorf("missing image %s", name)
		}
		files[name] = data
	}

	manifest, err := files.manifest()
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	signature, err := signManifest(manifest, creds)
	if err != nil {
		return nil, err
	}
	return writeArchive(files, manifest, signature, m.now())
}

// SendSilentPushNotification sends one update push per device. Devices
// without a push token are skipped. All sends run concurrently and the first
// failure is returned as a single A-002 for the batch.
func (m *Manager) SendSilentPushNotification(ctx context.Context, pusher Pusher, devices []Device) error {
	var g errgroup.Group
	for _, device := range devices {
		device := device
		if device.PushToken == nil || *device.PushToken == "" {
			m.logger.Info("skipping device without push token", zap.String("serial_number", device.PassSerialNumber))
			continue
		}
		g.Go(func() error {
			notification := &apns2.Notification{
				DeviceToken: *device.PushToken,
				Topic:       device.PassTypeIdentifier,
				PushType:    apns2.PushTypeAlert,
				Payload:     payload.NewPayload().Alert(updateAlert),
			}
			res, err := pusher.PushWithContext(ctx, notification)
			if err != nil {
				return fmt.Errorf("push %s: %w", device.PassSerialNumber, err)
			}
			if !res.Sent() {
				return fmt.Errorf("push %s rejected: %d %s", device.PassSerialNumber, res.StatusCode, res.Reason)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("send apple push notifications", zap.Int("devices", len(devices)), zap.Error(err))
		return appErrors.NewAppleError(appErrors.AppleSendPassNotification, err)
	}
	return nil
}

// NewAPNsClient loads the push certificate (.p12 or .pem) and returns a client
// bound to the production or sandbox gateway.
func NewAPNsClient(certPath, password string, production bool) (*apns2.Client, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if strings.HasSuffix(strings.ToLower(certPath), ".pem") {
		cert, err = certificate.FromPemFile(certPath, password)
	} else {
		cert, err = certificate.FromP12File(certPath, password)
	}
	if err != nil {
		return nil, fmt.Errorf("load apns certificate: %w", err)
	}
	client := apns2.NewClient(cert)
	if production {
		return client.Production(), nil
	}
	return client.Development(), nil
}

// LoadCredentials reads the PEM files referenced by cfg.
func LoadCredentials(cfg config.AppleWalletConfig) (Credentials, error) {
	read := func(label, path string) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", label, err)
		}
		return data, nil
	}
	wwdr, err := read("wwdr certificate", cfg.WWDRPath)
	if err != nil {
		return Credentials{}, err
	}
	cert, err := read("signer certificate", cfg.SignerCertPath)
	if err != nil {
		return Credentials{}, err
	}
	key, err := read("signer key", cfg.SignerKeyPath)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		PassTypeIdentifier: cfg.PassTypeIdentifier,
		TeamIdentifier:     cfg.TeamIdentifier,
		OrganizationName:   cfg.OrganizationName,
		WWDR:               wwdr,
		SignerCert:         cert,
		SignerKey:          key,
		SignerKeyPassword:  cfg.SignerKeyPassword,
	}, nil
}
