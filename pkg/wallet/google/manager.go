package google

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/walletobjects/v1"

	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

const (
	language        = "es"
	saveLinkBaseURL = "https://pay.google.com/gp/v/save/"
	messageTypeText = "TEXT_AND_NOTIFY"
)

// objectAPI is the slice of the walletobjects service the manager calls.
type objectAPI interface {
	GetObject(ctx context.Context, resourceID string) (*walletobjects.GenericObject, error)
	UpdateObject(ctx context.Context, resourceID string, object *walletobjects.GenericObject) error
	AddMessage(ctx context.Context, resourceID string, req *walletobjects.AddMessageRequest) error
	InsertClass(ctx context.Context, class *walletobjects.GenericClass) error
}

type serviceAPI struct {
	svc *walletobjects.Service
}

func (s serviceAPI) GetObject(ctx context.Context, resourceID string) (*walletobjects.GenericObject, error) {
	return s.svc.Genericobject.Get(resourceID).Context(ctx).Do()
}

func (s serviceAPI) UpdateObject(ctx context.Context, resourceID string, object *walletobjects.GenericObject) error {
	_, err := s.svc.Genericobject.Update(resourceID, object).Context(ctx).Do()
	return err
}

func (s serviceAPI) AddMessage(ctx context.Context, resourceID string, req *walletobjects.AddMessageRequest) error {
	_, err := s.svc.Genericobject.Addmessage(resourceID, req).Context(ctx).Do()
	return err
}

func (s serviceAPI) InsertClass(ctx context.Context, class *walletobjects.GenericClass) error {
	_, err := s.svc.Genericclass.Insert(class).Context(ctx).Do()
	return err
}

// Manager issues and updates Google Wallet generic objects for one issuer.
type Manager struct {
	api         objectAPI
	issuerID    string
	credentials Credentials
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager builds a walletobjects client authorised with the issuer scope
// from a service account key. Failures are reported as G-001.
func NewManager(ctx context.Context, issuerID string, credentialsJSON []byte, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var creds Credentials
	if err := json.Unmarshal(credentialsJSON, &creds); err != nil {
		logger.Error("parse google wallet credentials", zap.Error(err))
		return nil, appErrors.NewGoogleError(appErrors.GoogleInitialization, err)
	}
	svc, err := walletobjects.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(walletobjects.WalletObjectIssuerScope),
	)
	if err != nil {
		logger.Error("init google wallet client", zap.Error(err))
		return nil, appErrors.NewGoogleError(appErrors.GoogleInitialization, err)
	}
	return newManager(serviceAPI{svc: svc}, issuerID, creds, logger), nil
}

func newManager(api objectAPI, issuerID string, creds Credentials, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, issuerID: issuerID, credentials: creds, logger: logger, now: time.Now}
}

// IssuerID returns the configured issuer.
func (m *Manager) IssuerID() string {
	return m.issuerID
}

func (m *Manager) resourceID(id string) string {
	return m.issuerID + "." + id
}

// SendPassNotification attaches a notifying message to the object.
func (m *Manager) SendPassNotification(ctx context.Context, objectID, header, body string) error {
	req := &walletobjects.AddMessageRequest{
		Message: &walletobjects.Message{
			Header:      header,
			Body:        body,
			Id:          "update_message_" + strconv.FormatInt(m.now().UnixMilli(), 10),
			MessageType: messageTypeText,
		},
	}
	if err := m.api.AddMessage(ctx, m.resourceID(objectID), req); err != nil {
		m.logger.Error("send google pass notification", zap.String("object_id", objectID), zap.Error(err))
		return appErrors.NewGoogleError(appErrors.GoogleSendNotification, err)
	}
	return nil
}

// CreatePass builds the object and returns a save-to-wallet link carrying it.
// Nothing is written to Google until the holder opens the link.
func (m *Manager) CreatePass(ctx context.Context, objectID, classID string, props IssueProps, origin string) (string, error) {
	object := m.buildObject(objectID, classID, props)
	token, err := signSaveJWT(object, m.credentials, origin, m.now())
	if err != nil {
		m.logger.Error("create google pass", zap.String("object_id", objectID), zap.Error(err))
		return "", appErrors.NewGoogleError(appErrors.GoogleCreatePass, err)
	}
	return saveLinkBaseURL + token, nil
}

func (m *Manager) getObject(ctx context.Context, objectID string) (*walletobjects.GenericObject, error) {
	object, err := m.api.GetObject(ctx, m.resourceID(objectID))
	if err != nil {
		m.logger.Error("get google pass object", zap.String("object_id", objectID), zap.Error(err))
		return nil, appErrors.NewGoogleError(appErrors.GoogleGetObject, err)
	}
	return object, nil
}

// UpdatePass fetches the remote object, merges patch into it and writes it back.
// A failed fetch is G-004, a failed write G-005.
func (m *Manager) UpdatePass(ctx context.Context, objectID string, patch UpdateProps) error {
	remote, err := m.getObject(ctx, objectID)
	if err != nil {
		return err
	}
	merged := MergeUpdate(remote, patch)
	if err := m.api.UpdateObject(ctx, m.resourceID(objectID), merged); err != nil {
		m.logger.Error("update google pass", zap.String("object_id", objectID), zap.Error(err))
		return appErrors.NewGoogleError(appErrors.GoogleUpdatePass, err)
	}
	return nil
}

// CreatePassClass inserts the generic class {issuer}.{suffix} whose card shows
// two rows of front text modules, and returns the class ID.
func (m *Manager) CreatePassClass(ctx context.Context, suffix string) (string, error) {
	classID := m.resourceID(suffix)
	class := &walletobjects.GenericClass{
		Id: classID,
		ClassTemplateInfo: &walletobjects.ClassTemplateInfo{
			CardTemplateOverride: &walletobjects.CardTemplateOverride{
				CardRowTemplateInfos: []*walletobjects.CardRowTemplateInfo{
					twoItemRow(PrimaryLeft, PrimaryRight),
					twoItemRow(SecondaryLeft, SecondaryRight),
				},
			},
		},
	}
	if err := m.api.InsertClass(ctx, class); err != nil {
		m.logger.Error("create google pass class", zap.String("class_id", classID), zap.Error(err))
		return "", appErrors.NewGoogleError(appErrors.GoogleCreateClass, err)
	}
	return classID, nil
}

func twoItemRow(start, end FrontFieldPath) *walletobjects.CardRowTemplateInfo {
	return &walletobjects.CardRowTemplateInfo{
		TwoItems: &walletobjects.CardRowTwoItems{
			StartItem: templateItem(start),
			EndItem:   templateItem(end),
		},
	}
}

func templateItem(path FrontFieldPath) *walletobjects.TemplateItem {
	return &walletobjects.TemplateItem{
		FirstValue: &walletobjects.FieldSelector{
			Fields: []*walletobjects.FieldReference{
				{FieldPath: fmt.Sprintf("object.textModulesData['%s']", path)},
			},
		},
	}
}

func (m *Manager) buildObject(objectID, classID string, props IssueProps) *walletobjects.GenericObject {
	textModules := make([]*walletobjects.TextModuleData, 0, len(props.TextModulesData))
	for _, t := range props.TextModulesData {
		textModules = append(textModules, &walletobjects.TextModuleData{Id: t.ID, Header: t.Header, Body: t.Body})
	}
	uris := make([]*walletobjects.Uri, 0, len(props.LinksModuleData))
	for _, l := range props.LinksModuleData {
		uris = append(uris, &walletobjects.Uri{Id: l.ID, Uri: l.URI, Description: l.Description})
	}
	return &walletobjects.GenericObject{
		Id:                 m.resourceID(objectID),
		ClassId:            classID,
		Logo:               image(props.LogoURI, "LOGO_IMAGE_DESCRIPTION"),
		CardTitle:          localized(props.CardTitle),
		Header:             localized(props.Header),
		Subheader:          localized(props.Subheader),
		HexBackgroundColor: props.HexBackgroundColor,
		TextModulesData:    textModules,
		Barcode: &walletobjects.Barcode{
			Type:          "QR_CODE",
			Value:         props.Barcode.Value,
			AlternateText: props.Barcode.AlternativeText,
		},
		HeroImage:       image(props.HeroURI, "HERO_IMAGE_DESCRIPTION"),
		LinksModuleData: &walletobjects.LinksModuleData{Uris: uris},
	}
}

func localized(value string) *walletobjects.LocalizedString {
	return &walletobjects.LocalizedString{
		DefaultValue: &walletobjects.TranslatedString{Language: language, Value: value},
	}
}

func image(uri, description string) *walletobjects.Image {
	return &walletobjects.Image{
		SourceUri:          &walletobjects.ImageUri{Uri: uri},
		ContentDescription: localized(description),
	}
}
