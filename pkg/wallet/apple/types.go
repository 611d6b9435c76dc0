package apple

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FieldContent is one PassKit field dictionary.
type FieldContent struct {
	Key               string      `json:"key"`
	Label             string      `json:"label,omitempty"`
	Value             interface{} `json:"value,omitempty"`
	AttributedValue   string      `json:"attributedValue,omitempty"`
	ChangeMessage     string      `json:"changeMessage,omitempty"`
	CurrencyCode      string      `json:"currencyCode,omitempty"`
	DataDetectorTypes []string    `json:"dataDetectorTypes,omitempty"`
	DateStyle         string      `json:"dateStyle,omitempty"`
	TimeStyle         string      `json:"timeStyle,omitempty"`
	NumberStyle       string      `json:"numberStyle,omitempty"`
	TextAlignment     string      `json:"textAlignment,omitempty"`
}

// Barcode is rendered as the single QR code of the pass.
type Barcode struct {
	Value           string
	AlternativeText string
}

// IssueProps carries the per-pass content of a generic pass.
type IssueProps struct {
	Description        string
	BackgroundColorRGB string
	ForegroundColorRGB string
	LabelColorRGB      string
	SerialNumber       string
	Barcode            Barcode
	Header             FieldContent
	PrimaryField       FieldContent
	SecondaryFields    [2]FieldContent
	AuxiliaryFields    [2]FieldContent
	BackFields         []FieldContent
}

// Credentials identify the issuer and hold PEM encoded signing material.
type Credentials struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	WWDR               []byte
	SignerCert         []byte
	SignerKey          []byte
	SignerKeyPassword  string
}

// Images holds the nine fixed-name assets bundled into every pass.
type Images struct {
	Icon        []byte
	IconX2      []byte
	IconX3      []byte
	Logo        []byte
	LogoX2      []byte
	LogoX3      []byte
	Thumbnail   []byte
	ThumbnailX2 []byte
	ThumbnailX3 []byte
}

// ImageNames lists the bundle file names in archive order.
var ImageNames = []string{
	"icon.png", "icon@2x.png", "icon@3x.png",
	"logo.png", "logo@2x.png", "logo@3x.png",
	"thumbnail.png", "thumbnail@2x.png", "thumbnail@3x.png",
}

func (i Images) files() map[string][]byte {
	return map[string][]byte{
		"icon.png":         i.Icon,
		"icon@2x.png":      i.IconX2,
		"icon@3x.png":      i.IconX3,
		"logo.png":         i.Logo,
		"logo@2x.png":      i.LogoX2,
		"logo@3x.png":      i.LogoX3,
		"thumbnail.png":    i.Thumbnail,
		"thumbnail@2x.png": i.ThumbnailX2,
		"thumbnail@3x.png": i.ThumbnailX3,
	}
}

// LoadImages reads the nine assets from dir using their bundle names.
func LoadImages(dir string) (Images, error) {
	read := make(map[string][]byte, len(ImageNames))
	for _, name := range ImageNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Images{}, fmt.Errorf("read pass image %s: %w", name, err)
		}
		read[name] = data
	}
	return Images{
		Icon:        read["icon.png"],
		IconX2:      read["icon@2x.png"],
		IconX3:      read["icon@3x.png"],
		Logo:        read["logo.png"],
		LogoX2:      read["logo@2x.png"],
		LogoX3:      read["logo@3x.png"],
		Thumbnail:   read["thumbnail.png"],
		ThumbnailX2: read["thumbnail@2x.png"],
		ThumbnailX3: read["thumbnail@3x.png"],
	}, nil
}

// Device is a registered wallet installation that can receive update pushes.
type Device struct {
	PassSerialNumber   string
	PushToken          *string
	PassTypeIdentifier string
}

// DeviceRepository persists PassKit web service registrations.
type DeviceRepository interface {
	RegisterDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serialNumber, pushToken string) (created bool, err error)
	UnregisterDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serialNumber string) error
}
