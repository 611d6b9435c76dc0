package apple

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	barcodeFormatQR       = "PKBarcodeFormatQR"
	barcodeEncodingLatin1 = "iso-8859-1"
)

// PassJSON is the pass.json document of a generic pass.
type PassJSON struct {
	FormatVersion       int           `json:"formatVersion"`
	Description         string        `json:"description"`
	PassTypeIdentifier  string        `json:"passTypeIdentifier"`
	TeamIdentifier      string        `json:"teamIdentifier"`
	OrganizationName    string        `json:"organizationName"`
	BackgroundColor     string        `json:"backgroundColor,omitempty"`
	ForegroundColor     string        `json:"foregroundColor,omitempty"`
	LabelColor          string        `json:"labelColor,omitempty"`
	SerialNumber        string        `json:"serialNumber"`
	AuthenticationToken string        `json:"authenticationToken"`
	WebServiceURL       string        `json:"webServiceURL"`
	Barcodes            []PassBarcode `json:"barcodes"`
	Generic             GenericFields `json:"generic"`
}

// PassBarcode mirrors the PassKit barcode dictionary.
type PassBarcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// GenericFields is the field layout of the generic pass style.
type GenericFields struct {
	HeaderFields    []FieldContent `json:"headerFields"`
	PrimaryFields   []FieldContent `json:"primaryFields"`
	SecondaryFields []FieldContent `json:"secondaryFields"`
	AuxiliaryFields []FieldContent `json:"auxiliaryFields"`
	BackFields      []FieldContent `json:"backFields"`
}

// AuthenticationToken returns hex(SHA-256(serialNumber + tokenSecret)). The
// PassKit web service compares it against the "ApplePass" header.
func AuthenticationToken(serialNumber, tokenSecret string) string {
	sum := sha256.Sum256([]byte(serialNumber + tokenSecret))
	return hex.EncodeToString(sum[:])
}

// BuildPassJSON renders the pass document for props.
func BuildPassJSON(props IssueProps, creds Credentials, webServiceURL, tokenSecret string) PassJSON {
	backFields := props.BackFields
	if backFields == nil {
		backFields = []FieldContent{}
	}
	return PassJSON{
		FormatVersion:       1,
		Description:         props.Description,
		PassTypeIdentifier:  creds.PassTypeIdentifier,
		TeamIdentifier:      creds.TeamIdentifier,
		OrganizationName:    creds.OrganizationName,
		BackgroundColor:     props.BackgroundColorRGB,
		ForegroundColor:     props.ForegroundColorRGB,
		LabelColor:          props.LabelColorRGB,
		SerialNumber:        props.SerialNumber,
		AuthenticationToken: AuthenticationToken(props.SerialNumber, tokenSecret),
		WebServiceURL:       webServiceURL,
		Barcodes: []PassBarcode{{
			Format:          barcodeFormatQR,
			Message:         props.Barcode.Value,
			MessageEncoding: barcodeEncodingLatin1,
			AltText:         props.Barcode.AlternativeText,
		}},
		Generic: GenericFields{
			HeaderFields:    []FieldContent{props.Header},
			PrimaryFields:   []FieldContent{props.PrimaryField},
			SecondaryFields: []FieldContent{props.SecondaryFields[0], props.SecondaryFields[1]},
			AuxiliaryFields: []FieldContent{props.AuxiliaryFields[0], props.AuxiliaryFields[1]},
			BackFields:      backFields,
		},
	}
}
