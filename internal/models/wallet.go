package models

import "time"

// IssueApplePassResponse points to the signed .pkpass download.
type IssueApplePassResponse struct {
	SerialNumber string    `json:"serialNumber"`
	DownloadURL  string    `json:"downloadUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IssueGooglePassResponse carries the save-to-wallet link.
type IssueGooglePassResponse struct {
	ObjectID string `json:"objectId"`
	SaveLink string `json:"saveLink"`
}

// CreatePassClassRequest creates a generic class for the issuer.
type CreatePassClassRequest struct {
	Suffix string `json:"suffix"`
}

// CreatePassClassResponse returns the created class ID.
type CreatePassClassResponse struct {
	ClassID string `json:"classId"`
}
