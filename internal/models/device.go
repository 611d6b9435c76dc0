package models

import "time"

// AppleDevice is a PassKit web service registration of one pass on one device.
type AppleDevice struct {
	DeviceLibraryIdentifier string    `db:"device_library_identifier" json:"deviceLibraryIdentifier"`
	PassTypeIdentifier      string    `db:"pass_type_identifier" json:"passTypeIdentifier"`
	SerialNumber            string    `db:"serial_number" json:"serialNumber"`
	PushToken               *string   `db:"push_token" json:"pushToken,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time `db:"updated_at" json:"updatedAt"`
}

// RegisterDeviceRequest is the PassKit registration body.
type RegisterDeviceRequest struct {
	PushToken string `json:"pushToken" validate:"required"`
}

// SerialNumbersResponse answers the "passes for device" PassKit call.
type SerialNumbersResponse struct {
	SerialNumbers []string `json:"serialNumbers"`
	LastUpdated   string   `json:"lastUpdated"`
}

// DeviceLogRequest carries diagnostic messages posted by devices.
type DeviceLogRequest struct {
	Logs []string `json:"logs"`
}
