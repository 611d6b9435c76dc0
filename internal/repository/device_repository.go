package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
)

// DeviceRepository persists PassKit web service registrations.
type DeviceRepository struct {
	db *sqlx.DB
}

var _ apple.DeviceRepository = (*DeviceRepository)(nil)

// NewDeviceRepository constructs a DeviceRepository.
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// RegisterDevice stores or refreshes a registration.
func (r *DeviceRepository) RegisterDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serialNumber, pushToken string) (bool, error) {
	// xmax is zero only on rows this statement inserted.
	const query = `INSERT INTO apple_wallet_devices (device_library_identifier, pass_type_identifier, serial_number, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (device_library_identifier, pass_type_identifier, serial_number)
		DO UPDATE SET push_token = EXCLUDED.push_token, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`
	var inserted bool
	if err := r.db.QueryRowxContext(ctx, query, deviceLibraryIdentifier, passTypeIdentifier, serialNumber, pushToken, time.Now().UTC()).Scan(&inserted); err != nil {
		return false, fmt.Errorf("register device: %w", err)
	}
	return inserted, nil
}

// UnregisterDevice removes a registration.
func (r *DeviceRepository) UnregisterDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier, serialNumber string) error {
	const query = `DELETE FROM apple_wallet_devices WHERE device_library_identifier = $1 AND pass_type_identifier = $2 AND serial_number = $3`
	if _, err := r.db.ExecContext(ctx, query, deviceLibraryIdentifier, passTypeIdentifier, serialNumber); err != nil {
		return fmt.Errorf("unregister device: %w", err)
	}
	return nil
}

// ListBySerial returns the registrations of one pass.
func (r *DeviceRepository) ListBySerial(ctx context.Context, serialNumber string) ([]models.AppleDevice, error) {
	const query = `SELECT device_library_identifier, pass_type_identifier, serial_number, push_token, created_at, updated_at
		FROM apple_wallet_devices WHERE serial_number = $1`
	var devices []models.AppleDevice
	if err := r.db.SelectContext(ctx, &devices, query, serialNumber); err != nil {
		return nil, fmt.Errorf("list devices by serial: %w", err)
	}
	return devices, nil
}

// SerialUpdate pairs a serial number with its pass modification time.
type SerialUpdate struct {
	SerialNumber string    `db:"serial_number"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ListSerialsForDevice returns the serials registered on a device whose
// pass changed after since. A nil since returns all of them.
func (r *DeviceRepository) ListSerialsForDevice(ctx context.Context, deviceLibraryIdentifier, passTypeIdentifier string, since *time.Time) ([]SerialUpdate, error) {
	conditions := "d.device_library_identifier = $1 AND d.pass_type_identifier = $2"
	args := []interface{}{deviceLibraryIdentifier, passTypeIdentifier}
	if since != nil {
		args = append(args, *since)
		conditions += fmt.Sprintf(" AND p.updated_at > $%d", len(args))
	}
	query := `SELECT d.serial_number, p.updated_at FROM apple_wallet_devices d
		JOIN passes p ON p.apple_wallet_serial_number = d.serial_number
		WHERE ` + conditions + ` ORDER BY p.updated_at ASC`
	var updates []SerialUpdate
	if err := r.db.SelectContext(ctx, &updates, query, args...); err != nil {
		return nil, fmt.Errorf("list serials for device: %w", err)
	}
	return updates, nil
}
