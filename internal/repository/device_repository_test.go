package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRepositoryRegisterUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	mock.ExpectQuery("INSERT INTO apple_wallet_devices .* ON CONFLICT .* RETURNING \\(xmax = 0\\)").
		WithArgs("dli", "pass.edu", "serial", "token", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO apple_wallet_devices .* ON CONFLICT .* RETURNING \\(xmax = 0\\)").
		WithArgs("dli", "pass.edu", "serial", "token-2", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

	created, err := repo.RegisterDevice(context.Background(), "dli", "pass.edu", "serial", "token")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.RegisterDevice(context.Background(), "dli", "pass.edu", "serial", "token-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryListSerialsSince(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := since.Add(time.Hour)
	mock.ExpectQuery("WHERE d.device_library_identifier = \\$1 AND d.pass_type_identifier = \\$2 AND p.updated_at > \\$3").
		WithArgs("dli", "pass.edu", since).
		WillReturnRows(sqlmock.NewRows([]string{"serial_number", "updated_at"}).AddRow("serial", updated))

	updates, err := repo.ListSerialsForDevice(context.Background(), "dli", "pass.edu", &since)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "serial", updates[0].SerialNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
