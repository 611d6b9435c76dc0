package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
)

func TestUniversityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectExec("INSERT INTO universities").
		WithArgs(sqlmock.AnyArg(), "Uni", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	university := &models.University{Name: "Uni"}
	require.NoError(t, repo.Create(context.Background(), university))
	assert.NotEmpty(t, university.ID)
	assert.False(t, university.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareerRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCareerRepository(db)

	mock.ExpectQuery("SELECT 1 FROM careers WHERE university_id = \\$1 AND code = \\$2").
		WithArgs("uni", "ING").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM careers").
		WithArgs("uni", "MED").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.Exists(context.Background(), "uni", "ING")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(context.Background(), "uni", "MED")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareerRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCareerRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM careers WHERE university_id = \\$1 ORDER BY code ASC").
		WithArgs("uni").
		WillReturnRows(sqlmock.NewRows([]string{"code", "university_id", "name", "created_at", "updated_at"}).
			AddRow("ING", "uni", "Ingenieria", now, now).
			AddRow("MED", "uni", "Medicina", now, now))

	careers, err := repo.List(context.Background(), "uni")
	require.NoError(t, err)
	require.Len(t, careers, 2)
	assert.Equal(t, "MED", careers[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCityRepositoryCreateManyCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cities").
		WithArgs("BOG", "uni", "Bogota", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO cities").
		WithArgs("MDE", "uni", "Medellin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateMany(context.Background(), []models.City{
		{Code: "BOG", UniversityID: "uni", Name: "Bogota"},
		{Code: "MDE", UniversityID: "uni", Name: "Medellin"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCityRepositoryCreateManyRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cities").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO cities").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := repo.CreateMany(context.Background(), []models.City{
		{Code: "BOG", UniversityID: "uni", Name: "Bogota"},
		{Code: "MDE", UniversityID: "uni", Name: "Medellin"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MDE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCityRepositoryExistingCodes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCityRepository(db)

	mock.ExpectQuery("SELECT code FROM cities WHERE university_id = \\$1 AND code = ANY\\(\\$2\\)").
		WithArgs("uni", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("BOG"))

	codes, err := repo.ExistingCodes(context.Background(), "uni", []string{"BOG", "MDE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BOG"}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
