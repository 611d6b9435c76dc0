package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/pkg/database"
)

// CityRepository manages cities keyed by (university_id, code).
type CityRepository struct {
	db *sqlx.DB
}

// NewCityRepository constructs a CityRepository.
func NewCityRepository(db *sqlx.DB) *CityRepository {
	return &CityRepository{db: db}
}

// List returns the cities of a university.
func (r *CityRepository) List(ctx context.Context, universityID string) ([]models.City, error) {
	const query = `SELECT code, university_id, name, created_at, updated_at FROM cities WHERE university_id = $1 ORDER BY name ASC`
	var cities []models.City
	if err := r.db.SelectContext(ctx, &cities, query, universityID); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// Find fetches a city; sql.ErrNoRows is returned unwrapped.
func (r *CityRepository) Find(ctx context.Context, universityID, code string) (*models.City, error) {
	const query = `SELECT code, university_id, name, created_at, updated_at FROM cities WHERE university_id = $1 AND code = $2`
	var city models.City
	if err := r.db.GetContext(ctx, &city, query, universityID, code); err != nil {
		return nil, err
	}
	return &city, nil
}

// ExistingCodes returns which of codes already exist in the university.
func (r *CityRepository) ExistingCodes(ctx context.Context, universityID string, codes []string) ([]string, error) {
	var existing []string
	const query = `SELECT code FROM cities WHERE university_id = $1 AND code = ANY($2)`
	if err := r.db.SelectContext(ctx, &existing, query, universityID, pq.Array(codes)); err != nil {
		return nil, fmt.Errorf("check city codes: %w", err)
	}
	return existing, nil
}

// CreateMany inserts all cities in one transaction.
func (r *CityRepository) CreateMany(ctx context.Context, cities []models.City) error {
	const query = `INSERT INTO cities (code, university_id, name, created_at, updated_at) VALUES (:code, :university_id, :name, :created_at, :updated_at)`
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range cities {
			cities[i].CreatedAt = now
			cities[i].UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, query, cities[i]); err != nil {
				return fmt.Errorf("create city %s: %w", cities[i].Code, err)
			}
		}
		return nil
	})
}

// Update renames a city.
func (r *CityRepository) Update(ctx context.Context, city *models.City) error {
	city.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cities SET name = :name, updated_at = :updated_at WHERE university_id = :university_id AND code = :code`
	if _, err := r.db.NamedExecContext(ctx, query, city); err != nil {
		return fmt.Errorf("update city: %w", err)
	}
	return nil
}
