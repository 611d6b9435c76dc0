package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unipass-api/internal/models"
)

// UniversityRepository manages persistence for universities.
type UniversityRepository struct {
	db *sqlx.DB
}

// NewUniversityRepository constructs a UniversityRepository.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// List returns every university ordered by name.
func (r *UniversityRepository) List(ctx context.Context) ([]models.University, error) {
	const query = `SELECT id, name, created_at, updated_at FROM universities ORDER BY name ASC`
	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query); err != nil {
		return nil, fmt.Errorf("list universities: %w", err)
	}
	return universities, nil
}

// FindByID fetches a university; sql.ErrNoRows is returned unwrapped.
func (r *UniversityRepository) FindByID(ctx context.Context, id string) (*models.University, error) {
	const query = `SELECT id, name, created_at, updated_at FROM universities WHERE id = $1`
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, id); err != nil {
		return nil, err
	}
	return &university, nil
}

// Create inserts a university.
func (r *UniversityRepository) Create(ctx context.Context, university *models.University) error {
	if university.ID == "" {
		university.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	university.CreatedAt = now
	university.UpdatedAt = now
	const query = `INSERT INTO universities (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("create university: %w", err)
	}
	return nil
}

// Update renames a university.
func (r *UniversityRepository) Update(ctx context.Context, university *models.University) error {
	university.UpdatedAt = time.Now().UTC()
	const query = `UPDATE universities SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("update university: %w", err)
	}
	return nil
}
