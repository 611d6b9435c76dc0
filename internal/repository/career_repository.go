package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unipass-api/internal/models"
)

// CareerRepository manages careers keyed by (university_id, code).
type CareerRepository struct {
	db *sqlx.DB
}

// NewCareerRepository constructs a CareerRepository.
func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

// List returns the careers of a university.
func (r *CareerRepository) List(ctx context.Context, universityID string) ([]models.Career, error) {
	const query = `SELECT code, university_id, name, created_at, updated_at FROM careers WHERE university_id = $1 ORDER BY code ASC`
	var careers []models.Career
	if err := r.db.SelectContext(ctx, &careers, query, universityID); err != nil {
		return nil, fmt.Errorf("list careers: %w", err)
	}
	return careers, nil
}

// Find fetches a career; sql.ErrNoRows is returned unwrapped.
func (r *CareerRepository) Find(ctx context.Context, universityID, code string) (*models.Career, error) {
	const query = `SELECT code, university_id, name, created_at, updated_at FROM careers WHERE university_id = $1 AND code = $2`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, universityID, code); err != nil {
		return nil, err
	}
	return &career, nil
}

// Exists reports whether the code is taken within the university.
func (r *CareerRepository) Exists(ctx context.Context, universityID, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM careers WHERE university_id = $1 AND code = $2 LIMIT 1`, universityID, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check career code: %w", err)
	}
	return true, nil
}

// Create inserts a career.
func (r *CareerRepository) Create(ctx context.Context, career *models.Career) error {
	now := time.Now().UTC()
	career.CreatedAt = now
	career.UpdatedAt = now
	const query = `INSERT INTO careers (code, university_id, name, created_at, updated_at) VALUES (:code, :university_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, career); err != nil {
		return fmt.Errorf("create career: %w", err)
	}
	return nil
}

// Update renames a career.
func (r *CareerRepository) Update(ctx context.Context, career *models.Career) error {
	career.UpdatedAt = time.Now().UTC()
	const query = `UPDATE careers SET name = :name, updated_at = :updated_at WHERE university_id = :university_id AND code = :code`
	if _, err := r.db.NamedExecContext(ctx, query, career); err != nil {
		return fmt.Errorf("update career: %w", err)
	}
	return nil
}
