package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

type universityRepository interface {
	List(ctx context.Context) ([]models.University, error)
	FindByID(ctx context.Context, id string) (*models.University, error)
	Create(ctx context.Context, university *models.University) error
	Update(ctx context.Context, university *models.University) error
}

// UniversityService manages the tenants of the platform.
type UniversityService struct {
	repo      universityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUniversityService constructs the university service.
func NewUniversityService(repo universityRepository, validate *validator.Validate, logger *zap.Logger) *UniversityService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniversityService{repo: repo, validator: validate, logger: logger}
}

// List returns every university.
func (s *UniversityService) List(ctx context.Context) ([]models.University, error) {
	universities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
	}
	return universities, nil
}

// Get returns one university.
func (s *UniversityService) Get(ctx context.Context, id string) (*models.University, error) {
	university, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	return university, nil
}

// Create registers a university.
func (s *UniversityService) Create(ctx context.Context, req models.UpsertUniversityRequest) (*models.University, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid university payload")
	}
	university := &models.University{Name: req.Name}
	if err := s.repo.Create(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create university")
	}
	s.logger.Info("university created", zap.String("university_id", university.ID))
	return university, nil
}

// Update renames a university.
func (s *UniversityService) Update(ctx context.Context, id string, req models.UpsertUniversityRequest) (*models.University, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid university payload")
	}
	university, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	university.Name = req.Name
	if err := s.repo.Update(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update university")
	}
	return university, nil
}
