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

type careerRepository interface {
	List(ctx context.Context, universityID string) ([]models.Career, error)
	Find(ctx context.Context, universityID, code string) (*models.Career, error)
	Exists(ctx context.Context, universityID, code string) (bool, error)
	Create(ctx context.Context, career *models.Career) error
	Update(ctx context.Context, career *models.Career) error
}

// CareerService manages the careers offered by a university.
type CareerService struct {
	repo      careerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCareerService constructs the career service.
func NewCareerService(repo careerRepository, validate *validator.Validate, logger *zap.Logger) *CareerService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareerService{repo: repo, validator: validate, logger: logger}
}

// List returns the careers of a university.
func (s *CareerService) List(ctx context.Context, universityID string) ([]models.Career, error) {
	careers, err := s.repo.List(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list careers")
	}
	return careers, nil
}

// Get returns a career by code.
func (s *CareerService) Get(ctx context.Context, universityID, code string) (*models.Career, error) {
	career, err := s.repo.Find(ctx, universityID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	return career, nil
}

// Create adds a career; codes are unique per university.
func (s *CareerService) Create(ctx context.Context, universityID string, req models.CreateCareerRequest) (*models.Career, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid career payload")
	}
	exists, err := s.repo.Exists(ctx, universityID, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate career code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "career code already used")
	}
	career := &models.Career{Code: req.Code, UniversityID: universityID, Name: req.Name}
	if err := s.repo.Create(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create career")
	}
	return career, nil
}

// Update renames a career. The code is immutable.
func (s *CareerService) Update(ctx context.Context, universityID, code string, req models.UpdateCareerRequest) (*models.Career, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid career payload")
	}
	career, err := s.Get(ctx, universityID, code)
	if err != nil {
		return nil, err
	}
	career.Name = req.Name
	if err := s.repo.Update(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update career")
	}
	return career, nil
}
