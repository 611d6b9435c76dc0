package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

type cityRepository interface {
	List(ctx context.Context, universityID string) ([]models.City, error)
	Find(ctx context.Context, universityID, code string) (*models.City, error)
	ExistingCodes(ctx context.Context, universityID string, codes []string) ([]string, error)
	CreateMany(ctx context.Context, cities []models.City) error
	Update(ctx context.Context, city *models.City) error
}

// CityService manages the cities where a university operates.
type CityService struct {
	repo      cityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCityService constructs the city service.
func NewCityService(repo cityRepository, validate *validator.Validate, logger *zap.Logger) *CityService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CityService{repo: repo, validator: validate, logger: logger}
}

// List returns the cities of a university.
func (s *CityService) List(ctx context.Context, universityID string) ([]models.City, error) {
	cities, err := s.repo.List(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cities")
	}
	return cities, nil
}

// Get returns a city by code.
func (s *CityService) Get(ctx context.Context, universityID, code string) (*models.City, error) {
	city, err := s.repo.Find(ctx, universityID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "city not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load city")
	}
	return city, nil
}

// Create adds a single city.
func (s *CityService) Create(ctx context.Context, universityID string, req models.CreateCityRequest) (*models.City, error) {
	cities, err := s.CreateMany(ctx, universityID, models.CreateManyCitiesRequest{Data: []models.CreateCityRequest{req}})
	if err != nil {
		return nil, err
	}
	return &cities[0], nil
}

// CreateMany adds a batch of cities atomically. A code repeated inside the
// batch rejects the whole batch before anything is written.
func (s *CityService) CreateMany(ctx context.Context, universityID string, req models.CreateManyCitiesRequest) ([]models.City, error) {
	for i := range req.Data {
		req.Data[i].Code = strings.TrimSpace(req.Data[i].Code)
		req.Data[i].Name = strings.TrimSpace(req.Data[i].Name)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid city payload")
	}
	if fields := duplicateCityCodes(req.Data); fields != nil {
		return nil, fields
	}

	codes := make([]string, len(req.Data))
	for i, item := range req.Data {
		codes[i] = item.Code
	}
	existing, err := s.repo.ExistingCodes(ctx, universityID, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate city codes")
	}
	if len(existing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("city codes already used: %s", strings.Join(existing, ", ")))
	}

	cities := make([]models.City, len(req.Data))
	for i, item := range req.Data {
		cities[i] = models.City{Code: item.Code, UniversityID: universityID, Name: item.Name}
	}
	if err := s.repo.CreateMany(ctx, cities); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cities")
	}
	s.logger.Info("cities created", zap.String("university_id", universityID), zap.Int("count", len(cities)))
	return cities, nil
}

// Update renames a city. The code is immutable.
func (s *CityService) Update(ctx context.Context, universityID, code string, req models.UpdateCityRequest) (*models.City, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid city payload")
	}
	city, err := s.Get(ctx, universityID, code)
	if err != nil {
		return nil, err
	}
	city.Name = req.Name
	if err := s.repo.Update(ctx, city); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update city")
	}
	return city, nil
}

func duplicateCityCodes(items []models.CreateCityRequest) error {
	var fields appErrors.FieldErrors
	firstSeen := make(map[string]int, len(items))
	for i, item := range items {
		if first, ok := firstSeen[item.Code]; ok {
			fields.Add(fmt.Sprintf("data[%d].code", i), fmt.Sprintf("duplicate code %q, first used at index %d", item.Code, first))
			continue
		}
		firstSeen[item.Code] = i
	}
	return fields.OrNil()
}
