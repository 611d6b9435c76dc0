package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

type tagRepository interface {
	List(ctx context.Context, universityID string) ([]models.Tag, error)
	FindByID(ctx context.Context, universityID, id string) (*models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	Update(ctx context.Context, tag *models.Tag) error
	ListOptions(ctx context.Context, tagID string) ([]models.ListTagOption, error)
	FindOptions(ctx context.Context, tagID string, ids []string) ([]models.ListTagOption, error)
	CreateOption(ctx context.Context, option *models.ListTagOption) error
	UpdateOption(ctx context.Context, option *models.ListTagOption) error
	DeleteOption(ctx context.Context, tagID, optionID string) error
	UpsertValue(ctx context.Context, value models.TagValue) error
	ListValuesForPass(ctx context.Context, universityID string, key models.PassKey) (map[string]models.TagValue, error)
}

type passKeyLookup interface {
	ExistingKeys(ctx context.Context, universityID string, keys []models.PassKey) (map[models.PassKey]bool, error)
}

// TagService manages university defined tags and their per-pass values.
type TagService struct {
	repo      tagRepository
	passes    passKeyLookup
	cache     passCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTagService constructs the tag service. cache may be nil.
func NewTagService(repo tagRepository, passes passKeyLookup, cache passCache, validate *validator.Validate, logger *zap.Logger) *TagService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagService{repo: repo, passes: passes, cache: cache, validator: validate, logger: logger}
}

// List returns the tags of a university.
func (s *TagService) List(ctx context.Context, universityID string) ([]models.Tag, error) {
	tags, err := s.repo.List(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tags")
	}
	return tags, nil
}

// Get returns a tag.
func (s *TagService) Get(ctx context.Context, universityID, id string) (*models.Tag, error) {
	tag, err := s.repo.FindByID(ctx, universityID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tag not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag")
	}
	return tag, nil
}

// Create defines a tag. Its type cannot change afterwards.
func (s *TagService) Create(ctx context.Context, universityID string, req models.CreateTagRequest) (*models.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid tag payload")
	}
	tag := &models.Tag{UniversityID: universityID, Name: req.Name, Description: req.Description, Type: req.Type}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tag")
	}
	return tag, nil
}

// Update changes name and description.
func (s *TagService) Update(ctx context.Context, universityID, id string, req models.UpdateTagRequest) (*models.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid tag payload")
	}
	tag, err := s.Get(ctx, universityID, id)
	if err != nil {
		return nil, err
	}
	tag.Name = req.Name
	tag.Description = req.Description
	if err := s.repo.Update(ctx, tag); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tag")
	}
	return tag, nil
}

// ListOptions returns the options of a list tag.
func (s *TagService) ListOptions(ctx context.Context, universityID, tagID string) ([]models.ListTagOption, error) {
	if _, err := s.listTag(ctx, universityID, tagID); err != nil {
		return nil, err
	}
	options, err := s.repo.ListOptions(ctx, tagID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tag options")
	}
	return options, nil
}

// CreateOption adds an option to a list tag.
func (s *TagService) CreateOption(ctx context.Context, universityID, tagID string, req models.UpsertListTagOptionRequest) (*models.ListTagOption, error) {
	req.Value = strings.TrimSpace(req.Value)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid option payload")
	}
	if _, err := s.listTag(ctx, universityID, tagID); err != nil {
		return nil, err
	}
	option := &models.ListTagOption{TagID: tagID, Value: req.Value}
	if err := s.repo.CreateOption(ctx, option); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tag option")
	}
	return option, nil
}

// UpdateOption changes the value of an option.
func (s *TagService) UpdateOption(ctx context.Context, universityID, tagID, optionID string, req models.UpsertListTagOptionRequest) (*models.ListTagOption, error) {
	req.Value = strings.TrimSpace(req.Value)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid option payload")
	}
	if _, err := s.listTag(ctx, universityID, tagID); err != nil {
		return nil, err
	}
	found, err := s.repo.FindOptions(ctx, tagID, []string{optionID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag option")
	}
	if len(found) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tag option not found")
	}
	option := found[0]
	option.Value = req.Value
	if err := s.repo.UpdateOption(ctx, &option); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tag option")
	}
	s.invalidate(ctx, universityID)
	return &option, nil
}

// DeleteOption removes an option.
func (s *TagService) DeleteOption(ctx context.Context, universityID, tagID, optionID string) error {
	if _, err := s.listTag(ctx, universityID, tagID); err != nil {
		return err
	}
	if err := s.repo.DeleteOption(ctx, tagID, optionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete tag option")
	}
	s.invalidate(ctx, universityID)
	return nil
}

// PassValues returns every tag value of one pass keyed by tag id.
func (s *TagService) PassValues(ctx context.Context, universityID string, key models.PassKey) (map[string]models.TagValue, error) {
	values, err := s.repo.ListValuesForPass(ctx, universityID, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag values")
	}
	return values, nil
}

// SetValue stores the value of a tag for one pass. The payload shape must
// match the tag type: a number, a date, a boolean, or option ids for list tags.
func (s *TagService) SetValue(ctx context.Context, universityID, tagID string, req models.SetTagValueRequest) (*models.TagValue, error) {
	if err := s.validator.Struct(req.PassKey); err != nil {
		return nil, appErrors.Invalid(err, "invalid pass key")
	}
	tag, err := s.Get(ctx, universityID, tagID)
	if err != nil {
		return nil, err
	}
	existing, err := s.passes.ExistingKeys(ctx, universityID, []models.PassKey{req.PassKey})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pass")
	}
	if !existing[req.PassKey] {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
	}

	value := models.TagValue{
		TagID:            tag.ID,
		UniversityID:     universityID,
		CareerID:         req.CareerID,
		UniqueIdentifier: req.UniqueIdentifier,
		Type:             tag.Type,
	}
	if err := s.decodeValue(ctx, tag, req, &value); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertValue(ctx, value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store tag value")
	}
	s.invalidate(ctx, universityID)
	return &value, nil
}

func (s *TagService) decodeValue(ctx context.Context, tag *models.Tag, req models.SetTagValueRequest, value *models.TagValue) error {
	mismatch := func(expected string) error {
		return appErrors.Clone(appErrors.ErrTagTypeMismatch, fmt.Sprintf("tag %s of type %s expects %s", tag.ID, tag.Type, expected))
	}
	hasValue := len(req.Value) > 0 && string(req.Value) != "null"
	if tag.Type != models.TagTypeList && len(req.OptionIDs) > 0 {
		return mismatch("a value, not options")
	}
	switch tag.Type {
	case models.TagTypeNumeric:
		var n float64
		if !hasValue || json.Unmarshal(req.Value, &n) != nil {
			return mismatch("a number")
		}
		value.Numeric = &n
	case models.TagTypeDate:
		var raw string
		if !hasValue || json.Unmarshal(req.Value, &raw) != nil {
			return mismatch("a date string")
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			return mismatch("a date string")
		}
		value.Date = &d
	case models.TagTypeBoolean:
		var b bool
		if !hasValue || json.Unmarshal(req.Value, &b) != nil {
			return mismatch("a boolean")
		}
		value.Boolean = &b
	case models.TagTypeList:
		if hasValue {
			return mismatch("optionIds")
		}
		if len(req.OptionIDs) == 0 {
			return mismatch("at least one option id")
		}
		options, err := s.repo.FindOptions(ctx, tag.ID, req.OptionIDs)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag options")
		}
		if len(options) != len(uniqueStrings(req.OptionIDs)) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown option for tag")
		}
		value.Options = options
	default:
		return mismatch("a supported type")
	}
	return nil
}

func (s *TagService) listTag(ctx context.Context, universityID, tagID string) (*models.Tag, error) {
	tag, err := s.Get(ctx, universityID, tagID)
	if err != nil {
		return nil, err
	}
	if tag.Type != models.TagTypeList {
		return nil, appErrors.Clone(appErrors.ErrTagTypeMismatch, "options are only available on list tags")
	}
	return tag, nil
}

func (s *TagService) invalidate(ctx context.Context, universityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("passes:query:%s:*", universityID)); err != nil {
		s.logger.Warn("failed to invalidate pass query cache", zap.String("university_id", universityID), zap.Error(err))
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
