package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type fakeTagRepo struct {
	tags    map[string]*models.Tag
	options map[string]models.ListTagOption
	values  []models.TagValue
	updated *models.Tag
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{
		tags: map[string]*models.Tag{
			"credits":  {ID: "credits", UniversityID: "uni-1", Type: models.TagTypeNumeric},
			"deadline": {ID: "deadline", UniversityID: "uni-1", Type: models.TagTypeDate},
			"scholar":  {ID: "scholar", UniversityID: "uni-1", Type: models.TagTypeBoolean},
			"campus":   {ID: "campus", UniversityID: "uni-1", Type: models.TagTypeList},
		},
		options: map[string]models.ListTagOption{
			"north": {ID: "north", TagID: "campus", Value: "1"},
			"south": {ID: "south", TagID: "campus", Value: "2"},
		},
	}
}

func (f *fakeTagRepo) List(_ context.Context, universityID string) ([]models.Tag, error) {
	var out []models.Tag
	for _, t := range f.tags {
		if t.UniversityID == universityID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTagRepo) FindByID(_ context.Context, universityID, id string) (*models.Tag, error) {
	t, ok := f.tags[id]
	if !ok || t.UniversityID != universityID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTagRepo) Create(_ context.Context, tag *models.Tag) error {
	tag.ID = "new-tag"
	f.tags[tag.ID] = tag
	return nil
}

func (f *fakeTagRepo) Update(_ context.Context, tag *models.Tag) error {
	f.updated = tag
	return nil
}

func (f *fakeTagRepo) ListOptions(_ context.Context, tagID string) ([]models.ListTagOption, error) {
	var out []models.ListTagOption
	for _, o := range f.options {
		if o.TagID == tagID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeTagRepo) FindOptions(_ context.Context, tagID string, ids []string) ([]models.ListTagOption, error) {
	var out []models.ListTagOption
	for _, id := range uniqueStrings(ids) {
		if o, ok := f.options[id]; ok && o.TagID == tagID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeTagRepo) CreateOption(_ context.Context, option *models.ListTagOption) error {
	option.ID = "new-option"
	f.options[option.ID] = *option
	return nil
}

func (f *fakeTagRepo) UpdateOption(_ context.Context, option *models.ListTagOption) error {
	f.options[option.ID] = *option
	return nil
}

func (f *fakeTagRepo) DeleteOption(_ context.Context, _, optionID string) error {
	delete(f.options, optionID)
	return nil
}

func (f *fakeTagRepo) UpsertValue(_ context.Context, value models.TagValue) error {
	f.values = append(f.values, value)
	return nil
}

func (f *fakeTagRepo) ListValuesForPass(_ context.Context, _ string, _ models.PassKey) (map[string]models.TagValue, error) {
	out := map[string]models.TagValue{}
	for _, v := range f.values {
		out[v.TagID] = v
	}
	return out, nil
}

var taggedPass = models.PassKey{UniqueIdentifier: "A001", CareerID: "SIS"}

func newTestTagService(repo *fakeTagRepo, cache passCache) *TagService {
	passes := &fakePassRepo{existing: map[models.PassKey]bool{taggedPass: true}}
	return NewTagService(repo, passes, cache, nil, nil)
}

func setValueRequest(raw string, optionIDs ...string) models.SetTagValueRequest {
	req := models.SetTagValueRequest{PassKey: taggedPass, OptionIDs: optionIDs}
	if raw != "" {
		req.Value = json.RawMessage(raw)
	}
	return req
}

func TestTagServiceSetValueByType(t *testing.T) {
	repo := newFakeTagRepo()
	cache := newMemoryCache()
	svc := newTestTagService(repo, cache)
	ctx := context.Background()

	value, err := svc.SetValue(ctx, "uni-1", "credits", setValueRequest("42.5"))
	require.NoError(t, err)
	require.NotNil(t, value.Numeric)
	assert.Equal(t, 42.5, *value.Numeric)

	value, err = svc.SetValue(ctx, "uni-1", "deadline", setValueRequest(`"2024-03-15"`))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", value.Date.String())

	value, err = svc.SetValue(ctx, "uni-1", "scholar", setValueRequest("true"))
	require.NoError(t, err)
	assert.True(t, *value.Boolean)

	value, err = svc.SetValue(ctx, "uni-1", "campus", setValueRequest("", "north", "south", "north"))
	require.NoError(t, err)
	assert.Len(t, value.Options, 2)

	assert.Len(t, repo.values, 4)
	assert.Len(t, cache.invalidated, 4)
}

func TestTagServiceSetValueTypeMismatch(t *testing.T) {
	svc := newTestTagService(newFakeTagRepo(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		tagID string
		req   models.SetTagValueRequest
	}{
		{"string on numeric", "credits", setValueRequest(`"many"`)},
		{"null on numeric", "credits", setValueRequest("null")},
		{"number on date", "deadline", setValueRequest("20240315")},
		{"bad date", "deadline", setValueRequest(`"tomorrow"`)},
		{"number on boolean", "scholar", setValueRequest("1")},
		{"options on boolean", "scholar", setValueRequest("true", "north")},
		{"value on list", "campus", setValueRequest("1")},
		{"empty list", "campus", setValueRequest("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SetValue(ctx, "uni-1", tc.tagID, tc.req)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrTagTypeMismatch.Code, appErr.Code)
		})
	}
}

func TestTagServiceSetValueUnknownOptionOrPass(t *testing.T) {
	svc := newTestTagService(newFakeTagRepo(), nil)
	ctx := context.Background()

	_, err := svc.SetValue(ctx, "uni-1", "campus", setValueRequest("", "north", "west"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	req := setValueRequest("1")
	req.UniqueIdentifier = "Z999"
	_, err = svc.SetValue(ctx, "uni-1", "credits", req)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTagServiceUpdateKeepsType(t *testing.T) {
	repo := newFakeTagRepo()
	svc := newTestTagService(repo, nil)

	tag, err := svc.Update(context.Background(), "uni-1", "credits", models.UpdateTagRequest{Name: " Credits ", Description: "Approved credits"})
	require.NoError(t, err)
	assert.Equal(t, "Credits", tag.Name)
	assert.Equal(t, models.TagTypeNumeric, repo.updated.Type)

	_, err = svc.Get(context.Background(), "uni-2", "credits")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTagServiceOptionsRequireListTag(t *testing.T) {
	repo := newFakeTagRepo()
	svc := newTestTagService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateOption(ctx, "uni-1", "credits", models.UpsertListTagOptionRequest{Value: "3"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrTagTypeMismatch.Code, appErr.Code)

	option, err := svc.CreateOption(ctx, "uni-1", "campus", models.UpsertListTagOptionRequest{Value: "3"})
	require.NoError(t, err)
	assert.Equal(t, "campus", option.TagID)

	updated, err := svc.UpdateOption(ctx, "uni-1", "campus", "north", models.UpsertListTagOptionRequest{Value: "10"})
	require.NoError(t, err)
	assert.Equal(t, "10", updated.Value)

	_, err = svc.UpdateOption(ctx, "uni-1", "campus", "missing", models.UpsertListTagOptionRequest{Value: "10"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	require.NoError(t, svc.DeleteOption(ctx, "uni-1", "campus", "south"))
	options, err := svc.ListOptions(ctx, "uni-1", "campus")
	require.NoError(t, err)
	assert.Len(t, options, 2)
}
