package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/pkg/database"
)

// TagRepository persists tags, list options and per-pass tag values.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs a TagRepository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

const tagColumns = `id, university_id, name, description, type, created_at, updated_at`

// List returns the tags of a university.
func (r *TagRepository) List(ctx context.Context, universityID string) ([]models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE university_id = $1 ORDER BY name ASC`
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, query, universityID); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// FindByID fetches a tag; sql.ErrNoRows is returned unwrapped.
func (r *TagRepository) FindByID(ctx context.Context, universityID, id string) (*models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE university_id = $1 AND id = $2`
	var tag models.Tag
	if err := r.db.GetContext(ctx, &tag, query, universityID, id); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Create inserts a tag.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tag.CreatedAt = now
	tag.UpdatedAt = now
	const query = `INSERT INTO tags (id, university_id, name, description, type, created_at, updated_at)
		VALUES (:id, :university_id, :name, :description, :type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tag); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// Update changes name and description. The type column is never written.
func (r *TagRepository) Update(ctx context.Context, tag *models.Tag) error {
	tag.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tags SET name = :name, description = :description, updated_at = :updated_at WHERE university_id = :university_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tag); err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return nil
}

// ListOptions returns the options of a list tag.
func (r *TagRepository) ListOptions(ctx context.Context, tagID string) ([]models.ListTagOption, error) {
	const query = `SELECT id, tag_id, value, created_at, updated_at FROM list_tag_options WHERE tag_id = $1 ORDER BY value ASC`
	var options []models.ListTagOption
	if err := r.db.SelectContext(ctx, &options, query, tagID); err != nil {
		return nil, fmt.Errorf("list tag options: %w", err)
	}
	return options, nil
}

// FindOptions returns the options of tagID among ids.
func (r *TagRepository) FindOptions(ctx context.Context, tagID string, ids []string) ([]models.ListTagOption, error) {
	const query = `SELECT id, tag_id, value, created_at, updated_at FROM list_tag_options WHERE tag_id = $1 AND id = ANY($2)`
	var options []models.ListTagOption
	if err := r.db.SelectContext(ctx, &options, query, tagID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find tag options: %w", err)
	}
	return options, nil
}

// CreateOption inserts a list option.
func (r *TagRepository) CreateOption(ctx context.Context, option *models.ListTagOption) error {
	if option.ID == "" {
		option.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	option.CreatedAt = now
	option.UpdatedAt = now
	const query = `INSERT INTO list_tag_options (id, tag_id, value, created_at, updated_at) VALUES (:id, :tag_id, :value, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, option); err != nil {
		return fmt.Errorf("create tag option: %w", err)
	}
	return nil
}

// UpdateOption changes the value of a list option.
func (r *TagRepository) UpdateOption(ctx context.Context, option *models.ListTagOption) error {
	option.UpdatedAt = time.Now().UTC()
	const query = `UPDATE list_tag_options SET value = :value, updated_at = :updated_at WHERE tag_id = :tag_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, option); err != nil {
		return fmt.Errorf("update tag option: %w", err)
	}
	return nil
}

// DeleteOption removes a list option and its selections.
func (r *TagRepository) DeleteOption(ctx context.Context, tagID, optionID string) error {
	const query = `DELETE FROM list_tag_options WHERE tag_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tagID, optionID); err != nil {
		return fmt.Errorf("delete tag option: %w", err)
	}
	return nil
}

// UpsertValue stores the value of a tag for one pass, replacing any
// previous value and option selection.
func (r *TagRepository) UpsertValue(ctx context.Context, value models.TagValue) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return r.upsertValue(ctx, tx, value)
	})
}

func (r *TagRepository) upsertValue(ctx context.Context, tx *sqlx.Tx, value models.TagValue) error {
	now := time.Now().UTC()
	const upsert = `INSERT INTO pass_tag_values (tag_id, university_id, career_id, unique_identifier, numeric_value, date_value, boolean_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (tag_id, university_id, career_id, unique_identifier)
		DO UPDATE SET numeric_value = EXCLUDED.numeric_value, date_value = EXCLUDED.date_value, boolean_value = EXCLUDED.boolean_value, updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, value.TagID, value.UniversityID, value.CareerID, value.UniqueIdentifier,
		value.Numeric, value.Date, value.Boolean, now); err != nil {
		return fmt.Errorf("upsert tag value: %w", err)
	}

	const clear = `DELETE FROM pass_tag_value_options WHERE tag_id = $1 AND university_id = $2 AND career_id = $3 AND unique_identifier = $4`
	if _, err := tx.ExecContext(ctx, clear, value.TagID, value.UniversityID, value.CareerID, value.UniqueIdentifier); err != nil {
		return fmt.Errorf("clear tag value options: %w", err)
	}

	const link = `INSERT INTO pass_tag_value_options (tag_id, university_id, career_id, unique_identifier, option_id) VALUES ($1, $2, $3, $4, $5)`
	for _, option := range value.Options {
		if _, err := tx.ExecContext(ctx, link, value.TagID, value.UniversityID, value.CareerID, value.UniqueIdentifier, option.ID); err != nil {
			return fmt.Errorf("link tag value option: %w", err)
		}
	}
	return nil
}

// ListValuesByTags returns the values of tagIDs across the university,
// keyed by models.TagValueKey and then tag id.
func (r *TagRepository) ListValuesByTags(ctx context.Context, universityID string, tagIDs []string) (map[string]map[string]models.TagValue, error) {
	if len(tagIDs) == 0 {
		return map[string]map[string]models.TagValue{}, nil
	}
	return r.listValues(ctx, "v.university_id = $1 AND v.tag_id = ANY($2)", universityID, pq.Array(tagIDs))
}

// ListValuesForPass returns every tag value of one pass keyed by tag id.
func (r *TagRepository) ListValuesForPass(ctx context.Context, universityID string, key models.PassKey) (map[string]models.TagValue, error) {
	values, err := r.listValues(ctx, "v.university_id = $1 AND v.career_id = $2 AND v.unique_identifier = $3",
		universityID, key.CareerID, key.UniqueIdentifier)
	if err != nil {
		return nil, err
	}
	if byTag, ok := values[models.TagValueKey(key.CareerID, key.UniqueIdentifier)]; ok {
		return byTag, nil
	}
	return map[string]models.TagValue{}, nil
}

func (r *TagRepository) listValues(ctx context.Context, where string, args ...interface{}) (map[string]map[string]models.TagValue, error) {
	valueQuery := `SELECT v.tag_id, v.university_id, v.career_id, v.unique_identifier, t.type, v.numeric_value, v.date_value,
		v.boolean_value, v.created_at, v.updated_at
		FROM pass_tag_values v JOIN tags t ON t.id = v.tag_id WHERE ` + where
	var records []models.TagValueRecord
	if err := r.db.SelectContext(ctx, &records, valueQuery, args...); err != nil {
		return nil, fmt.Errorf("list tag values: %w", err)
	}

	optionQuery := `SELECT v.tag_id, v.career_id, v.unique_identifier, v.option_id, o.value
		FROM pass_tag_value_options v JOIN list_tag_options o ON o.id = v.option_id WHERE ` + where
	var optionRecords []models.TagValueOptionRecord
	if err := r.db.SelectContext(ctx, &optionRecords, optionQuery, args...); err != nil {
		return nil, fmt.Errorf("list tag value options: %w", err)
	}

	options := make(map[string][]models.ListTagOption, len(optionRecords))
	for _, rec := range optionRecords {
		k := strings.Join([]string{rec.TagID, models.TagValueKey(rec.CareerID, rec.UniqueIdentifier)}, "\x00")
		options[k] = append(options[k], models.ListTagOption{ID: rec.OptionID, TagID: rec.TagID, Value: rec.Value})
	}

	result := make(map[string]map[string]models.TagValue)
	for _, rec := range records {
		passKey := models.TagValueKey(rec.CareerID, rec.UniqueIdentifier)
		byTag, ok := result[passKey]
		if !ok {
			byTag = make(map[string]models.TagValue)
			result[passKey] = byTag
		}
		byTag[rec.TagID] = models.TagValue{
			TagID:            rec.TagID,
			UniversityID:     rec.UniversityID,
			CareerID:         rec.CareerID,
			UniqueIdentifier: rec.UniqueIdentifier,
			Type:             rec.Type,
			Numeric:          rec.NumericValue,
			Date:             rec.DateValue,
			Boolean:          rec.BooleanValue,
			Options:          options[strings.Join([]string{rec.TagID, passKey}, "\x00")],
			UpdatedAt:        rec.UpdatedAt,
		}
	}
	return result, nil
}
