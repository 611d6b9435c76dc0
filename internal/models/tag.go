package models

import (
	"encoding/json"
	"time"
)

// TagType fixes the value shape of a tag. It cannot change after creation.
type TagType string

const (
	TagTypeNumeric TagType = "numeric"
	TagTypeDate    TagType = "date"
	TagTypeBoolean TagType = "boolean"
	TagTypeList    TagType = "list"
)

// Tag is a university-defined custom attribute attachable to passes.
type Tag struct {
	ID           string    `db:"id" json:"id"`
	UniversityID string    `db:"university_id" json:"universityId"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Type         TagType   `db:"type" json:"type"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateTagRequest payload.
type CreateTagRequest struct {
	Name        string  `json:"name" validate:"required,min=1"`
	Description string  `json:"description" validate:"required,min=1"`
	Type        TagType `json:"type" validate:"required,oneof=numeric date boolean list"`
}

// UpdateTagRequest payload; type is immutable.
type UpdateTagRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description" validate:"required,min=1"`
}

// ListTagOption is a selectable option of a list tag.
type ListTagOption struct {
	ID        string    `db:"id" json:"id"`
	TagID     string    `db:"tag_id" json:"tagId"`
	Value     string    `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UpsertListTagOptionRequest payload for creating or renaming an option.
type UpsertListTagOptionRequest struct {
	Value string `json:"value" validate:"required,min=1"`
}

// TagValue is the value of one tag on one pass. Exactly one of the typed
// fields is set, selected by Type.
type TagValue struct {
	TagID            string          `json:"tagId"`
	UniversityID     string          `json:"universityId"`
	CareerID         string          `json:"careerId"`
	UniqueIdentifier string          `json:"uniqueIdentifier"`
	Type             TagType         `json:"type"`
	Numeric          *float64        `json:"numeric,omitempty"`
	Date             *Date           `json:"date,omitempty"`
	Boolean          *bool           `json:"boolean,omitempty"`
	Options          []ListTagOption `json:"options,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// TagValueRecord is the flat row shape of pass_tag_values joined with tags.
type TagValueRecord struct {
	TagID            string    `db:"tag_id"`
	UniversityID     string    `db:"university_id"`
	CareerID         string    `db:"career_id"`
	UniqueIdentifier string    `db:"unique_identifier"`
	Type             TagType   `db:"type"`
	NumericValue     *float64  `db:"numeric_value"`
	DateValue        *Date     `db:"date_value"`
	BooleanValue     *bool     `db:"boolean_value"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// TagValueOptionRecord links a list tag value to one selected option.
type TagValueOptionRecord struct {
	TagID            string `db:"tag_id"`
	CareerID         string `db:"career_id"`
	UniqueIdentifier string `db:"unique_identifier"`
	OptionID         string `db:"option_id"`
	Value            string `db:"value"`
}

// SetTagValueRequest sets the value of a tag on a pass. Value is decoded
// according to the tag type: a number, a date string or a boolean. List tags
// use OptionIDs instead and require at least one.
type SetTagValueRequest struct {
	PassKey
	Value     json.RawMessage `json:"value,omitempty"`
	OptionIDs []string        `json:"optionIds,omitempty"`
}

// TagValueKey identifies the tag values of one pass.
func TagValueKey(careerID, uniqueIdentifier string) string {
	return careerID + "\x00" + uniqueIdentifier
}
