package models

import "time"

// University owns careers, cities, passes and tags.
type University struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UpsertUniversityRequest is used for both create and update.
type UpsertUniversityRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// Career is identified by its code within a university. Passes reference it
// through careerId.
type Career struct {
	Code         string    `db:"code" json:"code"`
	UniversityID string    `db:"university_id" json:"universityId"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateCareerRequest payload.
type CreateCareerRequest struct {
	Code string `json:"code" validate:"required,min=1"`
	Name string `json:"name" validate:"required,min=1"`
}

// UpdateCareerRequest payload; the code is immutable.
type UpdateCareerRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// City is identified by its code within a university.
type City struct {
	Code         string    `db:"code" json:"code"`
	UniversityID string    `db:"university_id" json:"universityId"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateCityRequest payload.
type CreateCityRequest struct {
	Code string `json:"code" validate:"required,min=1"`
	Name string `json:"name" validate:"required,min=1"`
}

// CreateManyCitiesRequest creates a batch of cities; codes must be unique within the batch.
type CreateManyCitiesRequest struct {
	Data []CreateCityRequest `json:"data" validate:"required,min=1,dive"`
}

// UpdateCityRequest payload; the code is immutable.
type UpdateCityRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}
