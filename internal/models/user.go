package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
)

// User is an administrator account scoped to one university.
type User struct {
	ID           string     `db:"id" json:"id"`
	UniversityID string     `db:"university_id" json:"universityId"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing administrators.
type UserFilter struct {
	UniversityID string
	Role         *UserRole
	Active       *bool
	Search       string
	Page         int
	PageSize     int
}

// CreateUserRequest creates an administrator. ADMIN accounts must belong to a university.
type CreateUserRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	FullName     string   `json:"fullName" validate:"required"`
	Role         UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN"`
	UniversityID string   `json:"universityId" validate:"required_if=Role ADMIN"`
	Active       bool     `json:"active"`
	Password     string   `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest changes the mutable attributes of an administrator.
type UpdateUserRequest struct {
	FullName string   `json:"fullName" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN"`
	Active   *bool    `json:"active"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// normalizePage applies the defaults shared by every list endpoint.
func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return page, size
}
