package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

type mockUserRepo struct {
	users          map[string]*models.User
	listUsers      []models.User
	listCount      int
	listErr        error
	findByIDErr    error
	findByEmailErr error
}

type fakeUniversities map[string]bool

func (f fakeUniversities) FindByID(_ context.Context, id string) (*models.University, error) {
	if f[id] {
		return &models.University{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	if m.listUsers != nil {
		return m.listUsers, m.listCount, nil
	}
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if user, ok := m.users[id]; ok {
		user.Active = false
		m.users[id] = user
		return nil
	}
	return sql.ErrNoRows
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, fakeUniversities{"uni-1": true}, validation.New(), zap.NewNop())
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{{ID: "1", Email: "a@example.com"}}, listCount: 1}
	svc := newTestUserService(repo)
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 10, pagination.PageSize)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := newTestUserService(repo)
	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email: "USER@EXAMPLE.COM", FullName: "User", Password: "secret123", Role: models.RoleAdmin, UniversityID: "uni-1", Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "uni-1", user.UniversityID)
	assert.NotEqual(t, "secret123", repo.users[user.ID].PasswordHash)
}

func TestUserServiceCreateRules(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "taken@example.com"}}}
	svc := newTestUserService(repo)

	cases := []struct {
		name  string
		req   models.CreateUserRequest
		code  string
		field string
	}{
		{
			name:  "admin without university",
			req:   models.CreateUserRequest{Email: "a@example.com", FullName: "A", Password: "secret123", Role: models.RoleAdmin},
			code:  appErrors.ErrValidation.Code,
			field: "universityId",
		},
		{
			name: "unknown university",
			req:  models.CreateUserRequest{Email: "a@example.com", FullName: "A", Password: "secret123", Role: models.RoleAdmin, UniversityID: "uni-9"},
			code: appErrors.ErrValidation.Code,
		},
		{
			name: "duplicate email ignores case",
			req:  models.CreateUserRequest{Email: "TAKEN@example.com", FullName: "A", Password: "secret123", Role: models.RoleSuperAdmin},
			code: appErrors.ErrConflict.Code,
		},
		{
			name:  "short password",
			req:   models.CreateUserRequest{Email: "b@example.com", FullName: "B", Password: "short", Role: models.RoleSuperAdmin},
			code:  appErrors.ErrValidation.Code,
			field: "password",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			if tc.field != "" {
				var fields appErrors.FieldErrors
				require.ErrorAs(t, err, &fields)
				assert.Equal(t, tc.field, fields[0].Path)
			}
		})
	}

	_, err := svc.Create(context.Background(), models.CreateUserRequest{Email: "root@example.com", FullName: "Root", Password: "secret123", Role: models.RoleSuperAdmin})
	assert.NoError(t, err)
	assert.Len(t, repo.users, 2)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", UniversityID: "uni-1", Email: "a@example.com", FullName: "Old", Role: models.RoleSuperAdmin, Active: true}}}
	svc := newTestUserService(repo)
	active := false
	user, err := svc.Update(context.Background(), "1", models.UpdateUserRequest{FullName: "New", Role: models.RoleAdmin, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.False(t, user.Active)

	_, err = svc.Update(context.Background(), "missing", models.UpdateUserRequest{FullName: "New", Role: models.RoleAdmin})
	assert.Error(t, err)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@example.com", FullName: "Old", Role: models.RoleAdmin, Active: true}}}
	svc := newTestUserService(repo)

	assert.Error(t, svc.Delete(context.Background(), "1", "1"))

	require.NoError(t, svc.Delete(context.Background(), "1", "actor"))
	assert.False(t, repo.users["1"].Active)
}
