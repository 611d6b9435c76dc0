package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *mockAuthRepo) {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID:           "123",
		UniversityID: "uni-1",
		Email:        "admin@example.com",
		PasswordHash: string(password),
		Active:       active,
		Role:         models.RoleAdmin,
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "unipass",
	})
	return svc, repo
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "uni-1", res.User.UniversityID)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, "uni-1", claims.UniversityID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "unipass", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc, repo := newAuthFixture(t, true)
	repo.findByEmailErr = sql.ErrNoRows

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.NoError(t, err)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	info, err := svc.Me(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", info.Email)

	_, err = svc.Me(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
