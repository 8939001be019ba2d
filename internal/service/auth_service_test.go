package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
)

type mockAuthRepo struct {
	users     []*models.User
	createErr error
	lookupErr error
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, u := range m.users {
		if u.LoginID == loginID {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user-" + user.LoginID
	m.users = append(m.users, user)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "test"})
}

func seededUser(t *testing.T) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "user-1", Name: "Asha", Email: "asha@example.com", LoginID: "asha", PasswordHash: string(hash), Role: models.RoleTeacher}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: " Ravi ", Email: "ravi@example.com", LoginID: "ravi", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", info.Name)
	assert.Equal(t, models.RoleTeacher, info.Role)
	require.Len(t, repo.users, 1)
	assert.NotEqual(t, "secret1", repo.users[0].PasswordHash)
}

func TestAuthServiceRegisterConflicts(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{seededUser(t)}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Other", Email: "asha@example.com", LoginID: "other", Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Name: "Other", Email: "other@example.com", LoginID: "asha", Password: "secret1",
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "login id")
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "x", Email: "bad", LoginID: "x", Password: "123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{seededUser(t)}}
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "asha", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.InDelta(t, 3600, resp.ExpiresIn, 5)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "test", claims.Issuer)

	byEmail, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", byEmail.User.ID)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{seededUser(t)}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "asha", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{LoginID: "nobody", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceAvailable(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{seededUser(t)}}
	svc := newAuthService(repo)

	ok, err := svc.Available(context.Background(), "asha@example.com", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Available(context.Background(), "", "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Available(context.Background(), "", "")
	require.Error(t, err)

	repo.lookupErr = errors.New("db down")
	_, err = svc.Available(context.Background(), "", "fresh")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{seededUser(t)}}
	issuer := newAuthService(repo)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{LoginID: "asha", Password: "password123"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
