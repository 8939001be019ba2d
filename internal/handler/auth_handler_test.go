package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumanager-api/internal/middleware"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
)

type authServiceMock struct {
	registered  *models.RegisterRequest
	registerErr error
	loginResp   *models.LoginResponse
	loginErr    error
	available   bool
	checkArgs   [2]string
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	m.registered = &req
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.UserInfo{ID: "user-1", Name: req.Name, Email: req.Email, LoginID: req.LoginID, Role: models.RoleTeacher}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) Available(ctx context.Context, email, loginID string) (bool, error) {
	m.checkArgs = [2]string{email, loginID}
	return m.available, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.RegisterRequest{Name: "Dr. Rao", Email: "rao@example.edu", LoginID: "rao", Password: "secret1"})
	c, w := newGinContext(http.MethodPost, "/auth/register", payload)
	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var user models.UserInfo
	decodeData(t, w, &user)
	assert.Equal(t, "rao", user.LoginID)
	assert.Equal(t, "Dr. Rao", svc.registered.Name)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	svc := &authServiceMock{registerErr: appErrors.Clone(appErrors.ErrConflict, "email already registered")}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.RegisterRequest{Name: "A", Email: "a@example.edu", LoginID: "a", Password: "secret1"})
	c, w := newGinContext(http.MethodPost, "/auth/register", payload)
	h.Register(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "email already registered", env.Error.Message)
}

func TestAuthHandlerLoginRejectsMalformedJSON(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodPost, "/auth/login", []byte("{"))
	h.Login(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{loginResp: &models.LoginResponse{Token: "tok", ExpiresIn: 3600}}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.LoginRequest{LoginID: "rao", Password: "secret1"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res models.LoginResponse
	decodeData(t, w, &res)
	assert.Equal(t, "tok", res.Token)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})
	payload, _ := json.Marshal(models.LoginRequest{LoginID: "rao", Password: "nope"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerCheck(t *testing.T) {
	svc := &authServiceMock{available: true}
	h := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodGet, "/auth/check?loginId=rao", nil)
	h.Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res models.AvailabilityResponse
	decodeData(t, w, &res)
	assert.True(t, res.Available)
	assert.Equal(t, [2]string{"", "rao"}, svc.checkArgs)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decodeData(t, w, &body)
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "admin", body["role"])
}
