package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/services"
)

type mockAuthService struct {
	LoginFunc   func(ctx context.Context, email, password string) (*models.CredentialPair, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (string, error)
	LogoutCalls []string
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.CredentialPair, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) {
	m.LogoutCalls = append(m.LogoutCalls, refreshToken)
}

type mockOTPService struct {
	RequestLoginCodeFunc         func(ctx context.Context, email string) error
	VerifyLoginCodeFunc          func(ctx context.Context, email, code string) (*models.CredentialPair, error)
	RequestRegistrationCodeFunc  func(ctx context.Context, email string) error
	RegisterFunc                 func(ctx context.Context, req services.RegisterRequest) (*models.CredentialPair, error)
	RequestPasswordResetCodeFunc func(ctx context.Context, email string) error
	ResetPasswordFunc            func(ctx context.Context, email, code, newPassword string) error
	RequestConfirmationCodeFunc  func(ctx context.Context, userID string) error
	ConfirmEmailFunc             func(ctx context.Context, userID, code string) error
}

func (m *mockOTPService) RequestLoginCode(ctx context.Context, email string) error {
	return m.RequestLoginCodeFunc(ctx, email)
}

func (m *mockOTPService) VerifyLoginCode(ctx context.Context, email, code string) (*models.CredentialPair, error) {
	return m.VerifyLoginCodeFunc(ctx, email, code)
}

func (m *mockOTPService) RequestRegistrationCode(ctx context.Context, email string) error {
	return m.RequestRegistrationCodeFunc(ctx, email)
}

func (m *mockOTPService) Register(ctx context.Context, req services.RegisterRequest) (*models.CredentialPair, error) {
	return m.RegisterFunc(ctx, req)
}

func (m *mockOTPService) RequestPasswordResetCode(ctx context.Context, email string) error {
	return m.RequestPasswordResetCodeFunc(ctx, email)
}

func (m *mockOTPService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.ResetPasswordFunc(ctx, email, code, newPassword)
}

func (m *mockOTPService) RequestConfirmationCode(ctx context.Context, userID string) error {
	return m.RequestConfirmationCodeFunc(ctx, userID)
}

func (m *mockOTPService) ConfirmEmail(ctx context.Context, userID, code string) error {
	return m.ConfirmEmailFunc(ctx, userID, code)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func testPair(role models.Role) *models.CredentialPair {
	return &models.CredentialPair{
		Access:   "access-token",
		Refresh:  "refresh-token",
		UserRole: role,
	}
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*models.CredentialPair, error) {
			return testPair(models.RoleJobSeeker), nil
		},
	}
	h := NewAuthHandler(svc, &mockOTPService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "a@example.com", Password: "pw"})

	require.Equal(t, http.StatusOK, rec.Code)

	var pair models.CredentialPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.Equal(t, "access-token", pair.Access)
	assert.Equal(t, models.RoleJobSeeker, pair.UserRole)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*models.CredentialPair, error) {
			return nil, models.ErrUnauthorized
		},
	}
	h := NewAuthHandler(svc, &mockOTPService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "a@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_BlockedUserGets403(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*models.CredentialPair, error) {
			return nil, models.ErrUserBlocked
		},
	}
	h := NewAuthHandler(svc, &mockOTPService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "a@example.com", Password: "pw"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "user in block list")
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockOTPService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "not-an-email", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestLoginCodeHandler(t *testing.T) {
	otp := &mockOTPService{
		RequestLoginCodeFunc: func(ctx context.Context, email string) error {
			if email == "known@example.com" {
				return nil
			}
			return models.ErrNotFound
		},
	}
	h := NewAuthHandler(&mockAuthService{}, otp)

	req := httptest.NewRequest(http.MethodGet, "/auth/otp?email=known@example.com", nil)
	rec := httptest.NewRecorder()
	h.RequestLoginCode(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/otp?email=ghost@example.com", nil)
	rec = httptest.NewRecorder()
	h.RequestLoginCode(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/otp", nil)
	rec = httptest.NewRecorder()
	h.RequestLoginCode(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestLoginCodeHandler_AlreadySent(t *testing.T) {
	otp := &mockOTPService{
		RequestLoginCodeFunc: func(ctx context.Context, email string) error {
			return models.ErrCodeAlreadySent
		},
	}
	h := NewAuthHandler(&mockAuthService{}, otp)

	req := httptest.NewRequest(http.MethodGet, "/auth/otp?email=a@example.com", nil)
	rec := httptest.NewRecorder()
	h.RequestLoginCode(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been sent")
}

func TestVerifyLoginCodeHandler_WrongCode(t *testing.T) {
	otp := &mockOTPService{
		VerifyLoginCodeFunc: func(ctx context.Context, email, code string) (*models.CredentialPair, error) {
			return nil, models.ErrCodeWrong
		},
	}
	h := NewAuthHandler(&mockAuthService{}, otp)

	rec := postJSON(t, h.VerifyLoginCode, "/auth/otp", VerifyCodeRequest{Email: "a@example.com", Code: "00000"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong or has expired")
}

func TestRegisterHandler_Success(t *testing.T) {
	var got services.RegisterRequest
	otp := &mockOTPService{
		RegisterFunc: func(ctx context.Context, req services.RegisterRequest) (*models.CredentialPair, error) {
			got = req
			return testPair(models.RoleEmployer), nil
		},
	}
	h := NewAuthHandler(&mockAuthService{}, otp)

	rec := postJSON(t, h.Register, "/auth/register", RegisterBody{
		Email:     "new@example.com",
		FirstName: "Nika",
		LastName:  "Rad",
		Role:      "employer",
		Code:      "123456",
		Password:  "Sup3r$trongPass",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.RoleEmployer, got.Role)
	assert.Equal(t, "123456", got.Code)
}

func TestRegisterHandler_AdminRoleRejected(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockOTPService{})

	// The validator rejects the role before the service is reached
	rec := postJSON(t, h.Register, "/auth/register", RegisterBody{
		Email:     "new@example.com",
		FirstName: "Nika",
		LastName:  "Rad",
		Role:      "admin",
		Code:      "123456",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandler_ExistingUser(t *testing.T) {
	otp := &mockOTPService{
		RegisterFunc: func(ctx context.Context, req services.RegisterRequest) (*models.CredentialPair, error) {
			return nil, models.ErrUserExists
		},
	}
	h := NewAuthHandler(&mockAuthService{}, otp)

	rec := postJSON(t, h.Register, "/auth/register", RegisterBody{
		Email:     "taken@example.com",
		FirstName: "Nika",
		LastName:  "Rad",
		Role:      "job_seeker",
		Code:      "123456",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshHandler(t *testing.T) {
	svc := &mockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			if refreshToken == "good" {
				return "fresh-access", nil
			}
			return "", models.ErrUnauthorized
		},
	}
	h := NewAuthHandler(svc, &mockOTPService{})

	rec := postJSON(t, h.RefreshToken, "/auth/refresh", RefreshTokenRequest{Refresh: "good"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fresh-access", resp.Access)

	rec = postJSON(t, h.RefreshToken, "/auth/refresh", RefreshTokenRequest{Refresh: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler_AlwaysSucceeds(t *testing.T) {
	svc := &mockAuthService{}
	h := NewAuthHandler(svc, &mockOTPService{})

	rec := postJSON(t, h.Logout, "/auth/logout", RefreshTokenRequest{Refresh: "whatever"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out")
	assert.Equal(t, []string{"whatever"}, svc.LogoutCalls)

	// Even a garbage body logs out with the same response
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader([]byte("{")))
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out")
}
