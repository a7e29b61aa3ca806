package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/services"
	pkghttp "github.com/karjoohq/karjoo/pkg/http"
)

// AuthServiceInterface defines the interface for password auth and the
// token lifecycle
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*models.CredentialPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string)
}

// OTPServiceInterface defines the interface for the two-step code flows
type OTPServiceInterface interface {
	RequestLoginCode(ctx context.Context, email string) error
	VerifyLoginCode(ctx context.Context, email, code string) (*models.CredentialPair, error)
	RequestRegistrationCode(ctx context.Context, email string) error
	Register(ctx context.Context, req services.RegisterRequest) (*models.CredentialPair, error)
	RequestPasswordResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	RequestConfirmationCode(ctx context.Context, userID string) error
	ConfirmEmail(ctx context.Context, userID, code string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service    AuthServiceInterface
	otpService OTPServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, otpService OTPServiceInterface) *AuthHandler {
	return &AuthHandler{
		service:    service,
		otpService: otpService,
	}
}

// Request DTOs

// LoginRequest represents the request body for password login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyCodeRequest represents the request body for verifying a login code
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// RequestCodeBody represents the request body for requesting a code
type RequestCodeBody struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterBody represents the request body for registration
type RegisterBody struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Role      string `json:"role" validate:"required,oneof=job_seeker employer"`
	Code      string `json:"code" validate:"required"`
	Password  string `json:"password" validate:"omitempty,min=8"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ResetPasswordRequest represents the request body for confirming a
// password reset
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ConfirmEmailRequest represents the request body for confirming an
// email address
type ConfirmEmailRequest struct {
	Code string `json:"code" validate:"required"`
}

// AccessTokenResponse carries a freshly minted access token
type AccessTokenResponse struct {
	Access string `json:"access"`
}

// Login handles password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserBlocked):
			pkghttp.WriteForbidden(w, models.ErrUserBlocked.Error())
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountDisabled):
			// Generic message for credential and account-status failures
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// RequestLoginCode handles GET /auth/otp?email=
func (h *AuthHandler) RequestLoginCode(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		pkghttp.WriteBadRequest(w, "email query parameter is required")
		return
	}

	if err := h.otpService.RequestLoginCode(r.Context(), email); err != nil {
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// VerifyLoginCode handles POST /auth/otp
func (h *AuthHandler) VerifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.otpService.VerifyLoginCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// RequestRegistrationCode handles POST /auth/register/code
func (h *AuthHandler) RequestRegistrationCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeBody

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.otpService.RequestRegistrationCode(r.Context(), req.Email); err != nil {
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterBody

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.otpService.Register(r.Context(), services.RegisterRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
		Code:      req.Code,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) || strings.Contains(err.Error(), "password") {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pair)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	access, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication failed")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AccessTokenResponse{Access: access})
}

// Logout handles POST /auth/logout. Logout always succeeds from the
// client's point of view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.service.Logout(r.Context(), req.Refresh)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// RequestPasswordReset handles POST /auth/password-reset
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeBody

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.otpService.RequestPasswordResetCode(r.Context(), req.Email); err != nil {
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.otpService.ResetPassword(r.Context(), req.Email, req.Code, req.Password); err != nil {
		if strings.Contains(err.Error(), "password") {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// RequestEmailConfirmation handles GET /auth/confirm-email
func (h *AuthHandler) RequestEmailConfirmation(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.otpService.RequestConfirmationCode(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "Email is already confirmed")
			return
		}
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// ConfirmEmail handles POST /auth/confirm-email
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ConfirmEmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.otpService.ConfirmEmail(r.Context(), claims.UserID, req.Code); err != nil {
		writeCodeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Email confirmed"})
}

// writeCodeFlowError maps the shared code-flow errors to HTTP statuses
func writeCodeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrCodeAlreadySent):
		pkghttp.WriteConflict(w, models.ErrCodeAlreadySent.Error())
	case errors.Is(err, models.ErrCodeWrong):
		pkghttp.WriteConflict(w, models.ErrCodeWrong.Error())
	case errors.Is(err, models.ErrUserExists):
		pkghttp.WriteConflict(w, models.ErrUserExists.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Conflict")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrUserBlocked):
		pkghttp.WriteForbidden(w, models.ErrUserBlocked.Error())
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Bad request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
