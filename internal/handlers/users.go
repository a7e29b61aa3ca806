package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/services"
	pkghttp "github.com/karjoohq/karjoo/pkg/http"
)

// UserServiceInterface defines the interface for user queries
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, id string) (*services.UserResponse, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
}

// AdminServiceInterface defines the interface for block-list management
type AdminServiceInterface interface {
	BlockUser(ctx context.Context, userID, adminID, note string) (*models.UserBlock, error)
	UnblockUser(ctx context.Context, userID, adminID string) error
	ListBlocks(ctx context.Context) ([]*models.UserBlock, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service      UserServiceInterface
	adminService AdminServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, adminService AdminServiceInterface) *UserHandler {
	return &UserHandler{
		service:      service,
		adminService: adminService,
	}
}

// BlockUserRequest represents the request body for blocking a user
type BlockUserRequest struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users []*services.UserResponse `json:"users"`
	Total int                      `json:"total"`
}

// Me returns the authenticated user's own profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListUsers returns a page of users. Admin only; the route guard
// enforces the role.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, &ListUsersResponse{
		Users: users,
		Total: len(users),
	})
}

// BlockUser adds a user to the block list
func (h *UserHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req BlockUserRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	block, err := h.adminService.BlockUser(r.Context(), userID, claims.UserID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Cannot block an admin account")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "User is already blocked")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, block)
}

// UnblockUser removes a user from the block list
func (h *UserHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	if err := h.adminService.UnblockUser(r.Context(), userID, claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User is not blocked")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBlocked returns the current block list
func (h *UserHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.adminService.ListBlocks(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"blocks": blocks,
		"total":  len(blocks),
	})
}

// parseQueryInt parses an integer query parameter, falling back to a
// default on absence or garbage. Range clamping happens in the service.
func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
