package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	pkghttp "github.com/karjoohq/karjoo/pkg/http"
)

// ApplicationServiceInterface defines the interface for application logic
type ApplicationServiceInterface interface {
	Apply(ctx context.Context, jobID, seekerID, coverLetter string) (*models.Application, error)
	ListForUser(ctx context.Context, user *models.User) ([]*models.Application, error)
	SetStatus(ctx context.Context, appID, employerID string, status models.ApplicationStatus) (*models.Application, error)
}

// ApplicationHandler handles job application HTTP requests
type ApplicationHandler struct {
	service  ApplicationServiceInterface
	userRepo auth.UserRepository
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(service ApplicationServiceInterface, userRepo auth.UserRepository) *ApplicationHandler {
	return &ApplicationHandler{service: service, userRepo: userRepo}
}

// ApplyRequest represents the request body for submitting an application
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" validate:"max=10000"`
}

// SetStatusRequest represents the request body for deciding an application
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// ListApplicationsResponse represents the caller's applications
type ListApplicationsResponse struct {
	Applications []*models.Application `json:"applications"`
	Total        int                   `json:"total"`
}

// Apply handles POST /jobs/{id}/apply
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		pkghttp.WriteBadRequest(w, "Job ID is required")
		return
	}

	var req ApplyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	app, err := h.service.Apply(r.Context(), jobID, claims.UserID, req.CoverLetter)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Job not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "You have already applied to this job")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// List handles GET /applications. Seekers see their own applications,
// employers see applications to their postings.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	// The view depends on the current role, not the token's
	user, err := h.userRepo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "unauthorized")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	apps, err := h.service.ListForUser(r.Context(), user)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, &ListApplicationsResponse{Applications: apps, Total: len(apps)})
}

// SetStatus handles POST /applications/{id}/status
func (h *ApplicationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	appID := chi.URLParam(r, "id")
	if appID == "" {
		pkghttp.WriteBadRequest(w, "Application ID is required")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	app, err := h.service.SetStatus(r.Context(), appID, claims.UserID, models.ApplicationStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Application not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "You do not own this posting")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Application has already been decided")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, app)
}
