package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/services"
	pkghttp "github.com/karjoohq/karjoo/pkg/http"
)

// JobServiceInterface defines the interface for job posting logic
type JobServiceInterface interface {
	Create(ctx context.Context, employerID string, in services.JobInput) (*models.Job, error)
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*models.Job, error)
	Update(ctx context.Context, jobID, employerID string, in services.JobInput) (*models.Job, error)
	Approve(ctx context.Context, jobID string) error
	Close(ctx context.Context, jobID, employerID string) error
	ListByEmployer(ctx context.Context, employerID string) ([]*models.Job, error)
}

// JobHandler handles job posting HTTP requests
type JobHandler struct {
	service JobServiceInterface
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(service JobServiceInterface) *JobHandler {
	return &JobHandler{service: service}
}

// JobRequest represents the request body for creating or updating a posting
type JobRequest struct {
	Title          string `json:"title" validate:"required,min=1,max=200"`
	Description    string `json:"description" validate:"max=10000"`
	Location       string `json:"location" validate:"max=200"`
	EmploymentType string `json:"employment_type" validate:"required,oneof=full_time part_time remote internship"`
	SalaryMin      *int64 `json:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax      *int64 `json:"salary_max" validate:"omitempty,gte=0"`
}

func (req *JobRequest) toInput() services.JobInput {
	return services.JobInput{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		EmploymentType: models.EmploymentType(req.EmploymentType),
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
	}
}

// ListJobsResponse represents a page of postings
type ListJobsResponse struct {
	Jobs  []*models.Job `json:"jobs"`
	Total int           `json:"total"`
}

// List returns the public listing of approved, open postings
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	jobs, err := h.service.ListOpen(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, &ListJobsResponse{Jobs: jobs, Total: len(jobs)})
}

// Get returns a single posting
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		pkghttp.WriteBadRequest(w, "Job ID is required")
		return
	}

	job, err := h.service.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Job not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// Create adds a posting for the authenticated employer
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	job, err := h.service.Create(r.Context(), claims.UserID, req.toInput())
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid job posting")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// Update edits a posting owned by the authenticated employer
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	job, err := h.service.Update(r.Context(), jobID, claims.UserID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Job not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "You do not own this posting")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid job posting")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// Approve publishes a posting. Admin only; the route guard enforces
// the role.
func (h *JobHandler) Approve(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		pkghttp.WriteBadRequest(w, "Job ID is required")
		return
	}

	if err := h.service.Approve(r.Context(), jobID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Job not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Job approved"})
}

// Close stops a posting from accepting applications
func (h *JobHandler) Close(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Close(r.Context(), jobID, claims.UserID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Job not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "You do not own this posting")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Job closed"})
}

// Mine lists the authenticated employer's own postings, approved or not
func (h *JobHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	jobs, err := h.service.ListByEmployer(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, &ListJobsResponse{Jobs: jobs, Total: len(jobs)})
}
