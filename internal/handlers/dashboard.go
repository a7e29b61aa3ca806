package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	pkghttp "github.com/karjoohq/karjoo/pkg/http"
)

// DashboardServiceInterface defines the interface for dashboard counts
type DashboardServiceInterface interface {
	Counts(ctx context.Context, userID string) (*models.DashboardCounts, error)
}

// DashboardHandler handles the dashboard endpoint
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Counts handles GET /dashboard
func (h *DashboardHandler) Counts(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	counts, err := h.service.Counts(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "unauthorized")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
