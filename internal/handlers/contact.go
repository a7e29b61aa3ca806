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

// ContactServiceInterface defines the interface for the contact inbox
type ContactServiceInterface interface {
	Submit(ctx context.Context, title, email, body string) (*models.ContactMessage, error)
	List(ctx context.Context, limit, offset int) ([]*models.ContactMessage, error)
	MarkRead(ctx context.Context, id string) error
	Reply(ctx context.Context, messageID, responderID, body string) (*models.ContactReply, error)
}

// ContactHandler handles contact inbox HTTP requests
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// SubmitContactRequest represents the public contact form body
type SubmitContactRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email"`
	Body  string `json:"body" validate:"max=10000"`
}

// ReplyRequest represents the admin reply body
type ReplyRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

// Submit handles POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	msg, err := h.service.Submit(r.Context(), req.Title, req.Email, req.Body)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid message")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /contact. Admin only; the route guard enforces the role.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	msgs, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// MarkRead handles POST /contact/{id}/read
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")
	if messageID == "" {
		pkghttp.WriteBadRequest(w, "Message ID is required")
		return
	}

	if err := h.service.MarkRead(r.Context(), messageID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Message not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Marked as read"})
}

// Reply handles POST /contact/{id}/reply
func (h *ContactHandler) Reply(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	messageID := chi.URLParam(r, "id")
	if messageID == "" {
		pkghttp.WriteBadRequest(w, "Message ID is required")
		return
	}

	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	reply, err := h.service.Reply(r.Context(), messageID, claims.UserID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Message not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid reply")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, reply)
}
