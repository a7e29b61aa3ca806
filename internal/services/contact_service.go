package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/karjoohq/karjoo/internal/models"
)

// ContactRepository defines the interface for contact inbox data access
type ContactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	GetByID(ctx context.Context, id string) (*models.ContactMessage, error)
	List(ctx context.Context, limit, offset int) ([]*models.ContactMessage, error)
	MarkRead(ctx context.Context, id string) error
	Reply(ctx context.Context, messageID, responderID, body string) (*models.ContactReply, error)
	ListReplies(ctx context.Context, messageID string) ([]*models.ContactReply, error)
}

// ContactService handles the public contact inbox
type ContactService struct {
	repo     ContactRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewContactService(repo ContactRepository, notifier Notifier, logger *slog.Logger) *ContactService {
	return &ContactService{repo: repo, notifier: notifier, logger: logger}
}

// Submit records a message from the public contact form.
func (s *ContactService) Submit(ctx context.Context, title, email, body string) (*models.ContactMessage, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(email) == "" {
		return nil, models.ErrBadRequest
	}

	msg, err := s.repo.Create(ctx, &models.ContactMessage{
		Title: title,
		Email: strings.ToLower(strings.TrimSpace(email)),
		Body:  body,
	})
	if err != nil {
		s.logger.Error("failed to store contact message", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("contact message received", slog.String("message_id", msg.ID))
	return msg, nil
}

func (s *ContactService) List(ctx context.Context, limit, offset int) ([]*models.ContactMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	msgs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list contact messages", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return msgs, nil
}

func (s *ContactService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to mark message read", slog.String("message_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Reply stores an admin reply and emails it to the sender
// fire-and-forget.
func (s *ContactService) Reply(ctx context.Context, messageID, responderID, body string) (*models.ContactReply, error) {
	if strings.TrimSpace(body) == "" {
		return nil, models.ErrBadRequest
	}

	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get contact message", slog.String("message_id", messageID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	reply, err := s.repo.Reply(ctx, msg.ID, responderID, body)
	if err != nil {
		s.logger.Error("failed to store reply", slog.String("message_id", messageID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.notifier != nil {
		recipient := msg.Email
		subject := "Re: " + msg.Title
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.Notify(ctx, recipient, subject, body); err != nil {
				s.logger.Error("failed to email contact reply", slog.Any("error", err))
			}
		}()
	}

	s.logger.Info("contact message replied", slog.String("message_id", messageID))
	return reply, nil
}
