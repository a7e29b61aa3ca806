package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/karjoohq/karjoo/internal/models"
	pkgauth "github.com/karjoohq/karjoo/pkg/auth"
	pkglogger "github.com/karjoohq/karjoo/pkg/logger"
)

// AdminService handles block-list management and admin bootstrapping
type AdminService struct {
	repo        UserRepository
	blockRepo   UserBlockRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAdminService(repo UserRepository, blockRepo UserBlockRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	return &AdminService{
		repo:        repo,
		blockRepo:   blockRepo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// BlockUser adds a user to the block list. The block takes effect on
// the target's next request; their tokens are not touched.
func (s *AdminService) BlockUser(ctx context.Context, userID, adminID, note string) (*models.UserBlock, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for block", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsAdmin {
		s.logger.Warn("refusing to block admin account", slog.String("user_id", userID))
		return nil, models.ErrForbidden
	}

	block, err := s.blockRepo.Block(ctx, userID, adminID, note)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to block user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user blocked",
		slog.String("user_id", userID),
		slog.String("admin_id", adminID))
	s.auditLogger.LogAccountAction("user_blocked", userID, "", map[string]string{
		"admin_id": adminID,
	})

	return block, nil
}

// UnblockUser removes a user from the block list.
func (s *AdminService) UnblockUser(ctx context.Context, userID, adminID string) error {
	if err := s.blockRepo.Unblock(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to unblock user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user unblocked",
		slog.String("user_id", userID),
		slog.String("admin_id", adminID))
	s.auditLogger.LogAccountAction("user_unblocked", userID, "", map[string]string{
		"admin_id": adminID,
	})

	return nil
}

// ListBlocks returns all current block records.
func (s *AdminService) ListBlocks(ctx context.Context) ([]*models.UserBlock, error) {
	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list blocks", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return blocks, nil
}

// EnsureAdmin seeds the first admin account from configuration. A
// no-op when the email is empty or the account already exists.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		IsAdmin:      true,
		IsVerified:   true,
	})
	if err != nil {
		return err
	}

	s.logger.Info("admin account seeded", slog.String("user_id", admin.ID))
	return nil
}
