package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/karjoohq/karjoo/internal/models"
)

// DashboardService aggregates role-dependent counts for the dashboard
// endpoint.
type DashboardService struct {
	userRepo UserRepository
	jobRepo  JobRepository
	appRepo  ApplicationRepository
	logger   *slog.Logger
}

func NewDashboardService(userRepo UserRepository, jobRepo JobRepository, appRepo ApplicationRepository, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		userRepo: userRepo,
		jobRepo:  jobRepo,
		appRepo:  appRepo,
		logger:   logger,
	}
}

// Counts returns the numbers relevant to the caller's role. Admins get
// the site-wide view regardless of their role column.
func (s *DashboardService) Counts(ctx context.Context, userID string) (*models.DashboardCounts, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for dashboard", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	switch {
	case user.IsAdmin || user.Role == models.RoleAdmin:
		return s.adminCounts(ctx)
	case user.Role == models.RoleEmployer:
		return s.employerCounts(ctx, user.ID)
	default:
		return s.seekerCounts(ctx, user.ID)
	}
}

func (s *DashboardService) adminCounts(ctx context.Context) (*models.DashboardCounts, error) {
	pending, err := s.jobRepo.CountPending(ctx)
	if err != nil {
		return nil, s.countsError(err)
	}
	active, err := s.jobRepo.CountActive(ctx)
	if err != nil {
		return nil, s.countsError(err)
	}
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, s.countsError(err)
	}
	apps, err := s.appRepo.Count(ctx)
	if err != nil {
		return nil, s.countsError(err)
	}

	return &models.DashboardCounts{
		PendingJobs:  &pending,
		ActiveJobs:   &active,
		Users:        &users,
		Applications: &apps,
	}, nil
}

func (s *DashboardService) employerCounts(ctx context.Context, employerID string) (*models.DashboardCounts, error) {
	jobs, err := s.jobRepo.CountByEmployer(ctx, employerID)
	if err != nil {
		return nil, s.countsError(err)
	}
	received, err := s.appRepo.CountByEmployer(ctx, employerID, "")
	if err != nil {
		return nil, s.countsError(err)
	}
	accepted, err := s.appRepo.CountByEmployer(ctx, employerID, models.ApplicationAccepted)
	if err != nil {
		return nil, s.countsError(err)
	}

	return &models.DashboardCounts{
		Jobs:                 &jobs,
		ReceivedApplications: &received,
		AcceptedApplications: &accepted,
	}, nil
}

func (s *DashboardService) seekerCounts(ctx context.Context, seekerID string) (*models.DashboardCounts, error) {
	applied, err := s.appRepo.CountBySeeker(ctx, seekerID, "")
	if err != nil {
		return nil, s.countsError(err)
	}
	accepted, err := s.appRepo.CountBySeeker(ctx, seekerID, models.ApplicationAccepted)
	if err != nil {
		return nil, s.countsError(err)
	}
	rejected, err := s.appRepo.CountBySeeker(ctx, seekerID, models.ApplicationRejected)
	if err != nil {
		return nil, s.countsError(err)
	}

	return &models.DashboardCounts{
		Applied:  &applied,
		Accepted: &accepted,
		Rejected: &rejected,
	}, nil
}

func (s *DashboardService) countsError(err error) error {
	s.logger.Error("failed to aggregate dashboard counts", slog.Any("error", err))
	return models.ErrInternalServer
}
