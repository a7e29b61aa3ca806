package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/karjoohq/karjoo/internal/models"
)

// ApplicationRepository defines the interface for application data access
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	ListBySeeker(ctx context.Context, seekerID string) ([]*models.Application, error)
	ListByEmployer(ctx context.Context, employerID string) ([]*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error)
	CountBySeeker(ctx context.Context, seekerID string, status models.ApplicationStatus) (int64, error)
	CountByEmployer(ctx context.Context, employerID string, status models.ApplicationStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ApplicationService handles job application business logic
type ApplicationService struct {
	repo    ApplicationRepository
	jobRepo JobRepository
	logger  *slog.Logger
}

func NewApplicationService(repo ApplicationRepository, jobRepo JobRepository, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{repo: repo, jobRepo: jobRepo, logger: logger}
}

// Apply submits an application to an open job. A seeker can apply to a
// given job once; a duplicate returns models.ErrConflict.
func (s *ApplicationService) Apply(ctx context.Context, jobID, seekerID, coverLetter string) (*models.Application, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get job for application", slog.String("job_id", jobID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Unapproved postings are invisible to seekers
	if !job.IsApproved || job.IsClosed {
		return nil, models.ErrNotFound
	}

	app, err := s.repo.Create(ctx, &models.Application{
		JobID:       jobID,
		SeekerID:    seekerID,
		CoverLetter: coverLetter,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create application", slog.String("job_id", jobID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("application submitted",
		slog.String("application_id", app.ID),
		slog.String("job_id", jobID))

	return app, nil
}

// ListForUser returns the caller's view: a seeker sees their own
// applications, an employer sees applications to their postings.
func (s *ApplicationService) ListForUser(ctx context.Context, user *models.User) ([]*models.Application, error) {
	var (
		apps []*models.Application
		err  error
	)

	switch user.Role {
	case models.RoleEmployer:
		apps, err = s.repo.ListByEmployer(ctx, user.ID)
	default:
		apps, err = s.repo.ListBySeeker(ctx, user.ID)
	}
	if err != nil {
		s.logger.Error("failed to list applications", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return apps, nil
}

// SetStatus accepts or rejects a submitted application. Only the
// employer who owns the job may decide, and decided applications are
// final.
func (s *ApplicationService) SetStatus(ctx context.Context, appID, employerID string, status models.ApplicationStatus) (*models.Application, error) {
	if status != models.ApplicationAccepted && status != models.ApplicationRejected {
		return nil, models.ErrBadRequest
	}

	app, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get application", slog.String("application_id", appID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	job, err := s.jobRepo.GetByID(ctx, app.JobID)
	if err != nil {
		s.logger.Error("failed to get job for application", slog.String("job_id", app.JobID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if job.EmployerID != employerID {
		return nil, models.ErrForbidden
	}

	if app.Status != models.ApplicationSubmitted {
		return nil, models.ErrConflict
	}

	updated, err := s.repo.UpdateStatus(ctx, appID, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// lost a race with another decision
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update application status", slog.String("application_id", appID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("application decided",
		slog.String("application_id", appID),
		slog.String("status", string(status)))

	return updated, nil
}
