package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/karjoohq/karjoo/internal/models"
)

// JobRepository defines the interface for job posting data access
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*models.Job, error)
	ListByEmployer(ctx context.Context, employerID string) ([]*models.Job, error)
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	Update(ctx context.Context, id string, job *models.Job) (*models.Job, error)
	SetApproved(ctx context.Context, id string, approved bool) error
	SetClosed(ctx context.Context, id string, closed bool) error
	CountByEmployer(ctx context.Context, employerID string) (int64, error)
	CountPending(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

// JobService handles job posting business logic
type JobService struct {
	repo   JobRepository
	logger *slog.Logger
}

func NewJobService(repo JobRepository, logger *slog.Logger) *JobService {
	return &JobService{repo: repo, logger: logger}
}

// JobInput carries the employer-editable fields of a posting
type JobInput struct {
	Title          string
	Description    string
	Location       string
	EmploymentType models.EmploymentType
	SalaryMin      *int64
	SalaryMax      *int64
}

func (in *JobInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return models.ErrBadRequest
	}
	if !models.ValidEmploymentType(in.EmploymentType) {
		return models.ErrBadRequest
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		return models.ErrBadRequest
	}
	return nil
}

// Create adds a new posting. New postings wait for admin approval
// before showing up in the public listing.
func (s *JobService) Create(ctx context.Context, employerID string, in JobInput) (*models.Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	job, err := s.repo.Create(ctx, &models.Job{
		EmployerID:     employerID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       in.Location,
		EmploymentType: in.EmploymentType,
		SalaryMin:      in.SalaryMin,
		SalaryMax:      in.SalaryMax,
	})
	if err != nil {
		s.logger.Error("failed to create job", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("job created", slog.String("job_id", job.ID), slog.String("employer_id", employerID))
	return job, nil
}

func (s *JobService) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get job", slog.String("job_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return job, nil
}

// ListOpen returns the public listing: approved, still-open postings.
func (s *JobService) ListOpen(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := s.repo.ListOpen(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list jobs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return jobs, nil
}

// Update edits a posting. Only the owning employer may edit.
func (s *JobService) Update(ctx context.Context, jobID, employerID string, in JobInput) (*models.Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, models.ErrForbidden
	}

	job.Title = strings.TrimSpace(in.Title)
	job.Description = in.Description
	job.Location = in.Location
	job.EmploymentType = in.EmploymentType
	job.SalaryMin = in.SalaryMin
	job.SalaryMax = in.SalaryMax

	updated, err := s.repo.Update(ctx, jobID, job)
	if err != nil {
		s.logger.Error("failed to update job", slog.String("job_id", jobID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// Approve publishes a posting to the public listing. Admin only; the
// route guard enforces the role.
func (s *JobService) Approve(ctx context.Context, jobID string) error {
	if err := s.repo.SetApproved(ctx, jobID, true); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to approve job", slog.String("job_id", jobID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("job approved", slog.String("job_id", jobID))
	return nil
}

// Close stops a posting from accepting applications. Only the owner.
func (s *JobService) Close(ctx context.Context, jobID, employerID string) error {
	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.EmployerID != employerID {
		return models.ErrForbidden
	}

	if err := s.repo.SetClosed(ctx, jobID, true); err != nil {
		s.logger.Error("failed to close job", slog.String("job_id", jobID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("job closed", slog.String("job_id", jobID))
	return nil
}

func (s *JobService) ListByEmployer(ctx context.Context, employerID string) ([]*models.Job, error) {
	jobs, err := s.repo.ListByEmployer(ctx, employerID)
	if err != nil {
		s.logger.Error("failed to list employer jobs", slog.String("employer_id", employerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return jobs, nil
}
