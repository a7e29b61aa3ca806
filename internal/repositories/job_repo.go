package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karjoohq/karjoo/internal/database"
	"github.com/karjoohq/karjoo/internal/models"
)

const jobColumns = `id, employer_id, title, description, location, employment_type, salary_min, salary_max, is_approved, is_closed, created_at, updated_at`

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(db *database.DB) *JobRepository {
	return &JobRepository{pool: db.Pool}
}

func scanJobRow(scanner rowScanner) (*models.Job, error) {
	var job models.Job
	err := scanner.Scan(
		&job.ID, &job.EmployerID, &job.Title, &job.Description, &job.Location,
		&job.EmploymentType, &job.SalaryMin, &job.SalaryMax,
		&job.IsApproved, &job.IsClosed, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &job, nil
}

func scanJobRows(rows pgx.Rows) ([]*models.Job, error) {
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return jobs, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	return scanJobRow(r.pool.QueryRow(ctx, query, id))
}

// ListOpen returns approved, not-yet-closed jobs for the public listing.
func (r *JobRepository) ListOpen(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE is_approved = TRUE AND is_closed = FALSE
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	return scanJobRows(rows)
}

func (r *JobRepository) ListByEmployer(ctx context.Context, employerID string) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE employer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	return scanJobRows(rows)
}

func (r *JobRepository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	job.ID = uuid.New().String()

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO jobs (id, employer_id, title, description, location, employment_type, salary_min, salary_max, is_approved, is_closed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + jobColumns

	return scanJobRow(r.pool.QueryRow(ctx, query,
		job.ID, job.EmployerID, job.Title, job.Description, job.Location,
		job.EmploymentType, job.SalaryMin, job.SalaryMax,
		job.IsApproved, job.IsClosed, job.CreatedAt, job.UpdatedAt,
	))
}

func (r *JobRepository) Update(ctx context.Context, id string, job *models.Job) (*models.Job, error) {
	job.UpdatedAt = time.Now()

	query := `
		UPDATE jobs SET title = $1, description = $2, location = $3, employment_type = $4, salary_min = $5, salary_max = $6, updated_at = $7
		WHERE id = $8
		RETURNING ` + jobColumns

	return scanJobRow(r.pool.QueryRow(ctx, query,
		job.Title, job.Description, job.Location, job.EmploymentType,
		job.SalaryMin, job.SalaryMax, job.UpdatedAt, id,
	))
}

func (r *JobRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	query := `UPDATE jobs SET is_approved = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, approved, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *JobRepository) SetClosed(ctx context.Context, id string, closed bool) error {
	query := `UPDATE jobs SET is_closed = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, closed, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountByEmployer counts all jobs posted by an employer.
func (r *JobRepository) CountByEmployer(ctx context.Context, employerID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE employer_id = $1`, employerID).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// CountPending counts jobs waiting for admin approval.
func (r *JobRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE is_approved = FALSE`).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// CountActive counts approved jobs still accepting applications.
func (r *JobRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE is_approved = TRUE AND is_closed = FALSE`).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
