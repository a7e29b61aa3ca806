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

const applicationColumns = `id, job_id, seeker_id, cover_letter, status, created_at, updated_at`

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(db *database.DB) *ApplicationRepository {
	return &ApplicationRepository{pool: db.Pool}
}

func scanApplicationRow(scanner rowScanner) (*models.Application, error) {
	var app models.Application
	err := scanner.Scan(
		&app.ID, &app.JobID, &app.SeekerID, &app.CoverLetter,
		&app.Status, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &app, nil
}

func scanApplicationRows(rows pgx.Rows) ([]*models.Application, error) {
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplicationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return apps, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	return scanApplicationRow(r.pool.QueryRow(ctx, query, id))
}

// Create inserts an application. The (job_id, seeker_id) unique
// constraint maps a duplicate apply to models.ErrConflict.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	app.ID = uuid.New().String()

	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	if app.Status == "" {
		app.Status = models.ApplicationSubmitted
	}

	query := `
		INSERT INTO applications (id, job_id, seeker_id, cover_letter, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + applicationColumns

	return scanApplicationRow(r.pool.QueryRow(ctx, query,
		app.ID, app.JobID, app.SeekerID, app.CoverLetter, app.Status, app.CreatedAt, app.UpdatedAt,
	))
}

func (r *ApplicationRepository) ListBySeeker(ctx context.Context, seekerID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE seeker_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, seekerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	return scanApplicationRows(rows)
}

// ListByEmployer returns applications submitted to any of the
// employer's jobs.
func (r *ApplicationRepository) ListByEmployer(ctx context.Context, employerID string) ([]*models.Application, error) {
	query := `
		SELECT a.id, a.job_id, a.seeker_id, a.cover_letter, a.status, a.created_at, a.updated_at
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.employer_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	return scanApplicationRows(rows)
}

// UpdateStatus moves an application out of submitted. The WHERE clause
// refuses transitions out of a terminal state.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	query := `
		UPDATE applications SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'submitted'
		RETURNING ` + applicationColumns

	app, err := scanApplicationRow(r.pool.QueryRow(ctx, query, status, id))
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (r *ApplicationRepository) CountBySeeker(ctx context.Context, seekerID string, status models.ApplicationStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM applications WHERE seeker_id = $1`
	args := []any{seekerID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *ApplicationRepository) CountByEmployer(ctx context.Context, employerID string, status models.ApplicationStatus) (int64, error) {
	query := `
		SELECT COUNT(*) FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.employer_id = $1
	`
	args := []any{employerID}
	if status != "" {
		query += ` AND a.status = $2`
		args = append(args, status)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *ApplicationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
