package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/karjoohq/karjoo/internal/database"
	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/repositories"
	"github.com/karjoohq/karjoo/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs the
// embedded migrations and returns a TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("karjoo"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := database.NewFromPool(pool, slog.New(slog.DiscardHandler))

	// The binary and the tests share the embedded migration source
	if err := dbWrapper.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"contact_replies",
		"contact_messages",
		"applications",
		"jobs",
		"revoked_tokens",
		"user_blocks",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from the
// database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.UserRepository,
	*repositories.UserBlockRepository,
	*repositories.TokenRevocationRepository,
	*repositories.JobRepository,
	*repositories.ApplicationRepository,
	*repositories.ContactRepository,
) {
	return repositories.NewUserRepository(db),
		repositories.NewUserBlockRepository(db),
		repositories.NewTokenRevocationRepository(db),
		repositories.NewJobRepository(db),
		repositories.NewApplicationRepository(db),
		repositories.NewContactRepository(db)
}

// SeedUser inserts a test user with a hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password string, role models.Role) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, password_hash, role, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, true, true, NOW(), NOW())
		RETURNING id, email, password_hash, role, is_active, is_admin, is_verified, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword, role).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsAdmin,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}

// SeedAdmin inserts a test admin account
func SeedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, password_hash, role, is_active, is_admin, is_verified, created_at, updated_at)
		VALUES ($1, $2, 'admin', true, true, true, NOW(), NOW())
		RETURNING id, email, password_hash, role, is_active, is_admin, is_verified, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsAdmin,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert admin: %w", err)
	}

	return &user, nil
}

// SeedJob inserts a job posting for an employer
func SeedJob(ctx context.Context, pool *pgxpool.Pool, employerID, title string, approved bool) (*models.Job, error) {
	query := `
		INSERT INTO jobs (employer_id, title, description, location, employment_type, is_approved, created_at, updated_at)
		VALUES ($1, $2, '', '', 'full_time', $3, NOW(), NOW())
		RETURNING id, employer_id, title, is_approved, is_closed, created_at, updated_at
	`

	var job models.Job
	err := pool.QueryRow(ctx, query, employerID, title, approved).Scan(
		&job.ID,
		&job.EmployerID,
		&job.Title,
		&job.IsApproved,
		&job.IsClosed,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	return &job, nil
}

// SeedBlock puts a user on the block list
func SeedBlock(ctx context.Context, pool *pgxpool.Pool, userID string) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO user_blocks (user_id, note, created_at) VALUES ($1, 'seeded', NOW())`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}
