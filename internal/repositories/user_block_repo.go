package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karjoohq/karjoo/internal/database"
	"github.com/karjoohq/karjoo/internal/models"
)

type UserBlockRepository struct {
	pool *pgxpool.Pool
}

func NewUserBlockRepository(db *database.DB) *UserBlockRepository {
	return &UserBlockRepository{pool: db.Pool}
}

// IsBlocked reports whether a block record exists for the user. The
// record itself is the source of truth; there is no cached flag.
func (r *UserBlockRepository) IsBlocked(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_blocks WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// Block creates a block record. Returns models.ErrConflict when the
// user is already blocked (unique user_id).
func (r *UserBlockRepository) Block(ctx context.Context, userID, adminID, note string) (*models.UserBlock, error) {
	query := `
		INSERT INTO user_blocks (id, user_id, admin_id, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, admin_id, note, created_at
	`

	var block models.UserBlock
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), userID, adminID, note).Scan(
		&block.ID, &block.UserID, &block.AdminID, &block.Note, &block.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &block, nil
}

// Unblock removes the block record. Returns models.ErrNotFound when the
// user was not blocked.
func (r *UserBlockRepository) Unblock(ctx context.Context, userID string) error {
	query := `DELETE FROM user_blocks WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserBlockRepository) List(ctx context.Context) ([]*models.UserBlock, error) {
	query := `
		SELECT id, user_id, admin_id, note, created_at
		FROM user_blocks ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query user blocks: %w", err)
	}
	defer rows.Close()

	blocks := make([]*models.UserBlock, 0)
	for rows.Next() {
		var block models.UserBlock
		if err := rows.Scan(&block.ID, &block.UserID, &block.AdminID, &block.Note, &block.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user block: %w", err)
		}
		blocks = append(blocks, &block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return blocks, nil
}
