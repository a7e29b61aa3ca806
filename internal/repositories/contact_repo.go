package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karjoohq/karjoo/internal/database"
	"github.com/karjoohq/karjoo/internal/models"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(db *database.DB) *ContactRepository {
	return &ContactRepository{pool: db.Pool}
}

func (r *ContactRepository) Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()

	query := `
		INSERT INTO contact_messages (id, title, email, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, email, body, is_read, is_replied, created_at
	`

	var created models.ContactMessage
	err := r.pool.QueryRow(ctx, query, msg.ID, msg.Title, msg.Email, msg.Body, msg.CreatedAt).Scan(
		&created.ID, &created.Title, &created.Email, &created.Body,
		&created.IsRead, &created.IsReplied, &created.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	query := `
		SELECT id, title, email, body, is_read, is_replied, created_at
		FROM contact_messages WHERE id = $1
	`

	var msg models.ContactMessage
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.Title, &msg.Email, &msg.Body,
		&msg.IsRead, &msg.IsReplied, &msg.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &msg, nil
}

func (r *ContactRepository) List(ctx context.Context, limit, offset int) ([]*models.ContactMessage, error) {
	query := `
		SELECT id, title, email, body, is_read, is_replied, created_at
		FROM contact_messages ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*models.ContactMessage, 0)
	for rows.Next() {
		var msg models.ContactMessage
		if err := rows.Scan(
			&msg.ID, &msg.Title, &msg.Email, &msg.Body,
			&msg.IsRead, &msg.IsReplied, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return msgs, nil
}

func (r *ContactRepository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE contact_messages SET is_read = TRUE WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Reply inserts a reply row and flips the replied flag on the message.
func (r *ContactRepository) Reply(ctx context.Context, messageID, responderID, body string) (*models.ContactReply, error) {
	query := `
		WITH flagged AS (
			UPDATE contact_messages SET is_replied = TRUE, is_read = TRUE WHERE id = $2
		)
		INSERT INTO contact_replies (id, message_id, responder_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, message_id, responder_id, body, created_at
	`

	var reply models.ContactReply
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), messageID, responderID, body).Scan(
		&reply.ID, &reply.MessageID, &reply.ResponderID, &reply.Body, &reply.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &reply, nil
}

func (r *ContactRepository) ListReplies(ctx context.Context, messageID string) ([]*models.ContactReply, error) {
	query := `
		SELECT id, message_id, responder_id, body, created_at
		FROM contact_replies WHERE message_id = $1 ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact replies: %w", err)
	}
	defer rows.Close()

	replies := make([]*models.ContactReply, 0)
	for rows.Next() {
		var reply models.ContactReply
		if err := rows.Scan(&reply.ID, &reply.MessageID, &reply.ResponderID, &reply.Body, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact reply: %w", err)
		}
		replies = append(replies, &reply)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return replies, nil
}
