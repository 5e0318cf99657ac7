package repository

import (
	"context"
	"errors"

	"llamachat/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *entities.Message) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO messages (session_id, role, content, tokens_used, response_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, msg.SessionID, msg.Role, msg.Content, msg.TokensUsed, msg.ResponseTime).Scan(&msg.ID, &msg.CreatedAt)
}

// ListBySession returns the conversation in chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, role, content, created_at, tokens_used, response_time
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt, &m.TokensUsed, &m.ResponseTime); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) CountBySession(ctx context.Context, sessionID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages WHERE session_id = $1", sessionID).Scan(&count)
	return count, err
}

func (r *MessageRepository) LastBySession(ctx context.Context, sessionID int) (*entities.Message, error) {
	var m entities.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, role, content, created_at, tokens_used, response_time
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, sessionID).Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt, &m.TokensUsed, &m.ResponseTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}
