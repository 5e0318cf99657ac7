package repository

import (
	"context"
	"errors"
	"time"

	"llamachat/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, user_id, title, model_used, created_at, updated_at, is_active`

type ChatSessionRepository struct {
	db *pgxpool.Pool
}

func NewChatSessionRepository(db *pgxpool.Pool) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func scanSession(row pgx.Row) (*entities.ChatSession, error) {
	var s entities.ChatSession
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.ModelUsed, &s.CreatedAt, &s.UpdatedAt, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ChatSessionRepository) querySessions(ctx context.Context, sql string, args ...any) ([]entities.ChatSession, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []entities.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *entities.ChatSession) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chat_sessions (user_id, title, model_used, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at, updated_at, is_active
	`, session.UserID, session.Title, session.ModelUsed).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt, &session.IsActive)
}

// GetForUser returns nil when the session does not exist or belongs to someone else.
func (r *ChatSessionRepository) GetForUser(ctx context.Context, id, userID int) (*entities.ChatSession, error) {
	return scanSession(r.db.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM chat_sessions WHERE id = $1 AND user_id = $2", id, userID))
}

// LatestActive returns the most recently created active session of the user.
func (r *ChatSessionRepository) LatestActive(ctx context.Context, userID int) (*entities.ChatSession, error) {
	return scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID))
}

// ListByUser orders by last update, newest first. limit <= 0 means no limit.
func (r *ChatSessionRepository) ListByUser(ctx context.Context, userID, limit int) ([]entities.ChatSession, error) {
	if limit <= 0 {
		return r.querySessions(ctx, `
			SELECT `+sessionColumns+` FROM chat_sessions
			WHERE user_id = $1
			ORDER BY updated_at DESC, id DESC
		`, userID)
	}
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
}

func (r *ChatSessionRepository) ListActive(ctx context.Context, userID int) ([]entities.ChatSession, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC, id DESC
	`, userID)
}

// ListIdle returns active sessions of any user not updated since before.
func (r *ChatSessionRepository) ListIdle(ctx context.Context, before time.Time) ([]entities.ChatSession, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE is_active AND updated_at < $1
		ORDER BY updated_at ASC
	`, before)
}

func (r *ChatSessionRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1", userID).Scan(&count)
	return count, err
}

func (r *ChatSessionRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM chat_sessions").Scan(&count)
	return count, err
}

func (r *ChatSessionRepository) UpdateTitle(ctx context.Context, id int, title string) error {
	_, err := r.db.Exec(ctx, "UPDATE chat_sessions SET title = $1, updated_at = NOW() WHERE id = $2", title, id)
	return err
}

func (r *ChatSessionRepository) Touch(ctx context.Context, id int, at time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE chat_sessions SET updated_at = $1 WHERE id = $2", at, id)
	return err
}

func (r *ChatSessionRepository) Deactivate(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, "UPDATE chat_sessions SET is_active = FALSE WHERE id = $1", id)
	return err
}

// Delete removes the session; messages go with it via ON DELETE CASCADE.
func (r *ChatSessionRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1", id)
	return err
}
