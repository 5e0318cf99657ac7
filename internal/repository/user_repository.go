package repository

import (
	"context"
	"errors"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique-constraint violation.
const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, name, role, avatar_url, bio, is_active, created_at, last_login, telegram_chat_id`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &role,
		&u.AvatarURL, &u.Bio, &u.IsActive, &u.CreatedAt, &u.LastLogin, &u.TelegramChatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	u.Role = entities.Role(role)
	return &u, nil
}

// mapUserConflict turns a duplicate username or email into the matching port error.
func mapUserConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return interfaces.ErrUsernameTaken
	case "users_email_key":
		return interfaces.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.Role == "" {
		user.Role = entities.RoleBasic
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, name, role, avatar_url, bio, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, user.Username, user.Email, user.PasswordHash, user.Name, string(user.Role),
		user.AvatarURL, user.Bio, user.IsActive).Scan(&user.ID, &user.CreatedAt)
	return mapUserConflict(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (r *UserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE telegram_chat_id = $1", chatID))
}

// GetAllUsers returns every account, newest first.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update writes the editable profile and admin fields.
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, name = $3, role = $4, avatar_url = $5, bio = $6, is_active = $7
		WHERE id = $8
	`, user.Email, user.PasswordHash, user.Name, string(user.Role), user.AvatarURL, user.Bio, user.IsActive, user.ID)
	return mapUserConflict(err)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	return err
}

// SetTelegramChatID binds (or with nil, unbinds) a Telegram chat to the account.
// A chat can belong to only one account, so any previous owner is unbound first.
func (r *UserRepository) SetTelegramChatID(ctx context.Context, id int, chatID *int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if chatID != nil {
		if _, err := tx.Exec(ctx, "UPDATE users SET telegram_chat_id = NULL WHERE telegram_chat_id = $1 AND id <> $2", *chatID, id); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, "UPDATE users SET telegram_chat_id = $1 WHERE id = $2", chatID, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) Count(ctx context.Context) (total, active int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM users
	`).Scan(&total, &active)
	return total, active, err
}
