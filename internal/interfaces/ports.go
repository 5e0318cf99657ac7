package interfaces

import (
	"context"
	"errors"
	"time"

	"llamachat/internal/entities"
)

// Unique-constraint violations reported by UserRepository.Create and Update.
var (
	ErrUsernameTaken = errors.New("Username already exists")
	ErrEmailTaken    = errors.New("Email already registered")
)

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*entities.User, error)
	GetAllUsers(ctx context.Context) ([]entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
	SetTelegramChatID(ctx context.Context, id int, chatID *int64) error
	Count(ctx context.Context) (total, active int, err error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *entities.ChatSession) error
	GetForUser(ctx context.Context, id, userID int) (*entities.ChatSession, error)
	LatestActive(ctx context.Context, userID int) (*entities.ChatSession, error)
	ListByUser(ctx context.Context, userID, limit int) ([]entities.ChatSession, error)
	ListActive(ctx context.Context, userID int) ([]entities.ChatSession, error)
	ListIdle(ctx context.Context, before time.Time) ([]entities.ChatSession, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	CountAll(ctx context.Context) (int, error)
	UpdateTitle(ctx context.Context, id int, title string) error
	Touch(ctx context.Context, id int, at time.Time) error
	Deactivate(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *entities.Message) error
	ListBySession(ctx context.Context, sessionID int) ([]entities.Message, error)
	CountBySession(ctx context.Context, sessionID int) (int, error)
	LastBySession(ctx context.Context, sessionID int) (*entities.Message, error)
	CountAll(ctx context.Context) (int, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, key string) (*entities.SystemSetting, error)
	GetAll(ctx context.Context) ([]entities.SystemSetting, error)
	Set(ctx context.Context, key, value string) error
	EnsureDefault(ctx context.Context, setting entities.SystemSetting) error
}

type UsageRecorder interface {
	IncrementSent(ctx context.Context, userID int) error
	IncrementReceived(ctx context.Context, userID int) error
	GetTodayUsage(ctx context.Context, userID int) (sent, received int, err error)
	GetMonthUsage(ctx context.Context, userID int) (sent, received int, err error)
	GetUsageHistory(ctx context.Context, userID, days int) ([]entities.DailyUsage, error)
}

// Generator is the model-server gateway.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (*entities.Generation, error)
	ListModels(ctx context.Context) []entities.ModelInfo
}

type SessionArchiver interface {
	Archive(ctx context.Context, transcript entities.SessionTranscript) error
}
