package usecases

import (
	"context"
	"fmt"
	"log"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
)

// SessionJanitor closes sessions that have been idle longer than session_timeout_hours.
type SessionJanitor struct {
	sessions interfaces.SessionRepository
	chat     *ChatService
	settings *SettingsService
	now      func() time.Time
}

func NewSessionJanitor(sessions interfaces.SessionRepository, chat *ChatService, settings *SettingsService) *SessionJanitor {
	return &SessionJanitor{sessions: sessions, chat: chat, settings: settings, now: time.Now}
}

// ExpireIdle deactivates idle active sessions and returns how many were closed.
// A timeout of zero or less disables expiry.
func (j *SessionJanitor) ExpireIdle(ctx context.Context) (int, error) {
	hours, err := j.settings.Int(ctx, entities.SettingSessionTimeoutHours, 24)
	if err != nil {
		return 0, err
	}
	if hours <= 0 {
		return 0, nil
	}

	cutoff := j.now().Add(-time.Duration(hours) * time.Hour)
	idle, err := j.sessions.ListIdle(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}

	closed := 0
	for i := range idle {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		if err := j.chat.CloseSession(ctx, &idle[i]); err != nil {
			log.Printf("[JANITOR] %v", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		log.Printf("[JANITOR] closed %d idle sessions (timeout %dh)", closed, hours)
	}
	return closed, nil
}

// Run is the scheduler entry point.
func (j *SessionJanitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := j.ExpireIdle(ctx); err != nil {
		log.Printf("[JANITOR] expire idle sessions: %v", err)
	}
}
