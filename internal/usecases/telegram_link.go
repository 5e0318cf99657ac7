package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"

	"github.com/google/uuid"
)

// LinkCodeTTL is how long a Telegram link code stays redeemable.
const LinkCodeTTL = 10 * time.Minute

type linkCode struct {
	userID    int
	expiresAt time.Time
}

// TelegramLinker binds Telegram chats to accounts through single-use codes.
type TelegramLinker struct {
	users interfaces.UserRepository
	mu    sync.Mutex
	codes map[string]linkCode
	now   func() time.Time
}

func NewTelegramLinker(users interfaces.UserRepository) *TelegramLinker {
	return &TelegramLinker{
		users: users,
		codes: make(map[string]linkCode),
		now:   time.Now,
	}
}

// IssueCode returns a fresh code for userID. Earlier codes of the same user are revoked.
func (l *TelegramLinker) IssueCode(userID int) (string, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for code, lc := range l.codes {
		if lc.userID == userID || now.After(lc.expiresAt) {
			delete(l.codes, code)
		}
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	expires := now.Add(LinkCodeTTL)
	l.codes[code] = linkCode{userID: userID, expiresAt: expires}
	return code, expires
}

// Redeem consumes code and binds chatID to its owner.
func (l *TelegramLinker) Redeem(ctx context.Context, code string, chatID int64) (*entities.User, error) {
	code = strings.TrimSpace(code)

	l.mu.Lock()
	lc, ok := l.codes[code]
	if ok {
		delete(l.codes, code)
	}
	l.mu.Unlock()

	if !ok || l.now().After(lc.expiresAt) {
		return nil, ErrInvalidLinkCode
	}

	user, err := l.users.GetByID(ctx, lc.userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidLinkCode
	}
	if err := l.users.SetTelegramChatID(ctx, user.ID, &chatID); err != nil {
		return nil, fmt.Errorf("link telegram chat: %w", err)
	}
	user.TelegramChatID = &chatID
	return user, nil
}

// UserForChat resolves the active account linked to chatID, or nil.
func (l *TelegramLinker) UserForChat(ctx context.Context, chatID int64) (*entities.User, error) {
	user, err := l.users.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	return user, nil
}

func (l *TelegramLinker) Unlink(ctx context.Context, userID int) error {
	return l.users.SetTelegramChatID(ctx, userID, nil)
}
