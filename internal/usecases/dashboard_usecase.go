package usecases

import (
	"context"
	"fmt"
	"strings"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"

	"golang.org/x/crypto/bcrypt"
)

// maxSettingValueLength bounds admin-submitted setting values.
const maxSettingValueLength = 500

type DashboardUsecase struct {
	userRepo    interfaces.UserRepository
	sessionRepo interfaces.SessionRepository
	messageRepo interfaces.MessageRepository
	settings    *SettingsService
}

func NewDashboardUsecase(users interfaces.UserRepository, sessions interfaces.SessionRepository, messages interfaces.MessageRepository, settings *SettingsService) *DashboardUsecase {
	return &DashboardUsecase{
		userRepo:    users,
		sessionRepo: sessions,
		messageRepo: messages,
		settings:    settings,
	}
}

type DashboardStats struct {
	TotalUsers    int `json:"total_users"`
	TotalSessions int `json:"total_sessions"`
	TotalMessages int `json:"total_messages"`
	ActiveUsers   int `json:"active_users"`
}

func (u *DashboardUsecase) Stats(ctx context.Context) (*DashboardStats, error) {
	total, active, err := u.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	sessions, err := u.sessionRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	messages, err := u.messageRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	return &DashboardStats{
		TotalUsers:    total,
		TotalSessions: sessions,
		TotalMessages: messages,
		ActiveUsers:   active,
	}, nil
}

// User Management
func (u *DashboardUsecase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return u.userRepo.GetAllUsers(ctx)
}

type UserUpdate struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
	Password *string
}

// UpdateUser applies an admin edit. An admin cannot deactivate their own account.
func (u *DashboardUsecase) UpdateUser(ctx context.Context, actor *entities.User, userID int, in UserUpdate) (*entities.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			user.Email = nil
		} else {
			taken, err := u.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken != nil && taken.ID != user.ID {
				return nil, ErrEmailTaken
			}
			user.Email = &email
		}
	}
	if in.Role != nil {
		role, ok := entities.ParseRole(*in.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		user.Role = role
	}
	if in.IsActive != nil {
		if !*in.IsActive && actor != nil && actor.ID == user.ID {
			return nil, ErrSelfDeactivation
		}
		user.IsActive = *in.IsActive
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < minPasswordLength {
			return nil, ErrWeakPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hashed)
	}

	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return user, nil
}

// Settings Management
func (u *DashboardUsecase) GetSettings(ctx context.Context) ([]entities.SystemSetting, error) {
	return u.settings.GetAll(ctx)
}

func (u *DashboardUsecase) UpdateSetting(ctx context.Context, key, value string) (*entities.SystemSetting, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxSettingValueLength {
		return nil, fmt.Errorf("%w: value must be 1-%d characters", ErrInvalidSettingValue, maxSettingValueLength)
	}
	return u.settings.Update(ctx, key, value)
}
