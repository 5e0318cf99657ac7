package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// TokenClaims are carried by every login token.
type TokenClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthUsecase struct {
	userRepo  interfaces.UserRepository
	settings  *SettingsService
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthUsecase(repo interfaces.UserRepository, settings *SettingsService, secret string, ttl time.Duration) *AuthUsecase {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthUsecase{
		userRepo:  repo,
		settings:  settings,
		jwtSecret: []byte(secret),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Register creates a basic account. Checks run in the order username, password, email.
func (uc *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	enabled, err := uc.settings.Bool(ctx, entities.SettingEnableUserRegistration, true)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrRegistrationDisabled
	}

	username := strings.TrimSpace(in.Username)
	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	var email *string
	if e := strings.TrimSpace(in.Email); e != "" {
		taken, err := uc.userRepo.GetByEmail(ctx, e)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrEmailTaken
		}
		email = &e
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Name:         name,
		Role:         entities.RoleBasic,
		IsActive:     true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed token for an active account.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, *entities.User, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := uc.now()
	if err := uc.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLogin = &now

	token, err := uc.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs an HS256 token for user.
func (uc *AuthUsecase) IssueToken(user *entities.User) (string, error) {
	now := uc.now()
	claims := TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(uc.tokenTTL)),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// CurrentUser loads the account behind a token. Inactive or deleted accounts are rejected.
func (uc *AuthUsecase) CurrentUser(ctx context.Context, userID int) (*entities.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

type ProfileInput struct {
	Name  *string
	Email *string
	Bio   *string
}

// UpdateProfile applies non-empty name and email; bio is applied whenever present.
func (uc *AuthUsecase) UpdateProfile(ctx context.Context, user *entities.User, in ProfileInput) (*entities.User, error) {
	updated := *user
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := strings.TrimSpace(*in.Email)
		if user.Email == nil || *user.Email != email {
			taken, err := uc.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken != nil && taken.ID != user.ID {
				return nil, ErrEmailTaken
			}
		}
		updated.Email = &email
	}
	if in.Bio != nil {
		bio := *in.Bio
		updated.Bio = &bio
	}
	if err := uc.userRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// EnsureAdmin creates the first administrator when no accounts exist (called on startup).
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	total, _, err := uc.userRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if total > 0 {
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	email := "admin@chatbot.com"
	admin := &entities.User{
		Username:     username,
		Email:        &email,
		PasswordHash: string(hashed),
		Name:         "Administrator",
		Role:         entities.RoleAdmin,
		IsActive:     true,
	}
	if err := uc.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}
