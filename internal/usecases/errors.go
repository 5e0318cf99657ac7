package usecases

import (
	"errors"
	"fmt"

	"llamachat/internal/interfaces"
)

var (
	ErrEmptyPrompt          = errors.New("No message provided")
	ErrInvalidSession       = errors.New("Invalid session")
	ErrSessionNotFound      = errors.New("Session not found")
	ErrRegistrationDisabled = errors.New("User registration is currently disabled")
	ErrWeakPassword         = errors.New("Password must be at least 6 characters")
	ErrUsernameTaken        = interfaces.ErrUsernameTaken
	ErrEmailTaken           = interfaces.ErrEmailTaken
	ErrInvalidCredentials   = errors.New("Invalid username or password")
	ErrUnauthenticated      = errors.New("Authentication required")
	ErrAccessDenied         = errors.New("Access denied. Insufficient permissions.")
	ErrUserNotFound         = errors.New("User not found")
	ErrSettingNotFound      = errors.New("Setting not found")
	ErrInvalidSettingValue  = errors.New("Invalid setting value")
	ErrInvalidRole          = errors.New("Invalid role")
	ErrSelfDeactivation     = errors.New("Cannot disable your own account")
	ErrInvalidLinkCode      = errors.New("Invalid or expired link code")
	ErrGateway              = errors.New("Error contacting Ollama")
)

// LimitError rejects a message once the session holds the configured maximum.
type LimitError struct {
	Max int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Session limit reached (%d messages)", e.Max)
}

// SessionQuotaError rejects a new session once the user owns the configured maximum.
type SessionQuotaError struct {
	Max int
}

func (e *SessionQuotaError) Error() string {
	return fmt.Sprintf("Session quota reached (%d sessions)", e.Max)
}

// IsValidation reports whether err is caused by caller input rather than a failure.
func IsValidation(err error) bool {
	var limitErr *LimitError
	var quotaErr *SessionQuotaError
	switch {
	case errors.As(err, &limitErr), errors.As(err, &quotaErr):
		return true
	}
	for _, target := range []error{
		ErrEmptyPrompt, ErrInvalidSession, ErrRegistrationDisabled, ErrWeakPassword,
		ErrUsernameTaken, ErrEmailTaken, ErrInvalidRole, ErrSelfDeactivation, ErrInvalidLinkCode,
		ErrInvalidSettingValue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
