package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxUsernameLength = 80
	MaxNameLength     = 100
	MaxEmailLength    = 120
	MaxBioLength      = 500
	MaxPromptLength   = 32000
	MaxModelLength    = 100
	MaxSettingKeyLen  = 64
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	settingKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidUsername checks if a username is safe (alphanumeric, underscore, dot, hyphen)
func ValidUsername(s string) bool {
	return s != "" && len(s) <= MaxUsernameLength && usernamePattern.MatchString(s)
}

// ValidSettingKey checks if a settings key is safe
func ValidSettingKey(s string) bool {
	return s != "" && len(s) <= MaxSettingKeyLen && settingKeyPattern.MatchString(s)
}

// ValidEmail accepts an empty string (email is optional) or a plausible address.
func ValidEmail(s string) bool {
	return s == "" || (len(s) <= MaxEmailLength && emailPattern.MatchString(s))
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// ValidateLength checks if the rune count of s is within bounds
func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}

// parseID parses a positive integer path parameter.
func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
