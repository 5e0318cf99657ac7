package entities

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RolePremium   Role = "premium"
	RoleBasic     Role = "basic"
)

// roleRank orders roles from most to least privileged. Unknown roles rank 0.
var roleRank = map[Role]int{
	RoleAdmin:     4,
	RoleModerator: 3,
	RolePremium:   2,
	RoleBasic:     1,
}

// Roles lists every role, highest rank first.
var Roles = []Role{RoleAdmin, RoleModerator, RolePremium, RoleBasic}

func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID             int        `json:"id"`
	Username       string     `json:"username"`
	Email          *string    `json:"email"`
	PasswordHash   string     `json:"-"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	AvatarURL      *string    `json:"avatar_url"`
	Bio            *string    `json:"bio"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
	TelegramChatID *int64     `json:"-"`
}

// HasRole reports whether the user's rank is at least that of r.
func (u *User) HasRole(r Role) bool {
	return u.Role.Rank() >= r.Rank()
}

// DaysSinceJoined counts whole days between account creation and now.
func (u *User) DaysSinceJoined(now time.Time) int {
	if u.CreatedAt.IsZero() {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
