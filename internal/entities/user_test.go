package entities

import (
	"testing"
	"time"
)

func TestHasRoleFollowsRank(t *testing.T) {
	for i, have := range Roles {
		u := &User{Role: have}
		for j, want := range Roles {
			// Roles is ordered highest first, so have satisfies want when i <= j.
			if got := u.HasRole(want); got != (i <= j) {
				t.Fatalf("%s.HasRole(%s) = %v", have, want, got)
			}
		}
	}

	unknown := &User{Role: "guest"}
	if unknown.HasRole(RoleBasic) {
		t.Fatalf("unknown role must not satisfy basic")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":     RoleAdmin,
		" Premium ": RolePremium,
		"MODERATOR": RoleModerator,
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("ParseRole(root) should fail")
	}
}

func TestDaysSinceJoined(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	u := &User{CreatedAt: now.Add(-72*time.Hour - time.Minute)}
	if got := u.DaysSinceJoined(now); got != 3 {
		t.Fatalf("DaysSinceJoined = %d, want 3", got)
	}
	if got := (&User{}).DaysSinceJoined(now); got != 0 {
		t.Fatalf("zero CreatedAt should give 0, got %d", got)
	}
}

func TestSessionFormattedDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		created time.Time
		want    string
	}{
		{now.Add(-time.Hour), "Today"},
		{time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC), "Yesterday"},
		{time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC), "Feb 05"},
	}
	for _, tc := range cases {
		s := &ChatSession{CreatedAt: tc.created}
		if got := s.FormattedDate(now); got != tc.want {
			t.Fatalf("FormattedDate(%v) = %q, want %q", tc.created, got, tc.want)
		}
	}
}

func TestNeedsTitle(t *testing.T) {
	def, custom, empty := DefaultSessionTitle, "Trip plans", ""
	cases := []struct {
		title *string
		want  bool
	}{
		{nil, true},
		{&empty, true},
		{&def, true},
		{&custom, false},
	}
	for _, tc := range cases {
		if got := (&ChatSession{Title: tc.title}).NeedsTitle(); got != tc.want {
			t.Fatalf("NeedsTitle(%v) = %v", tc.title, got)
		}
	}
}
