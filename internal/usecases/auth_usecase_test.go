package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
	"llamachat/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
)

func newAuth(t *testing.T) (*AuthUsecase, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	settings := NewSettingsService(store.Settings())
	if err := settings.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewAuthUsecase(store.Users(), settings, "test-secret", time.Hour), store
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth(t)

	user, err := auth.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != entities.RoleBasic || user.Name != "alice" || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}

	token, logged, err := auth.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.LastLogin == nil {
		t.Fatalf("expected last_login to be set")
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != "basic" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	auth, store := newAuth(t)

	if _, err := auth.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: "bob@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"duplicate username", RegisterInput{Username: "bob", Password: "x"}, ErrUsernameTaken},
		{"short password", RegisterInput{Username: "carol", Password: "12345"}, ErrWeakPassword},
		{"duplicate email", RegisterInput{Username: "carol", Password: "123456", Email: "bob@example.com"}, ErrEmailTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.Register(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}

	store.SetSetting(entities.SettingEnableUserRegistration, "False")
	if _, err := auth.Register(ctx, RegisterInput{Username: "dave", Password: "123456"}); !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("want registration disabled, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsAndInactiveUsers(t *testing.T) {
	ctx := context.Background()
	auth, store := newAuth(t)

	user, err := auth.Register(ctx, RegisterInput{Username: "erin", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := auth.Login(ctx, "erin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want invalid credentials, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want invalid credentials, got %v", err)
	}

	user.IsActive = false
	if err := store.Users().Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, _, err := auth.Login(ctx, "erin", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive user logged in: %v", err)
	}
	if _, err := auth.CurrentUser(ctx, user.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("inactive user resolved: %v", err)
	}
}

func TestEnsureAdminOnlyOnEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	auth, store := newAuth(t)

	created, err := auth.EnsureAdmin(ctx, "admin", "admin123")
	if err != nil || !created {
		t.Fatalf("first EnsureAdmin: created=%v err=%v", created, err)
	}
	created, err = auth.EnsureAdmin(ctx, "root", "admin123")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin: created=%v err=%v", created, err)
	}

	admin, _ := store.Users().GetByUsername(ctx, "admin")
	if admin == nil || admin.Role != entities.RoleAdmin || admin.Name != "Administrator" {
		t.Fatalf("unexpected admin: %+v", admin)
	}
	if _, _, err := auth.Login(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth(t)

	if _, err := auth.Register(ctx, RegisterInput{Username: "frank", Password: "secret1", Email: "frank@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, _ := auth.Register(ctx, RegisterInput{Username: "gina", Password: "secret1"})

	blank, bio := "  ", "hello"
	updated, err := auth.UpdateProfile(ctx, user, ProfileInput{Name: &blank, Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "gina" || updated.Bio == nil || *updated.Bio != "hello" {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	taken := "frank@example.com"
	if _, err := auth.UpdateProfile(ctx, updated, ProfileInput{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("want email taken, got %v", err)
	}
}

// staleLookups hides existing accounts from the pre-insert checks, as when a
// concurrent registration commits between the lookup and the insert.
type staleLookups struct {
	interfaces.UserRepository
}

func (staleLookups) GetByUsername(context.Context, string) (*entities.User, error) { return nil, nil }
func (staleLookups) GetByEmail(context.Context, string) (*entities.User, error)    { return nil, nil }

func TestRegisterConflictFromStoreIsReported(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	settings := NewSettingsService(store.Settings())
	if err := settings.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	auth := NewAuthUsecase(staleLookups{store.Users()}, settings, "test-secret", time.Hour)

	if _, err := auth.Register(ctx, RegisterInput{Username: "alice", Password: "secret1", Email: "a@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := auth.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	if !errors.Is(err, ErrUsernameTaken) || !IsValidation(err) {
		t.Fatalf("duplicate username: want ErrUsernameTaken, got %v", err)
	}
	_, err = auth.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: "a@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: want ErrEmailTaken, got %v", err)
	}
}
