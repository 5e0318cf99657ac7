package usecases

import (
	"context"
	"testing"
	"time"

	"llamachat/internal/entities"
)

func TestExpireIdle(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)
	janitor := NewSessionJanitor(f.store.Sessions(), f.svc, f.svc.settings)

	stale, err := f.svc.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, err := f.svc.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.store.Sessions().Touch(ctx, stale.ID, time.Now().Add(-25*time.Hour)); err != nil {
		t.Fatalf("touch: %v", err)
	}

	closed, err := janitor.ExpireIdle(ctx)
	if err != nil || closed != 1 {
		t.Fatalf("closed=%d err=%v", closed, err)
	}
	if f.store.Session(stale.ID).IsActive || !f.store.Session(fresh.ID).IsActive {
		t.Fatalf("wrong session expired")
	}
	if f.archiver.Count() != 1 {
		t.Fatalf("archived %d", f.archiver.Count())
	}

	// already inactive sessions are not picked up again
	if closed, _ := janitor.ExpireIdle(ctx); closed != 0 {
		t.Fatalf("second pass closed %d", closed)
	}
}

func TestExpireIdleDisabled(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)
	f.store.SetSetting(entities.SettingSessionTimeoutHours, "0")
	janitor := NewSessionJanitor(f.store.Sessions(), f.svc, f.svc.settings)

	session, _ := f.svc.CreateSession(ctx, 1, "")
	_ = f.store.Sessions().Touch(ctx, session.ID, time.Now().AddDate(-1, 0, 0))

	if closed, err := janitor.ExpireIdle(ctx); err != nil || closed != 0 {
		t.Fatalf("closed=%d err=%v", closed, err)
	}
	if !f.store.Session(session.ID).IsActive {
		t.Fatalf("session expired while janitor disabled")
	}
}
