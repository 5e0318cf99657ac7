package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"llamachat/internal/entities"
	"llamachat/internal/usecases"
)

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "secret1"})
	expectStatus(t, w, http.StatusCreated)

	w = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "secret1"})
	expectStatus(t, w, http.StatusConflict)

	w = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bob", "password": "123"})
	expectStatus(t, w, http.StatusBadRequest)

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "secret1"})
	expectStatus(t, w, http.StatusOK)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, w, &login)
	if login.Token == "" {
		t.Fatalf("no token returned")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), tokenCookie+"=") {
		t.Fatalf("login cookie not set")
	}

	w = app.do(t, http.MethodGet, "/api/profile", login.Token, nil)
	expectStatus(t, w, http.StatusOK)
}

func TestRegistrationDisabled(t *testing.T) {
	app := newTestApp(t)
	app.store.SetSetting(entities.SettingEnableUserRegistration, "false")

	w := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "carol", "password": "secret1"})
	expectStatus(t, w, http.StatusForbidden)
}

func TestChatEndpoint(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser(t, "alice", entities.RoleBasic)

	w := app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "Hello there"})
	expectStatus(t, w, http.StatusOK)
	var res struct {
		Response     string  `json:"response"`
		SessionID    int     `json:"session_id"`
		ResponseTime float64 `json:"response_time"`
	}
	decode(t, w, &res)
	if res.Response != "Hello" || res.SessionID == 0 || res.ResponseTime < 0 {
		t.Fatalf("unexpected response %+v", res)
	}

	w = app.do(t, http.MethodGet, "/api/session/"+itoa(res.SessionID)+"/messages", token, nil)
	expectStatus(t, w, http.StatusOK)
	var msgs struct {
		Success  bool               `json:"success"`
		Messages []entities.Message `json:"messages"`
	}
	decode(t, w, &msgs)
	if !msgs.Success || len(msgs.Messages) != 2 {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestChatEndpointErrors(t *testing.T) {
	app := newTestApp(t)
	owner, _ := app.createUser(t, "owner", entities.RoleBasic)
	_, token := app.createUser(t, "intruder", entities.RoleBasic)

	w := app.do(t, http.MethodPost, "/chat", "", map[string]any{"prompt": "hi"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": ""})
	expectStatus(t, w, http.StatusBadRequest)
	assertError(t, w, "No message provided")

	session, err := app.chat.CreateSession(context.Background(), owner.ID, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	w = app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hi", "session_id": session.ID})
	expectStatus(t, w, http.StatusBadRequest)
	assertError(t, w, "Invalid session")

	app.gen.Err = errors.New("connection refused")
	w = app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hi"})
	expectStatus(t, w, http.StatusInternalServerError)
	assertError(t, w, "Error contacting Ollama: connection refused")
}

func TestChatEndpointLimit(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser(t, "alice", entities.RoleBasic)
	app.store.SetSetting(entities.SettingMaxMessagesPerSession, "2")

	w := app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "one"})
	expectStatus(t, w, http.StatusOK)
	var res struct {
		SessionID int `json:"session_id"`
	}
	decode(t, w, &res)

	w = app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "two", "session_id": res.SessionID})
	expectStatus(t, w, http.StatusBadRequest)
	assertError(t, w, "Session limit reached (2 messages)")
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser(t, "alice", entities.RoleBasic)
	_, other := app.createUser(t, "bob", entities.RoleBasic)

	w := app.do(t, http.MethodGet, "/api/home", token, nil)
	expectStatus(t, w, http.StatusOK)
	var home usecases.HomeView
	decode(t, w, &home)
	if home.ActiveSession.ID == 0 || len(home.RecentSessions) != 1 || len(home.Models) != 1 {
		t.Fatalf("unexpected home %+v", home)
	}
	firstID := home.ActiveSession.ID

	w = app.do(t, http.MethodPost, "/api/sessions", token, nil)
	expectStatus(t, w, http.StatusCreated)
	var created entities.SessionSummary
	decode(t, w, &created)
	if created.ID == firstID || !created.IsActive {
		t.Fatalf("unexpected new session %+v", created)
	}

	w = app.do(t, http.MethodGet, "/api/sessions", token, nil)
	expectStatus(t, w, http.StatusOK)
	var list []entities.SessionSummary
	decode(t, w, &list)
	if len(list) != 2 {
		t.Fatalf("sessions = %d, want 2", len(list))
	}

	w = app.do(t, http.MethodGet, "/api/session/"+itoa(firstID), other, nil)
	expectStatus(t, w, http.StatusNotFound)
	w = app.do(t, http.MethodGet, "/api/session/"+itoa(firstID)+"/messages", other, nil)
	expectStatus(t, w, http.StatusNotFound)
	w = app.do(t, http.MethodGet, "/api/session/abc", token, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = app.do(t, http.MethodDelete, "/api/session/"+itoa(firstID), token, nil)
	expectStatus(t, w, http.StatusOK)
	w = app.do(t, http.MethodGet, "/api/session/"+itoa(firstID), token, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestModelsEndpoint(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser(t, "alice", entities.RoleBasic)
	app.gen.Models = nil

	w := app.do(t, http.MethodGet, "/api/models", token, nil)
	expectStatus(t, w, http.StatusOK)
	var res struct {
		Models []entities.ModelInfo `json:"models"`
	}
	decode(t, w, &res)
	if len(res.Models) != 1 || res.Models[0].Name != entities.NoModelsAvailable || res.Models[0].Size != 0 {
		t.Fatalf("unexpected models %+v", res.Models)
	}
}

func TestProfileAndUsage(t *testing.T) {
	app := newTestApp(t)
	_, token := app.createUser(t, "alice", entities.RoleBasic)

	w := app.do(t, http.MethodPut, "/api/profile", token, map[string]string{"name": "Alice", "bio": "hi"})
	expectStatus(t, w, http.StatusOK)
	w = app.do(t, http.MethodPut, "/api/profile", token, map[string]string{"email": "not-an-email"})
	expectStatus(t, w, http.StatusBadRequest)

	app.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hello"})

	w = app.do(t, http.MethodGet, "/api/usage", token, nil)
	expectStatus(t, w, http.StatusOK)
	var usage struct {
		Today struct {
			Sent     int `json:"sent"`
			Received int `json:"received"`
		} `json:"today"`
		History []entities.DailyUsage `json:"history"`
	}
	decode(t, w, &usage)
	if usage.Today.Sent != 1 || usage.Today.Received != 1 || len(usage.History) != 1 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing")
	}
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	if body.Error != want {
		t.Fatalf("error = %q, want %q", body.Error, want)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
