package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/infrastructure"
	"llamachat/internal/testutil"
	"llamachat/internal/usecases"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

type testApp struct {
	router   *gin.Engine
	store    *testutil.Store
	gen      *testutil.Generator
	auth     *usecases.AuthUsecase
	chat     *usecases.ChatService
	linker   *usecases.TelegramLinker
	bot      *fakeBot
	telegram *TelegramHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewStore()
	settings := usecases.NewSettingsService(store.Settings())
	if err := settings.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	gen := &testutil.Generator{Reply: "Hello", Models: []entities.ModelInfo{{Name: "llama3:8b", Size: 1}}}

	auth := usecases.NewAuthUsecase(store.Users(), settings, testSecret, time.Hour)
	chat := usecases.NewChatService(store.Sessions(), store.Messages(), store.Usage(), gen, settings)
	dashboard := usecases.NewDashboardUsecase(store.Users(), store.Sessions(), store.Messages(), settings)
	linker := usecases.NewTelegramLinker(store.Users())

	limiter := infrastructure.NewMessageRateLimiter(1000, 1000)
	t.Cleanup(limiter.Close)

	bot := &fakeBot{name: "llama_bot"}
	telegram := NewTelegramHandler(bot, linker, chat, infrastructure.NewChatTracker(0))

	r := gin.New()
	SetupRoutes(r, RouterDeps{
		Chat:       chat,
		Auth:       auth,
		Dashboard:  dashboard,
		Usage:      store.Usage(),
		Middleware: NewMiddleware(testSecret, auth, limiter),
		Telegram:   telegram,
		TokenTTL:   time.Hour,
	})

	return &testApp{
		router: r, store: store, gen: gen, auth: auth, chat: chat,
		linker: linker, bot: bot, telegram: telegram,
	}
}

// createUser registers a user with role and returns a bearer token for it.
func (a *testApp) createUser(t *testing.T, username string, role entities.Role) (*entities.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := a.auth.Register(ctx, usecases.RegisterInput{Username: username, Password: "secret1"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	if role != entities.RoleBasic {
		user.Role = role
		if err := a.store.Users().Update(ctx, user); err != nil {
			t.Fatalf("set role: %v", err)
		}
	}
	token, _, err := a.auth.Login(ctx, username, "secret1")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return user, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

