package http

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
	"llamachat/internal/usecases"

	"github.com/gin-gonic/gin"
)

// usageHistoryDays is the window returned by GET /api/usage.
const usageHistoryDays = 30

type Handler struct {
	chat     *usecases.ChatService
	auth     *usecases.AuthUsecase
	usage    interfaces.UsageRecorder
	tokenTTL time.Duration
}

func NewHandler(chat *usecases.ChatService, auth *usecases.AuthUsecase, usage interfaces.UsageRecorder, tokenTTL time.Duration) *Handler {
	return &Handler{
		chat:     chat,
		auth:     auth,
		usage:    usage,
		tokenTTL: tokenTTL,
	}
}

// RouterDeps bundles what SetupRoutes wires together. Telegram is optional.
type RouterDeps struct {
	Chat        *usecases.ChatService
	Auth        *usecases.AuthUsecase
	Dashboard   *usecases.DashboardUsecase
	Usage       interfaces.UsageRecorder
	Middleware  *Middleware
	Telegram    *TelegramHandler
	TokenTTL    time.Duration
	CORSOrigins []string
}

func SetupRoutes(r *gin.Engine, deps RouterDeps) {
	h := NewHandler(deps.Chat, deps.Auth, deps.Usage, deps.TokenTTL)
	adminHandler := NewAdminHandler(deps.Dashboard)
	mw := deps.Middleware

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20))
	r.Use(CORSMiddleware(deps.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
	}

	r.POST("/chat", mw.AuthRequired(), mw.RateLimitPerUser(), h.Chat)

	api := r.Group("/api")
	api.Use(mw.AuthRequired())
	api.Use(mw.RateLimitPerUser())
	{
		api.GET("/home", h.Home)
		api.GET("/sessions", h.ListSessions)
		api.POST("/sessions", h.NewSession)
		api.GET("/session/:id", h.GetSession)
		api.DELETE("/session/:id", h.DeleteSession)
		api.GET("/session/:id/messages", h.SessionMessages)
		api.GET("/models", h.Models)
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpdateProfile)
		api.GET("/usage", h.GetUsage)

		if deps.Telegram != nil {
			deps.Telegram.RegisterRoutes(api)
		}
	}

	admin := r.Group("/api/admin")
	admin.Use(mw.AuthRequired())
	admin.Use(mw.AdminRequired())
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id", adminHandler.UpdateUser)
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings/:key", adminHandler.UpdateSetting)
	}
}

// respondError maps usecase errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, usecases.ErrUsernameTaken), errors.Is(err, usecases.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, usecases.ErrRegistrationDisabled), errors.Is(err, usecases.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, usecases.ErrInvalidCredentials), errors.Is(err, usecases.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, usecases.ErrSessionNotFound), errors.Is(err, usecases.ErrUserNotFound),
		errors.Is(err, usecases.ErrSettingNotFound):
		status = http.StatusNotFound
	case usecases.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, usecases.ErrGateway):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	default:
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ========================================
// Auth
// ========================================

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if !ValidUsername(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username"})
		return
	}
	if !ValidEmail(req.Email) || !ValidateLength(req.Name, 0, MaxNameLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid name or email"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), usecases.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     SanitizeString(req.Name),
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered", "user": user})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(h.tokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// ========================================
// Chat & Sessions
// ========================================

func (h *Handler) Chat(c *gin.Context) {
	user := currentUser(c)

	var req struct {
		Prompt    string `json:"prompt"`
		Model     string `json:"model"`
		SessionID *int   `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidateLength(req.Prompt, 0, MaxPromptLength) || !ValidateLength(req.Model, 0, MaxModelLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message too long"})
		return
	}

	result, err := h.chat.Chat(c.Request.Context(), user.ID, usecases.ChatRequest{
		Prompt:    SanitizeString(req.Prompt),
		Model:     req.Model,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Home(c *gin.Context) {
	home, err := h.chat.Home(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, home)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.chat.ListSessions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// NewSession closes the active sessions and opens a fresh one.
func (h *Handler) NewSession(c *gin.Context) {
	var req struct {
		Model string `json:"model"`
	}
	// body is optional
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	session, err := h.chat.StartNewSession(ctx, currentUser(c).ID, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.chat.Summarize(ctx, session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": usecases.ErrSessionNotFound.Error()})
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c).ID

	session, err := h.chat.GetSession(ctx, userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.chat.Summarize(ctx, session)
	if err != nil {
		respondError(c, err)
		return
	}
	messages, err := h.chat.SessionMessages(ctx, userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": summary, "messages": messages})
}

func (h *Handler) SessionMessages(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": usecases.ErrSessionNotFound.Error()})
		return
	}
	messages, err := h.chat.SessionMessages(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": usecases.ErrSessionNotFound.Error()})
		return
	}
	if err := h.chat.DeleteSession(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.chat.Models(c.Request.Context())})
}

// ========================================
// Profile & Usage
// ========================================

func (h *Handler) GetProfile(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"days_since_joined": user.DaysSinceJoined(time.Now()),
		"telegram_linked":   user.TelegramChatID != nil,
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Bio   *string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Name != nil && !ValidateLength(*req.Name, 0, MaxNameLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name too long"})
		return
	}
	if req.Email != nil && !ValidEmail(strings.TrimSpace(*req.Email)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}
	if req.Bio != nil {
		if !ValidateLength(*req.Bio, 0, MaxBioLength) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bio too long"})
			return
		}
		bio := SanitizeString(*req.Bio)
		req.Bio = &bio
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), currentUser(c), usecases.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Bio:   req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "user": user})
}

func (h *Handler) GetUsage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c).ID

	todaySent, todayReceived, err := h.usage.GetTodayUsage(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	monthSent, monthReceived, err := h.usage.GetMonthUsage(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.usage.GetUsageHistory(ctx, userID, usageHistoryDays)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []entities.DailyUsage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"today":   gin.H{"sent": todaySent, "received": todayReceived},
		"month":   gin.H{"sent": monthSent, "received": monthReceived},
		"history": history,
	})
}
