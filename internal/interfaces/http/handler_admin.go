package http

import (
	"net/http"

	"llamachat/internal/usecases"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	dashboard *usecases.DashboardUsecase
}

func NewAdminHandler(dashboard *usecases.DashboardUsecase) *AdminHandler {
	return &AdminHandler{dashboard: dashboard}
}

// GetStats returns platform statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAllUsers returns list of all users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.dashboard.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]gin.H, len(users))
	for i, u := range users {
		result[i] = gin.H{
			"id":              u.ID,
			"username":        u.Username,
			"name":            u.Name,
			"email":           u.Email,
			"role":            u.Role,
			"is_active":       u.IsActive,
			"created_at":      u.CreatedAt,
			"last_login":      u.LastLogin,
			"telegram_linked": u.TelegramChatID != nil,
		}
	}

	c.JSON(http.StatusOK, result)
}

// UpdateUser edits profile fields, role, status or password of a user
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Email != nil && !ValidEmail(*req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	user, err := h.dashboard.UpdateUser(c.Request.Context(), currentUser(c), id, usecases.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "user": user})
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.dashboard.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	key := c.Param("key")
	if !ValidSettingKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid setting key"})
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	setting, err := h.dashboard.UpdateSetting(c.Request.Context(), key, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
