package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/infrastructure"
	"llamachat/internal/usecases"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenCookie    = "token"
	contextUserKey = "user"
)

type Middleware struct {
	jwtSecret []byte
	auth      *usecases.AuthUsecase
	limiter   *infrastructure.MessageRateLimiter
}

func NewMiddleware(secret string, auth *usecases.AuthUsecase, limiter *infrastructure.MessageRateLimiter) *Middleware {
	return &Middleware{
		jwtSecret: []byte(secret),
		auth:      auth,
		limiter:   limiter,
	}
}

// AuthRequired accepts a bearer token or the login cookie and loads the current user.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": usecases.ErrUnauthenticated.Error()})
			return
		}

		claims := &usecases.TokenClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// Role and active flag come from the store, not the token.
		user, err := m.auth.CurrentUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, usecases.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.Set(contextUserKey, user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RoleRequired rejects callers below role (must follow AuthRequired).
func (m *Middleware) RoleRequired(role entities.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := usecases.Authorize(currentUser(c), role); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, usecases.ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// AdminRequired is RoleRequired(admin).
func (m *Middleware) AdminRequired() gin.HandlerFunc {
	return m.RoleRequired(entities.RoleAdmin)
}

// RateLimitPerUser limits requests per authenticated user (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}

		if !m.limiter.Allow(user.ID) {
			wait := m.limiter.WaitTime(user.ID)
			c.Header("Retry-After", fmt.Sprintf("%d", int(wait.Round(time.Second)/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// CORSMiddleware allows the configured origins, or every origin when none are configured.
// Any origin is echoed back rather than answered with "*", which browsers refuse on cookie requests.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")

		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// currentUser returns the user stored by AuthRequired, or nil.
func currentUser(c *gin.Context) *entities.User {
	v, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, _ := v.(*entities.User)
	return user
}
