package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/models"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
	"github.com/noah-isme/feedback-api/pkg/response"
)

// ContextAdminKey is the gin context key storing admin session claims.
const ContextAdminKey = "adminSession"

type sessionValidator interface {
	ValidateToken(tokenString string) (*models.AdminClaims, error)
}

// AdminSession requires a valid admin session, read from the Authorization
// bearer header or, failing that, from the session cookie.
func AdminSession(validator sessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := SessionToken(c, cookieName)
		if raw == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "admin session required"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}

// AdminClaims returns the session claims set by AdminSession.
func AdminClaims(c *gin.Context) *models.AdminClaims {
	value, exists := c.Get(ContextAdminKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.AdminClaims)
	return claims
}

// SessionToken returns the raw session token from the Authorization bearer
// header or, failing that, from the named cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" && cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil {
			raw = cookie
		}
	}
	return raw
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
