package middleware

import (
	"net/http"
	"strings"

	"kanri/backend/internal/models"
	"kanri/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const userContextKey = "auth_user"

// CurrentUser returns the authenticated user attached by RequireAuth. The
// typed accessor is the only way handlers read the guard's result; nothing
// downstream touches the raw context key.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// SetCurrentUser attaches the authenticated user to the request context.
// RequireAuth is the production caller; handler tests use it directly.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// IsAuthorized reports whether a role is in the allowed set. Restricted
// handlers call it explicitly after CurrentUser.
func IsAuthorized(role string, allowedRoles ...string) bool {
	for _, allowed := range allowedRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

// RequireAuth resolves the caller from a bearer token in the Authorization
// header, falling back to the auth cookie, and attaches the user record for
// the handler chain. Missing, malformed, expired or orphaned credentials all
// fail the same way: 401 without detail.
func RequireAuth(db *gorm.DB, tokens services.TokenService, users services.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie(cookieName); err == nil {
			tokenStr = cookie
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Not authorized to access this route",
			})
			return
		}

		userID, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Not authorized to access this route",
			})
			return
		}

		user, err := users.GetUserByID(db, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Not authorized to access this route",
			})
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}
