package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/response"
)

const (
	// ContextUserID holds the caller's uuid.UUID.
	ContextUserID = auth.ContextUserID
	// ContextUserRole holds the caller's models.Role as issued in the token.
	ContextUserRole = "user_role"
)

// JWT validates the bearer token and stores the caller in the gin context.
// Restore-scoped tokens of soft-deleted accounts are refused.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return authenticate(jwtService, false)
}

// JWTAllowDeleted is JWT for the account status and restore endpoints,
// which also accept restore-scoped tokens.
func JWTAllowDeleted(jwtService *auth.JWTService) gin.HandlerFunc {
	return authenticate(jwtService, true)
}

func authenticate(jwtService *auth.JWTService, allowDeleted bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if claims.Deleted() && !allowDeleted {
			response.Forbidden(c, "account deleted; restore to continue")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, models.Role(claims.Role))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
