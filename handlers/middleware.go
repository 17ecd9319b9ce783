package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gripehq/gripe/authz"
	"github.com/gripehq/gripe/services"
)

// Context key for the session jti, used by logout to revoke the token.
const contextTokenID = "token_jti"

// AuthMiddleware verifies session tokens on protected routes.
type AuthMiddleware struct {
	Tokens   *services.TokenService
	Sessions *services.SessionService
}

func NewAuthMiddleware(tokens *services.TokenService, sessions *services.SessionService) *AuthMiddleware {
	return &AuthMiddleware{Tokens: tokens, Sessions: sessions}
}

// RequireAuth validates the bearer token and stores the caller in the
// request context. Missing, malformed, expired, and revoked tokens all
// yield the same 401 so clients treat any of them as "session invalid".
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := services.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := m.Tokens.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		if m.Sessions.IsRevoked(c.Request.Context(), claims.ID) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(authz.ContextUserID, claims.Subject)
		c.Set(authz.ContextUserEmail, claims.Email)
		c.Set(authz.ContextUserRole, claims.Role)
		c.Set(contextTokenID, claims.ID)

		c.Next()
	}
}
