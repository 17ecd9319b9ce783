package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/gripehq/gripe/authz"
	"github.com/gripehq/gripe/services"
)

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := services.NewTokenService("test-secret", time.Hour)
	sessions := services.NewSessionService(nil, time.Hour)
	middleware := NewAuthMiddleware(tokens, sessions)

	r := gin.New()
	r.GET("/protected", middleware.RequireAuth(), func(c *gin.Context) {
		caller, ok := authz.CallerFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "caller missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": caller.AccountID, "role": caller.Role})
	})

	t.Run("ValidToken", func(t *testing.T) {
		token, _, err := tokens.Issue("acct-1", "user@example.com", "admin")
		assert.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "acct-1")
		assert.Contains(t, w.Body.String(), "admin")
	})

	t.Run("MissingHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("TokenSignedWithOtherSecret", func(t *testing.T) {
		other := services.NewTokenService("other-secret", time.Hour)
		token, _, err := other.Issue("acct-1", "user@example.com", "user")
		assert.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
