package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/authz"
	"github.com/gripehq/gripe/db"
	"github.com/gripehq/gripe/services"
)

// AuthHandler wires sign-up/sign-in/sign-out against the identity
// provider and the local account store.
type AuthHandler struct {
	Provider services.IdentityProvider
	Accounts *services.AccountService
	Tokens   *services.TokenService
	Sessions *services.SessionService
}

func NewAuthHandler(provider services.IdentityProvider, accounts *services.AccountService,
	tokens *services.TokenService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{
		Provider: provider,
		Accounts: accounts,
		Tokens:   tokens,
		Sessions: sessions,
	}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req db.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide email and password"})
		return
	}

	ctx := c.Request.Context()

	// Duplicate check before touching the provider, so a repeated
	// signup never creates a second identity upstream.
	if _, err := h.Accounts.GetByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	} else if !errors.Is(err, apperr.ErrNotFound) {
		respondError(c, err)
		return
	}

	identity, err := h.Provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	account, err := h.Accounts.GetOrCreateByEmail(ctx, identity.ID, identity.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	token, jti, err := h.Tokens.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Sessions.Store(ctx, jti, identity.AccessToken); err != nil {
		log.Printf("Failed to store session for %s: %v", account.Email, err)
	}

	c.JSON(http.StatusCreated, db.AuthResponse{
		Message: "User registered successfully",
		User:    *account,
		Token:   token,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req db.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide email and password"})
		return
	}

	ctx := c.Request.Context()

	identity, err := h.Provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	// Lazy provisioning: first successful sign-in creates the local
	// account with the default role.
	account, err := h.Accounts.GetOrCreateByEmail(ctx, identity.ID, identity.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	token, jti, err := h.Tokens.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Sessions.Store(ctx, jti, identity.AccessToken); err != nil {
		log.Printf("Failed to store session for %s: %v", account.Email, err)
	}

	c.JSON(http.StatusOK, db.AuthResponse{
		User:  *account,
		Token: token,
	})
}

// Logout handles POST /auth/logout. The provider-side session is signed
// out when we still hold its access token; the issued token is revoked
// either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	jti := c.GetString(contextTokenID)

	if providerToken := h.Sessions.ProviderToken(ctx, jti); providerToken != "" {
		if err := h.Provider.SignOut(ctx, providerToken); err != nil {
			log.Printf("Provider sign-out failed: %v", err)
		}
	}

	if err := h.Sessions.Revoke(ctx, jti); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

// Profile handles GET /auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	account, err := h.Accounts.GetByID(c.Request.Context(), caller.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
