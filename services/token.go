package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gripehq/gripe/apperr"
)

// DefaultTokenTTL is how long an issued session token stays valid.
// There is no refresh path; clients re-authenticate to get a new one.
const DefaultTokenTTL = 24 * time.Hour

// SessionClaims bind a local account to a signed, time-limited token.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens (HS256).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token binding account id, email, and role. The jti is a
// fresh UUID; it keys the server-side session record and the revocation
// list.
func (s *TokenService) Issue(accountID, email, role string) (token string, jti string, err error) {
	jti = uuid.NewString()
	now := time.Now()

	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// Verify parses and validates a token. Missing, malformed, badly signed,
// and expired tokens all come back as ErrUnauthenticated.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid token")
	}
	if claims.Subject == "" {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization
// header value.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", apperr.Wrap(apperr.ErrUnauthenticated, "authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", apperr.Wrap(apperr.ErrUnauthenticated, "invalid authorization header format")
	}

	return parts[1], nil
}
