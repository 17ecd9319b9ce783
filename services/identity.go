package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gripehq/gripe/apperr"
)

// ExternalIdentity is the verified identity returned by the provider
// after a successful credential check.
type ExternalIdentity struct {
	ID    string
	Email string
	// AccessToken is the provider-side session token, kept server-side
	// so logout can be forwarded upstream.
	AccessToken string
}

// IdentityProvider delegates credential verification to an external
// auth service. It is injected into the handlers and substitutable with
// a test double.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*ExternalIdentity, error)
	SignIn(ctx context.Context, email, password string) (*ExternalIdentity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ===========================
// SUPABASE (GoTrue) PROVIDER
// ===========================

// SupabaseProvider talks to the Supabase GoTrue REST API.
type SupabaseProvider struct {
	URL     string
	AnonKey string
	Client  *http.Client
}

func NewSupabaseProvider(url, anonKey string) *SupabaseProvider {
	return &SupabaseProvider{
		URL:     url,
		AnonKey: anonKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
	// Signup responses carry the user at the top level
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*ExternalIdentity, error) {
	resp, err := p.post(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	identity := &ExternalIdentity{ID: resp.User.ID, Email: resp.User.Email, AccessToken: resp.AccessToken}
	if identity.ID == "" {
		// Projects with email confirmation enabled return the bare user
		identity.ID = resp.ID
		identity.Email = resp.Email
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("signup response carried no user id")
	}
	return identity, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*ExternalIdentity, error) {
	resp, err := p.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	if resp.User.ID == "" {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid login credentials")
	}
	return &ExternalIdentity{ID: resp.User.ID, Email: resp.User.Email, AccessToken: resp.AccessToken}, nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		// Nothing to revoke upstream; the client discards its token.
		return nil
	}
	_, err := p.post(ctx, "/auth/v1/logout", nil, accessToken)
	return err
}

// post sends a JSON request to GoTrue and maps its error responses onto
// the service error taxonomy.
func (p *SupabaseProvider) post(ctx context.Context, path string, body interface{}, bearer string) (*gotrueSession, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.AnonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.AnonKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var gerr gotrueError
		_ = json.Unmarshal(raw, &gerr)
		msg := gerr.Message
		if msg == "" {
			msg = gerr.ErrorDescription
		}
		if msg == "" {
			msg = fmt.Sprintf("provider returned status %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, apperr.Wrap(apperr.ErrUnauthenticated, "%s", msg)
		case http.StatusUnprocessableEntity, http.StatusBadRequest:
			if gerr.ErrorCode == "user_already_exists" || gerr.ErrorCode == "email_exists" {
				return nil, apperr.Wrap(apperr.ErrConflict, "%s", msg)
			}
			// GoTrue reports bad credentials on the password grant as a
			// 400 rather than a 401.
			if gerr.ErrorCode == "invalid_credentials" || gerr.ErrorDescription == "Invalid login credentials" {
				return nil, apperr.Wrap(apperr.ErrUnauthenticated, "%s", msg)
			}
			return nil, apperr.Wrap(apperr.ErrInvalidArgument, "%s", msg)
		default:
			return nil, fmt.Errorf("identity provider error: %s", msg)
		}
	}

	session := &gotrueSession{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, session); err != nil {
			return nil, fmt.Errorf("failed to parse provider response: %w", err)
		}
	}
	return session, nil
}

// ===========================
// LOCAL PROVIDER (dev/test)
// ===========================

// LocalProvider verifies credentials against the identities table with
// bcrypt. Used when no Supabase URL is configured, and as a stand-in
// during tests.
type LocalProvider struct {
	PG *sql.DB
}

func NewLocalProvider(pg *sql.DB) *LocalProvider {
	return &LocalProvider{PG: pg}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*ExternalIdentity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var id string
	err = p.PG.QueryRowContext(ctx, `
		INSERT INTO identities (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, email, string(hash)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrConflict, "user already exists")
	}
	if err != nil {
		return nil, err
	}
	return &ExternalIdentity{ID: id, Email: email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*ExternalIdentity, error) {
	var id, hash string
	err := p.PG.QueryRowContext(ctx, `
		SELECT id, password_hash FROM identities WHERE email = $1
	`, email).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid login credentials")
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid login credentials")
	}
	return &ExternalIdentity{ID: id, Email: email}, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	// Local sessions have no provider-side state to invalidate.
	return nil
}
