// Package client is the Go consumer of the gripe API, used by the
// gripectl command. Each call carries an explicit session context; the
// client holds no ambient global state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/db"
)

// Client talks to a gripe API server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Session is the client-side session context attached to each call.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account and returns a fresh session.
func (c *Client) Signup(ctx context.Context, email, password string) (*Session, error) {
	var resp db.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, credentials{email, password}, &resp); err != nil {
		return nil, err
	}
	return &Session{Token: resp.Token, Email: resp.User.Email, Role: resp.User.Role}, nil
}

// Login authenticates and returns a fresh session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp db.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, credentials{email, password}, &resp); err != nil {
		return nil, err
	}
	return &Session{Token: resp.Token, Email: resp.User.Email, Role: resp.User.Role}, nil
}

// Logout revokes the session server-side. The caller discards the
// session regardless of the result.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", s, nil, nil)
}

func (c *Client) Profile(ctx context.Context, s *Session) (*db.Account, error) {
	var account db.Account
	if err := c.do(ctx, http.MethodGet, "/auth/profile", s, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) ListComplaints(ctx context.Context, s *Session) ([]db.Complaint, error) {
	var complaints []db.Complaint
	if err := c.do(ctx, http.MethodGet, "/complaints", s, nil, &complaints); err != nil {
		return nil, err
	}
	return complaints, nil
}

func (c *Client) CreateComplaint(ctx context.Context, s *Session, req *db.CreateComplaintRequest) (*db.Complaint, error) {
	var complaint db.Complaint
	if err := c.do(ctx, http.MethodPost, "/complaints", s, req, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (c *Client) GetComplaint(ctx context.Context, s *Session, id string) (*db.Complaint, error) {
	var complaint db.Complaint
	if err := c.do(ctx, http.MethodGet, "/complaints/"+id, s, nil, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (c *Client) UpdateComplaint(ctx context.Context, s *Session, id string, patch *db.UpdateComplaintRequest) (*db.Complaint, error) {
	var complaint db.Complaint
	if err := c.do(ctx, http.MethodPut, "/complaints/"+id, s, patch, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (c *Client) UpdateComplaintStatus(ctx context.Context, s *Session, id, status string) (*db.Complaint, error) {
	var complaint db.Complaint
	body := db.UpdateStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPut, "/complaints/"+id+"/status", s, body, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (c *Client) DeleteComplaint(ctx context.Context, s *Session, id string) error {
	return c.do(ctx, http.MethodDelete, "/complaints/"+id, s, nil, nil)
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// do performs a JSON request/response cycle and maps HTTP failures onto
// the shared error taxonomy, so callers can errors.Is on the result. A
// 401 in particular means "session invalid": discard the token and
// re-authenticate.
func (c *Client) do(ctx context.Context, method, path string, s *Session, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var aerr apiError
		_ = json.Unmarshal(raw, &aerr)
		msg := aerr.Error
		if msg == "" {
			msg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return apperr.Wrap(apperr.ErrInvalidArgument, "%s", msg)
		case http.StatusUnauthorized:
			return apperr.Wrap(apperr.ErrUnauthenticated, "%s", msg)
		case http.StatusForbidden:
			return apperr.Wrap(apperr.ErrForbidden, "%s", msg)
		case http.StatusNotFound:
			return apperr.Wrap(apperr.ErrNotFound, "%s", msg)
		case http.StatusConflict:
			return apperr.Wrap(apperr.ErrConflict, "%s", msg)
		default:
			return fmt.Errorf("server error: %s", msg)
		}
	}

	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}
