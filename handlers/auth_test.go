package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/authz"
	"github.com/gripehq/gripe/db"
	"github.com/gripehq/gripe/services"
)

// MockIdentityProvider stands in for the external auth service.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*services.ExternalIdentity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExternalIdentity), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*services.ExternalIdentity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExternalIdentity), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

var accountCols = []string{"id", "external_id", "email", "role", "created_at", "updated_at"}

func newAuthTestHandler(t *testing.T) (*AuthHandler, *MockIdentityProvider, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, mockDB, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	provider := new(MockIdentityProvider)
	handler := NewAuthHandler(
		provider,
		services.NewAccountService(conn),
		services.NewTokenService("test-secret", time.Hour),
		services.NewSessionService(nil, time.Hour),
	)
	return handler, provider, mockDB
}

func jsonRequest(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("RegistersAndIssuesToken", func(t *testing.T) {
		handler, provider, mockDB := newAuthTestHandler(t)
		now := time.Now()

		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("new@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols))
		provider.On("SignUp", mock.Anything, "new@example.com", "secret123").
			Return(&services.ExternalIdentity{ID: "ext-1", Email: "new@example.com", AccessToken: "upstream-token"}, nil)
		mockDB.ExpectExec("INSERT INTO accounts").
			WithArgs("ext-1", "new@example.com", db.RoleUser).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("new@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acct-1", "ext-1", "new@example.com", "user", now, now))

		w, c := jsonRequest(t, "POST", "/auth/signup", db.SignupRequest{Email: "new@example.com", Password: "secret123"})
		handler.Signup(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp db.AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "new@example.com", resp.User.Email)
		assert.Equal(t, db.RoleUser, resp.User.Role)
		assert.NotEmpty(t, resp.Token)

		claims, err := handler.Tokens.Verify(resp.Token)
		assert.NoError(t, err)
		assert.Equal(t, "acct-1", claims.Subject)

		provider.AssertExpectations(t)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("ExistingAccountConflicts", func(t *testing.T) {
		handler, provider, mockDB := newAuthTestHandler(t)
		now := time.Now()

		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("taken@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acct-1", "ext-1", "taken@example.com", "user", now, now))

		w, c := jsonRequest(t, "POST", "/auth/signup", db.SignupRequest{Email: "taken@example.com", Password: "secret123"})
		handler.Signup(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		// The provider is never reached on a local duplicate.
		provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("ProviderConflict", func(t *testing.T) {
		handler, provider, mockDB := newAuthTestHandler(t)

		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("taken@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols))
		provider.On("SignUp", mock.Anything, "taken@example.com", "secret123").
			Return(nil, apperr.Wrap(apperr.ErrConflict, "user already exists"))

		w, c := jsonRequest(t, "POST", "/auth/signup", db.SignupRequest{Email: "taken@example.com", Password: "secret123"})
		handler.Signup(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		provider.AssertExpectations(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		handler, _, _ := newAuthTestHandler(t)

		w, c := jsonRequest(t, "POST", "/auth/signup", map[string]string{"email": "new@example.com"})
		handler.Signup(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("LazyProvisionsOnFirstLogin", func(t *testing.T) {
		handler, provider, mockDB := newAuthTestHandler(t)
		now := time.Now()

		provider.On("SignIn", mock.Anything, "first@example.com", "secret123").
			Return(&services.ExternalIdentity{ID: "ext-9", Email: "first@example.com", AccessToken: "upstream-token"}, nil)
		mockDB.ExpectExec("INSERT INTO accounts").
			WithArgs("ext-9", "first@example.com", db.RoleUser).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("first@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acct-9", "ext-9", "first@example.com", "user", now, now))

		w, c := jsonRequest(t, "POST", "/auth/login", db.LoginRequest{Email: "first@example.com", Password: "secret123"})
		handler.Login(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp db.AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "acct-9", resp.User.ID)
		assert.NotEmpty(t, resp.Token)

		provider.AssertExpectations(t)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("TokenCarriesStoredRole", func(t *testing.T) {
		handler, provider, mockDB := newAuthTestHandler(t)
		now := time.Now()

		provider.On("SignIn", mock.Anything, "admin@example.com", "secret123").
			Return(&services.ExternalIdentity{ID: "ext-2", Email: "admin@example.com"}, nil)
		mockDB.ExpectExec("INSERT INTO accounts").
			WithArgs("ext-2", "admin@example.com", db.RoleUser).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acct-2", "ext-2", "admin@example.com", "admin", now, now))

		w, c := jsonRequest(t, "POST", "/auth/login", db.LoginRequest{Email: "admin@example.com", Password: "secret123"})
		handler.Login(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp db.AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		claims, err := handler.Tokens.Verify(resp.Token)
		assert.NoError(t, err)
		assert.Equal(t, db.RoleAdmin, claims.Role)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		handler, provider, _ := newAuthTestHandler(t)

		provider.On("SignIn", mock.Anything, "user@example.com", "wrong").
			Return(nil, apperr.Wrap(apperr.ErrUnauthenticated, "invalid login credentials"))

		w, c := jsonRequest(t, "POST", "/auth/login", db.LoginRequest{Email: "user@example.com", Password: "wrong"})
		handler.Login(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		provider.AssertExpectations(t)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	handler, _, _ := newAuthTestHandler(t)

	w, c := jsonRequest(t, "POST", "/auth/logout", nil)
	c.Set(contextTokenID, "jti-1")
	handler.Logout(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logged out")
}

func TestAuthHandler_Profile(t *testing.T) {
	handler, _, mockDB := newAuthTestHandler(t)
	now := time.Now()

	t.Run("ReturnsCallerAccount", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE id").WithArgs("acct-1").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acct-1", "ext-1", "user@example.com", "user", now, now))

		w, c := jsonRequest(t, "GET", "/auth/profile", nil)
		c.Set(authz.ContextUserID, "acct-1")
		c.Set(authz.ContextUserRole, "user")
		handler.Profile(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var account db.Account
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
		assert.Equal(t, "user@example.com", account.Email)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		w, c := jsonRequest(t, "GET", "/auth/profile", nil)
		handler.Profile(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}
