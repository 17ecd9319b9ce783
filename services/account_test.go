package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/db"
)

var accountCols = []string{"id", "external_id", "email", "role", "created_at", "updated_at"}

func TestAccountService_GetByID(t *testing.T) {
	conn, mockDB, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	defer conn.Close()

	svc := NewAccountService(conn)
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows(accountCols).
			AddRow("acct-1", "ext-1", "user@example.com", "user", now, now)
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE id").WithArgs("acct-1").WillReturnRows(rows)

		account, err := svc.GetByID(context.Background(), "acct-1")
		assert.NoError(t, err)
		assert.Equal(t, "user@example.com", account.Email)
		assert.Equal(t, "user", account.Role)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE id").WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(accountCols))

		_, err := svc.GetByID(context.Background(), "missing")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAccountService_GetOrCreateByEmail(t *testing.T) {
	conn, mockDB, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	defer conn.Close()

	svc := NewAccountService(conn)
	now := time.Now()

	t.Run("ProvisionsNewAccount", func(t *testing.T) {
		mockDB.ExpectExec("INSERT INTO accounts").
			WithArgs("ext-1", "new@example.com", db.RoleUser).
			WillReturnResult(sqlmock.NewResult(0, 1))
		rows := sqlmock.NewRows(accountCols).
			AddRow("acct-2", "ext-1", "new@example.com", "user", now, now)
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("new@example.com").WillReturnRows(rows)

		account, err := svc.GetOrCreateByEmail(context.Background(), "ext-1", "new@example.com")
		assert.NoError(t, err)
		assert.Equal(t, "acct-2", account.ID)
		assert.Equal(t, db.RoleUser, account.Role)
	})

	t.Run("ExistingAccountKeepsRole", func(t *testing.T) {
		// Conflict on email is a no-op insert; the existing row wins,
		// admin role included.
		mockDB.ExpectExec("INSERT INTO accounts").
			WithArgs("ext-2", "admin@example.com", db.RoleUser).
			WillReturnResult(sqlmock.NewResult(0, 0))
		rows := sqlmock.NewRows(accountCols).
			AddRow("acct-3", "ext-2", "admin@example.com", "admin", now, now)
		mockDB.ExpectQuery("SELECT .* FROM accounts WHERE email").WithArgs("admin@example.com").WillReturnRows(rows)

		account, err := svc.GetOrCreateByEmail(context.Background(), "ext-2", "admin@example.com")
		assert.NoError(t, err)
		assert.Equal(t, db.RoleAdmin, account.Role)
		assert.True(t, account.IsAdmin())
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}
