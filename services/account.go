package services

import (
	"context"
	"database/sql"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/db"
)

// AccountService owns the local account records that map external
// identities to roles. Accounts are provisioned lazily on first
// successful authentication and never deleted.
type AccountService struct {
	PG *sql.DB
}

func NewAccountService(pg *sql.DB) *AccountService {
	return &AccountService{PG: pg}
}

const accountColumns = `id, external_id, email, role, created_at, updated_at`

func scanAccount(row *sql.Row) (*db.Account, error) {
	var a db.Account
	err := row.Scan(&a.ID, &a.ExternalID, &a.Email, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrNotFound, "account not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccountService) GetByID(ctx context.Context, id string) (*db.Account, error) {
	row := s.PG.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*db.Account, error) {
	row := s.PG.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE email = $1
	`, email)
	return scanAccount(row)
}

// GetOrCreateByEmail provisions a local account for a verified external
// identity, defaulting the role to "user". The unique constraint on
// email makes concurrent first-logins safe: the losing insert is a
// no-op and both callers read the same row back.
func (s *AccountService) GetOrCreateByEmail(ctx context.Context, externalID, email string) (*db.Account, error) {
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO accounts (external_id, email, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, externalID, email, db.RoleUser)
	if err != nil {
		return nil, err
	}

	return s.GetByEmail(ctx, email)
}
