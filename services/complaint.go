package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/db"
)

// ComplaintService owns complaint persistence. It enforces the write-time
// attribute constraints but not authorization - callers gate access
// through the authz policy before touching the store.
type ComplaintService struct {
	PG *sql.DB
}

func NewComplaintService(pg *sql.DB) *ComplaintService {
	return &ComplaintService{PG: pg}
}

const complaintColumns = `c.id, c.title, c.description, c.category, c.status, c.owner_id, c.created_at, c.updated_at, a.email`

func scanComplaint(scanner interface {
	Scan(dest ...interface{}) error
}) (*db.Complaint, error) {
	var cp db.Complaint
	err := scanner.Scan(&cp.ID, &cp.Title, &cp.Description, &cp.Category, &cp.Status,
		&cp.OwnerID, &cp.CreatedAt, &cp.UpdatedAt, &cp.OwnerEmail)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrNotFound, "complaint not found")
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Create persists a new complaint. Owner is forced to ownerID and status
// to Pending regardless of anything the caller sent.
func (s *ComplaintService) Create(ctx context.Context, req *db.CreateComplaintRequest, ownerID string) (*db.Complaint, error) {
	if reason := db.ValidateComplaintFields(req.Title, req.Description, req.Category); reason != "" {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "%s", reason)
	}

	var id string
	err := s.PG.QueryRowContext(ctx, `
		INSERT INTO complaints (title, description, category, status, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.Title, req.Description, req.Category, db.StatusPending, ownerID).Scan(&id)
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

func (s *ComplaintService) GetByID(ctx context.Context, id string) (*db.Complaint, error) {
	row := s.PG.QueryRowContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c
		LEFT JOIN accounts a ON c.owner_id = a.id
		WHERE c.id = $1
	`, id)
	return scanComplaint(row)
}

// List returns complaints newest-first. An empty ownerID returns the
// full set (admin scope); otherwise only that owner's complaints.
func (s *ComplaintService) List(ctx context.Context, ownerID string) ([]db.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints c
		LEFT JOIN accounts a ON c.owner_id = a.id`
	args := []interface{}{}
	if ownerID != "" {
		query += ` WHERE c.owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.PG.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	complaints := []db.Complaint{}
	for rows.Next() {
		cp, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, *cp)
	}
	return complaints, rows.Err()
}

// Update applies a partial patch to a single record in one atomic
// UPDATE: omitted fields keep their current value via COALESCE, and
// updated_at always advances. Field values are validated against the
// same constraints as creation.
func (s *ComplaintService) Update(ctx context.Context, id string, patch *db.UpdateComplaintRequest) (*db.Complaint, error) {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperr.Wrap(apperr.ErrInvalidArgument, "title is required")
		}
		if utf8.RuneCountInString(*patch.Title) > db.MaxTitleLength {
			return nil, apperr.Wrap(apperr.ErrInvalidArgument, "title cannot exceed 100 characters")
		}
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "description is required")
	}
	if patch.Category != nil && !db.ValidCategory(*patch.Category) {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "category must be one of: Technical, Billing, Service, Product, Other")
	}
	if patch.Status != nil && !db.ValidStatus(*patch.Status) {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "status must be one of: Pending, In Progress, Resolved")
	}

	result, err := s.PG.ExecContext(ctx, `
		UPDATE complaints SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			status = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $1
	`, id, patch.Title, patch.Description, patch.Category, patch.Status)
	if err != nil {
		return nil, err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.Wrap(apperr.ErrNotFound, "complaint not found")
	}

	return s.GetByID(ctx, id)
}

// UpdateStatus transitions the lifecycle status. Any of the three states
// is reachable from any other; the admin-only gate lives in the policy,
// not here.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id, status string) (*db.Complaint, error) {
	if !db.ValidStatus(status) {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "status must be one of: Pending, In Progress, Resolved")
	}
	return s.Update(ctx, id, &db.UpdateComplaintRequest{Status: &status})
}

// Delete removes a complaint permanently. No soft-delete.
func (s *ComplaintService) Delete(ctx context.Context, id string) error {
	result, err := s.PG.ExecContext(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "complaint not found")
	}
	return nil
}
