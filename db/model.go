package db

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ===========================
// ACCOUNT MODELS
// ===========================

// Account roles. Role is never self-assigned; every account is created
// as "user" and admins are provisioned out of band.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the local identity record bound to an external identity.
type Account struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Email      string    `json:"email"`
	Role       string    `json:"role"` // user, admin
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ===========================
// COMPLAINT MODELS
// ===========================

// Complaint statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// Complaint categories.
const (
	CategoryTechnical = "Technical"
	CategoryBilling   = "Billing"
	CategoryService   = "Service"
	CategoryProduct   = "Product"
	CategoryOther     = "Other"
)

// MaxTitleLength caps complaint titles at write time.
const MaxTitleLength = 100

// Complaint is the sole business resource: a user-submitted issue with
// a lifecycle status. OwnerID is set at creation and never reassigned.
type Complaint struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // Technical, Billing, Service, Product, Other
	Status      string    `json:"status"`   // Pending, In Progress, Resolved
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Populated via JOIN for API responses
	OwnerEmail string `json:"owner_email,omitempty"`
}

// Complaint request models

type CreateComplaintRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
}

// UpdateComplaintRequest is a partial patch: nil fields are left
// unchanged. Status is honored only for admin callers.
type UpdateComplaintRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Auth request/response models

type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Message string  `json:"message,omitempty"`
	User    Account `json:"user"`
	Token   string  `json:"token"`
}

// ===========================
// VALIDATION
// ===========================

// ValidStatus reports whether s is one of the three complaint statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// ValidCategory reports whether c is in the fixed category set.
func ValidCategory(c string) bool {
	switch c {
	case CategoryTechnical, CategoryBilling, CategoryService, CategoryProduct, CategoryOther:
		return true
	}
	return false
}

// ValidateComplaintFields checks the attribute constraints enforced at
// write time. Returns a human-readable reason, or "" when valid.
func ValidateComplaintFields(title, description, category string) string {
	if strings.TrimSpace(title) == "" {
		return "title is required"
	}
	// Characters, not bytes: VARCHAR(100) counts characters.
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "title cannot exceed 100 characters"
	}
	if strings.TrimSpace(description) == "" {
		return "description is required"
	}
	if !ValidCategory(category) {
		return "category must be one of: Technical, Billing, Service, Product, Other"
	}
	return ""
}
