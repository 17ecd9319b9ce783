// Package authz holds the complaint authorization policy: a pure
// decision function over (caller, action, resource) with no I/O. Every
// handler consults it before touching the store. Existence checks are
// the handler's job and happen before the policy is evaluated, since
// ownership cannot be tested without the resource.
package authz

import "github.com/gripehq/gripe/db"

// Action enumerates the operations the policy decides on.
type Action string

const (
	ActionCreate       Action = "create"
	ActionReadOne      Action = "read_one"
	ActionReadAll      Action = "read_all"
	ActionUpdateFields Action = "update_fields"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
)

// Caller is the authenticated account making the request, as resolved
// from its session token.
type Caller struct {
	AccountID string
	Role      string
}

// Resource carries the complaint attributes the policy needs. It is nil
// for actions that are not resource-scoped (Create, ReadAll).
type Resource struct {
	OwnerID string
	Status  string
}

// Can reports whether caller may perform action on resource.
//
// Decision table:
//   - Create: any authenticated account (owner is forced to the caller,
//     status forced to Pending by the store).
//   - ReadAll: always permitted; result scoping is ScopeToCaller's job.
//   - ReadOne, UpdateFields, Delete: admin, or the resource owner.
//   - UpdateStatus: admin only, regardless of ownership.
func Can(caller Caller, action Action, resource *Resource) bool {
	switch action {
	case ActionCreate, ActionReadAll:
		return caller.AccountID != ""
	case ActionReadOne, ActionUpdateFields, ActionDelete:
		if resource == nil {
			return false
		}
		return caller.Role == db.RoleAdmin || resource.OwnerID == caller.AccountID
	case ActionUpdateStatus:
		return caller.Role == db.RoleAdmin
	default:
		return false
	}
}

// CanSetStatus reports whether caller may change a complaint's status.
// Used by UpdateFields to decide if a status value in the patch is
// honored (admin) or rejected (everyone else).
func CanSetStatus(caller Caller) bool {
	return caller.Role == db.RoleAdmin
}

// ScopeToCaller implements the ReadAll result scoping: admins see the
// full set, everyone else only their own complaints. Returns the owner
// id to filter by, or "" for no filter.
func ScopeToCaller(caller Caller) string {
	if caller.Role == db.RoleAdmin {
		return ""
	}
	return caller.AccountID
}
