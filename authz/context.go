package authz

import "github.com/gin-gonic/gin"

// Context keys set by the auth middleware.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// CallerFromContext extracts the authenticated caller that the auth
// middleware stored in the gin context. The second return value is
// false when no authenticated caller is present.
func CallerFromContext(c *gin.Context) (Caller, bool) {
	id := c.GetString(ContextUserID)
	if id == "" {
		return Caller{}, false
	}
	return Caller{
		AccountID: id,
		Role:      c.GetString(ContextUserRole),
	}, true
}
