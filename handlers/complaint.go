package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gripehq/gripe/authz"
	"github.com/gripehq/gripe/db"
	"github.com/gripehq/gripe/services"
)

// ComplaintHandler is the thin HTTP surface over the complaint store.
// Every resource-scoped operation fetches the record first (existence
// before ownership) and then consults the authorization policy.
type ComplaintHandler struct {
	Complaints *services.ComplaintService
}

func NewComplaintHandler(complaints *services.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{Complaints: complaints}
}

// checkAccess loads the complaint and evaluates the policy for action.
// Writes the error response itself and returns nil when the caller may
// not proceed.
func (h *ComplaintHandler) checkAccess(c *gin.Context, caller authz.Caller, action authz.Action) *db.Complaint {
	complaint, err := h.Complaints.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil
	}

	resource := &authz.Resource{OwnerID: complaint.OwnerID, Status: complaint.Status}
	if !authz.Can(caller, action, resource) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to access this complaint"})
		return nil
	}
	return complaint
}

// ListComplaints handles GET /complaints. Admins see the full set,
// everyone else only their own, newest first.
func (h *ComplaintHandler) ListComplaints(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	complaints, err := h.Complaints.List(c.Request.Context(), authz.ScopeToCaller(caller))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaints)
}

// CreateComplaint handles POST /complaints. Owner is forced to the
// caller and status to Pending.
func (h *ComplaintHandler) CreateComplaint(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok || !authz.Can(caller, authz.ActionCreate, nil) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req db.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide title, description, and category"})
		return
	}

	complaint, err := h.Complaints.Create(c.Request.Context(), &req, caller.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, complaint)
}

// GetComplaint handles GET /complaints/:id
func (h *ComplaintHandler) GetComplaint(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	complaint := h.checkAccess(c, caller, authz.ActionReadOne)
	if complaint == nil {
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// UpdateComplaint handles PUT /complaints/:id. Partial update: omitted
// fields are left unchanged. A status value in the patch is honored for
// admins and dropped for everyone else.
func (h *ComplaintHandler) UpdateComplaint(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var patch db.UpdateComplaintRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if h.checkAccess(c, caller, authz.ActionUpdateFields) == nil {
		return
	}

	if patch.Status != nil && !authz.CanSetStatus(caller) {
		patch.Status = nil
	}

	complaint, err := h.Complaints.Update(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// UpdateComplaintStatus handles PUT /complaints/:id/status (admin only).
func (h *ComplaintHandler) UpdateComplaintStatus(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req db.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a status"})
		return
	}
	if !db.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be Pending, In Progress, or Resolved"})
		return
	}

	if h.checkAccess(c, caller, authz.ActionUpdateStatus) == nil {
		return
	}

	complaint, err := h.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// DeleteComplaint handles DELETE /complaints/:id. Deletion is permanent.
func (h *ComplaintHandler) DeleteComplaint(c *gin.Context) {
	caller, ok := authz.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if h.checkAccess(c, caller, authz.ActionDelete) == nil {
		return
	}

	if err := h.Complaints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Complaint removed"})
}
