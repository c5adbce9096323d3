package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/middleware"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/usecase"
)

// AdminUsersHandler exposes account administration endpoints.
type AdminUsersHandler struct {
	users *usecase.UserService
}

// NewAdminUsersHandler constructs the admin user management handler.
func NewAdminUsersHandler(users *usecase.UserService) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// RegisterRoutes mounts the admin endpoints on the given group. The group is
// expected to carry authentication and admin-role middleware.
func (h *AdminUsersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/users/:id/status", h.UpdateStatus)
}

// UpdateStatus handles PATCH /admin/users/:id/status.
func (h *AdminUsersHandler) UpdateStatus(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user id"))
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	actor, _ := middleware.GetAuthenticatedUser(c)

	if err := h.users.SetActiveStatus(c.Request.Context(), actor, targetID, *req.Active); err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "status update failed"},
			ErrorStatus{Sentinel: usecase.ErrUserNotFound, Code: http.StatusNotFound, Message: "user not found"},
			ErrorStatus{Sentinel: usecase.ErrLastActiveAdmin, Code: http.StatusConflict, Message: "cannot deactivate the last active admin"},
		)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "status updated"})
}
