package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/middleware"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/usecase"
)

// ProfileHandler exposes the endpoints operating on the caller's own account.
type ProfileHandler struct {
	users *usecase.UserService
}

// NewProfileHandler constructs the profile endpoint handler.
func NewProfileHandler(users *usecase.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// RegisterRoutes mounts the profile endpoints. All of them require authentication.
func (h *ProfileHandler) RegisterRoutes(rg *gin.RouterGroup, authRequired gin.HandlerFunc) {
	rg.GET("/me", authRequired, h.Me)
	rg.POST("/password/change", authRequired, h.ChangePassword)
}

// Me handles GET /me.
func (h *ProfileHandler) Me(c *gin.Context) {
	caller, ok := middleware.GetAuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), caller.ID)
	if err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "profile lookup failed"},
			ErrorStatus{Sentinel: usecase.ErrUserNotFound, Code: http.StatusNotFound, Message: "user not found"},
		)
		return
	}

	c.JSON(http.StatusOK, NewUserSummary(*user))
}

// ChangePassword handles POST /password/change.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	caller, ok := middleware.GetAuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), caller.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "password change failed"},
			ErrorStatus{Sentinel: usecase.ErrInvalidCredentials, Code: http.StatusUnauthorized, Message: "current password is incorrect"},
			ErrorStatus{Sentinel: usecase.ErrWeakPassword, Code: http.StatusBadRequest, Message: "new password does not meet the security policy"},
			ErrorStatus{Sentinel: usecase.ErrUserNotFound, Code: http.StatusNotFound, Message: "user not found"},
		)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
