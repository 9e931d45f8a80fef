package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/middleware"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=255"`
}

type AssignRoleRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// RolesHandler serves the admin-only role endpoints
type RolesHandler struct {
	users     *users.Service
	gate      *middleware.Gate
	rateLimit gin.HandlerFunc
}

func NewRolesHandler(u *users.Service, gate *middleware.Gate, rateLimit gin.HandlerFunc) *RolesHandler {
	return &RolesHandler{users: u, gate: gate, rateLimit: rateLimit}
}

func (h *RolesHandler) Register(rg *gin.RouterGroup) {
	r := rg.Group("/roles", h.gate.RequireAccess(middleware.Admin), h.rateLimit)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.POST("/assign", h.Assign)
}

func (h *RolesHandler) List(c *gin.Context) {
	roles, err := h.users.Roles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, roles)
}

func (h *RolesHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidInput(err))
		return
	}
	role, err := h.users.CreateRole(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateRole) {
			response.Error(c, apperrors.Validation("Role already exists."))
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, role)
}

// Assign grants a role; the user's next token carries it.
func (h *RolesHandler) Assign(c *gin.Context) {
	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidInput(err))
		return
	}
	if err := h.users.AssignRole(c.Request.Context(), req.UserID, req.Role); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			response.Error(c, apperrors.NotFound("User or role not found."))
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"user_id": req.UserID, "role": req.Role})
}
