package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
)

type UserHandler struct {
	userService  *services.UserService
	auditService *services.AuditService
}

func NewUserHandler(userService *services.UserService, auditService *services.AuditService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		auditService: auditService,
	}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		FullName string `json:"full_name" binding:"required"`
		Role     string `json:"role" binding:"required,oneof=admin teacher"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req.Email, req.FullName, req.Role, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionCreate,
		ResourceType: "user",
		ResourceID:   user.ID,
		After:        models.JSONB{"name": user.FullName, "role": user.Role},
		IP:           c.ClientIP(),
	})

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Email    string `json:"email" binding:"omitempty,email"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		IsActive *bool  `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, services.UserUpdate{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionUpdate,
		ResourceType: "user",
		ResourceID:   user.ID,
		After:        models.JSONB{"name": user.FullName, "role": user.Role, "is_active": user.IsActive},
		IP:           c.ClientIP(),
	})

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if id == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	user, err := h.userService.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionDelete,
		ResourceType: "user",
		ResourceID:   user.ID,
		Before:       models.JSONB{"name": user.FullName, "role": user.Role},
		IP:           c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
