package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
	"gorm.io/gorm"
)

type SubjectHandler struct {
	db           *gorm.DB
	auditService *services.AuditService
}

func NewSubjectHandler(db *gorm.DB, auditService *services.AuditService) *SubjectHandler {
	return &SubjectHandler{db: db, auditService: auditService}
}

type SubjectRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required,max=50"`
}

func (h *SubjectHandler) List(c *gin.Context) {
	var subjects []models.Subject
	query := h.db.WithContext(c.Request.Context()).Order("name")
	if q := c.Query("q"); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if err := query.Find(&subjects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *SubjectHandler) Create(c *gin.Context) {
	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject := models.Subject{Name: req.Name, Code: strings.ToUpper(req.Code)}
	if err := h.db.WithContext(c.Request.Context()).Create(&subject).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionCreate,
		ResourceType: "subject",
		ResourceID:   subject.ID,
		After:        models.JSONB{"name": subject.Name, "code": subject.Code},
		IP:           c.ClientIP(),
	})
	c.JSON(http.StatusCreated, subject)
}

func (h *SubjectHandler) Get(c *gin.Context) {
	subject, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, subject)
}

func (h *SubjectHandler) Update(c *gin.Context) {
	subject, ok := h.load(c)
	if !ok {
		return
	}

	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	before := models.JSONB{"name": subject.Name, "code": subject.Code}
	subject.Name = req.Name
	subject.Code = strings.ToUpper(req.Code)
	if err := h.db.WithContext(c.Request.Context()).Save(subject).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionUpdate,
		ResourceType: "subject",
		ResourceID:   subject.ID,
		Before:       before,
		After:        models.JSONB{"name": subject.Name, "code": subject.Code},
		IP:           c.ClientIP(),
	})
	c.JSON(http.StatusOK, subject)
}

func (h *SubjectHandler) Delete(c *gin.Context) {
	subject, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(subject).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       services.ActionDelete,
		ResourceType: "subject",
		ResourceID:   subject.ID,
		Before:       models.JSONB{"name": subject.Name, "code": subject.Code},
		IP:           c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "Subject deleted"})
}

func (h *SubjectHandler) load(c *gin.Context) (*models.Subject, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	var subject models.Subject
	if err := h.db.WithContext(c.Request.Context()).First(&subject, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &subject, true
}
