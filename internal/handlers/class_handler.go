package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
	"gorm.io/gorm"
)

type ClassHandler struct {
	db           *gorm.DB
	userService  *services.UserService
	auditService *services.AuditService
}

func NewClassHandler(db *gorm.DB, userService *services.UserService, auditService *services.AuditService) *ClassHandler {
	return &ClassHandler{db: db, userService: userService, auditService: auditService}
}

type ClassRequest struct {
	Name      string     `json:"name" binding:"required"`
	Level     string     `json:"level"`
	TeacherID *uuid.UUID `json:"teacher_id"`
}

func (h *ClassHandler) List(c *gin.Context) {
	var classes []models.Class
	query := h.db.WithContext(c.Request.Context()).Preload("Teacher").Order("name")

	if level := c.Query("level"); level != "" {
		query = query.Where("level = ?", level)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	if err := query.Find(&classes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, classes)
}

func (h *ClassHandler) Create(c *gin.Context) {
	var req ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class := models.Class{Name: req.Name, Level: req.Level, TeacherID: req.TeacherID}
	if err := h.db.WithContext(c.Request.Context()).Create(&class).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionCreate, class.ID, nil, models.JSONB{"name": class.Name, "level": class.Level})
	c.JSON(http.StatusCreated, class)
}

func (h *ClassHandler) Get(c *gin.Context) {
	class, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *ClassHandler) Update(c *gin.Context) {
	class, ok := h.load(c)
	if !ok {
		return
	}

	var req ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	before := models.JSONB{"name": class.Name, "level": class.Level}
	class.Name = req.Name
	class.Level = req.Level
	class.TeacherID = req.TeacherID
	class.Teacher = nil

	if err := h.db.WithContext(c.Request.Context()).Save(class).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionUpdate, class.ID, before, models.JSONB{"name": class.Name, "level": class.Level})
	c.JSON(http.StatusOK, class)
}

func (h *ClassHandler) Delete(c *gin.Context) {
	class, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(class).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionDelete, class.ID, models.JSONB{"name": class.Name}, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}

// AssignTeacher sets the lead teacher of a class.
func (h *ClassHandler) AssignTeacher(c *gin.Context) {
	classID, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class, err := h.userService.AssignTeacherToClass(c.Request.Context(), req.TeacherID, classID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionUpdate, class.ID, nil, models.JSONB{"teacher_id": req.TeacherID.String()})
	c.JSON(http.StatusOK, class)
}

func (h *ClassHandler) GetStudents(c *gin.Context) {
	classID, ok := paramID(c)
	if !ok {
		return
	}

	var students []models.Student
	if err := h.db.WithContext(c.Request.Context()).
		Where("class_id = ?", classID).
		Order("last_name, first_name").
		Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, students)
}

func (h *ClassHandler) GetLevels(c *gin.Context) {
	type LevelResult struct {
		Level string `json:"level"`
	}

	var levels []LevelResult
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Class{}).
		Select("DISTINCT level").
		Where("level <> ''").
		Order("level").
		Scan(&levels).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, levels)
}

func (h *ClassHandler) load(c *gin.Context) (*models.Class, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	var class models.Class
	if err := h.db.WithContext(c.Request.Context()).Preload("Teacher").First(&class, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &class, true
}

func (h *ClassHandler) audit(c *gin.Context, action string, id uuid.UUID, before, after models.JSONB) {
	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       action,
		ResourceType: "class",
		ResourceID:   id,
		Before:       before,
		After:        after,
		IP:           c.ClientIP(),
	})
}
