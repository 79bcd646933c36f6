package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
	"github.com/rosec/backend/internal/sheet"
	"gorm.io/gorm"
)

type StudentHandler struct {
	db           *gorm.DB
	auditService *services.AuditService
}

func NewStudentHandler(db *gorm.DB, auditService *services.AuditService) *StudentHandler {
	return &StudentHandler{db: db, auditService: auditService}
}

// StudentRequest is bound on create and update. The student number is what
// gets bubbled into the sheet's student id grid, so it is digits only.
type StudentRequest struct {
	StudentNumber string     `json:"student_number" binding:"required,numeric"`
	FirstName     string     `json:"first_name" binding:"required"`
	LastName      string     `json:"last_name" binding:"required"`
	ClassID       *uuid.UUID `json:"class_id"`
}

func (r StudentRequest) validate() error {
	if n := len(r.StudentNumber); n < sheet.MinStudentIDLength || n > sheet.MaxStudentIDLength {
		return &sheet.ValidationError{Field: "student_number", Value: n, Min: sheet.MinStudentIDLength, Max: sheet.MaxStudentIDLength}
	}
	return nil
}

func (h *StudentHandler) List(c *gin.Context) {
	var students []models.Student
	query := h.db.WithContext(c.Request.Context()).Preload("Class").Order("last_name, first_name")

	if classID := c.Query("class_id"); classID != "" {
		query = query.Where("class_id = ?", classID)
	}
	if q := c.Query("q"); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR student_number LIKE ?", like, like, like)
	}

	if err := query.Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, students)
}

func (h *StudentHandler) Create(c *gin.Context) {
	var req StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	student := models.Student{
		StudentNumber: req.StudentNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassID:       req.ClassID,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionCreate, student.ID, nil, studentSnapshot(&student))
	c.JSON(http.StatusCreated, student)
}

func (h *StudentHandler) Get(c *gin.Context) {
	student, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) Update(c *gin.Context) {
	student, ok := h.load(c)
	if !ok {
		return
	}

	var req StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	before := studentSnapshot(student)
	student.StudentNumber = req.StudentNumber
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.ClassID = req.ClassID
	student.Class = nil

	if err := h.db.WithContext(c.Request.Context()).Save(student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionUpdate, student.ID, before, studentSnapshot(student))
	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) Delete(c *gin.Context) {
	student, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, services.ActionDelete, student.ID, studentSnapshot(student), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

func (h *StudentHandler) load(c *gin.Context) (*models.Student, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	var student models.Student
	if err := h.db.WithContext(c.Request.Context()).Preload("Class").First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &student, true
}

func (h *StudentHandler) audit(c *gin.Context, action string, id uuid.UUID, before, after models.JSONB) {
	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       action,
		ResourceType: "student",
		ResourceID:   id,
		Before:       before,
		After:        after,
		IP:           c.ClientIP(),
	})
}

func studentSnapshot(s *models.Student) models.JSONB {
	return models.JSONB{
		"student_number": s.StudentNumber,
		"name":           s.FirstName + " " + s.LastName,
	}
}
