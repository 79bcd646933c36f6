package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
	"github.com/rosec/backend/internal/sheet"
)

type ExamHandler struct {
	examService  *services.ExamService
	auditService *services.AuditService
}

func NewExamHandler(examService *services.ExamService, auditService *services.AuditService) *ExamHandler {
	return &ExamHandler{examService: examService, auditService: auditService}
}

// AnswerKeyRequest replaces the whole answer key.
type AnswerKeyRequest struct {
	Answers []sheet.AnswerItem `json:"answers"`
}

// @Summary List exams
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param class_id query string false "Class filter"
// @Param subject_id query string false "Subject filter"
// @Success 200 {array} models.ExamTemplate
// @Router /api/v1/exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context(), services.ExamFilter{
		ClassID:   c.Query("class_id"),
		SubjectID: c.Query("subject_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ExamInput true "Exam template"
// @Success 201 {object} models.ExamTemplate
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req services.ExamInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionCreate, exam, nil, examSnapshot(exam))
	c.JSON(http.StatusCreated, exam)
}

func (h *ExamHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	exam, err := h.examService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// @Summary Update exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param request body services.ExamInput true "Exam template"
// @Success 200 {object} models.ExamTemplate
// @Router /api/v1/exams/{id} [put]
func (h *ExamHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req services.ExamInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionUpdate, exam, nil, examSnapshot(exam))
	c.JSON(http.StatusOK, exam)
}

func (h *ExamHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionDelete, exam, examSnapshot(exam), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Exam deleted"})
}

// @Summary Save answer key
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param request body AnswerKeyRequest true "Selections, later entries win"
// @Success 200 {object} models.ExamTemplate
// @Router /api/v1/exams/{id}/answer-key [put]
func (h *ExamHandler) SaveAnswerKey(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req AnswerKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.examService.SaveAnswerKey(c.Request.Context(), id, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionUpdate, exam, nil, models.JSONB{"answer_key_size": len(exam.AnswerKey)})
	c.JSON(http.StatusOK, exam)
}

// @Summary Toggle one answer
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param request body sheet.AnswerItem true "Bubble clicked"
// @Success 200 {object} models.ExamTemplate
// @Router /api/v1/exams/{id}/answer-key/toggle [post]
func (h *ExamHandler) ToggleAnswer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req sheet.AnswerItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.examService.ToggleAnswer(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

func (h *ExamHandler) ClearAnswerKey(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	exam, err := h.examService.ClearAnswerKey(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, services.ActionUpdate, exam, nil, models.JSONB{"answer_key_size": 0})
	c.JSON(http.StatusOK, exam)
}

// @Summary Render answer sheet
// @Description Lays out the printable sheet of a stored exam with its answer key marked.
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Success 200 {object} sheet.Document
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/exams/{id}/sheet [get]
func (h *ExamHandler) Sheet(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	doc, err := h.examService.RenderSheet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *ExamHandler) audit(c *gin.Context, action string, exam *models.ExamTemplate, before, after models.JSONB) {
	h.auditService.Record(c.Request.Context(), services.AuditEntry{
		ActorID:      currentUserID(c),
		Action:       action,
		ResourceType: "exam",
		ResourceID:   exam.ID,
		Before:       before,
		After:        after,
		IP:           c.ClientIP(),
	})
}

func examSnapshot(e *models.ExamTemplate) models.JSONB {
	return models.JSONB{"title": e.Title, "total_questions": e.TotalQuestions, "choice_count": e.ChoiceCount}
}

