package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rosec/backend/internal/services"
	"github.com/rosec/backend/internal/sheet"
)

// SheetPreviewRequest renders an exam that has not been saved yet.
type SheetPreviewRequest struct {
	services.ExamInput
	Subject   string             `json:"subject"`
	Class     string             `json:"class"`
	AnswerKey []sheet.AnswerItem `json:"answer_key"`
}

type SheetHandler struct{}

func NewSheetHandler() *SheetHandler {
	return &SheetHandler{}
}

// @Summary Preview answer sheet
// @Tags sheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SheetPreviewRequest true "Unsaved template"
// @Success 200 {object} sheet.Document
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/sheets/preview [post]
func (h *SheetHandler) Preview(c *gin.Context) {
	var req SheetPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t := req.Template()
	if err := services.ValidateTemplate(t); err != nil {
		respondError(c, err)
		return
	}

	doc, err := services.RenderSheet(t, sheet.RenderOptions{
		Subject:   req.Subject,
		Class:     req.Class,
		AnswerKey: sheet.LoadAnswerKey(req.AnswerKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
