package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rosec/backend/internal/services"
)

// ScanRequest names a stored exam or carries a template inline.
type ScanRequest struct {
	ExamID   string                 `json:"examId"`
	Template *services.ScanTemplate `json:"template"`
}

type ScanHandler struct {
	scanService *services.ScanService
	examService *services.ExamService
}

func NewScanHandler(scanService *services.ScanService, examService *services.ExamService) *ScanHandler {
	return &ScanHandler{scanService: scanService, examService: examService}
}

// @Summary Scan a sheet
// @Description Forwards the exam template to the scanning device and returns the raw and normalized result.
// @Tags scan
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ScanRequest true "Exam id or inline template"
// @Success 200 {object} services.ScanOutcome
// @Failure 502 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/scan [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tpl services.ScanTemplate
	switch {
	case req.Template != nil:
		prepared, err := services.PrepareScanTemplate(*req.Template)
		if err != nil {
			respondError(c, err)
			return
		}
		tpl = prepared
	case req.ExamID != "":
		id, err := uuid.Parse(req.ExamID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid examId"})
			return
		}
		exam, err := h.examService.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		tpl = services.ScanTemplateFromExam(exam)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "examId or template is required"})
		return
	}

	out, err := h.scanService.Scan(c.Request.Context(), tpl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
