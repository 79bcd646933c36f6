package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rosec/backend/internal/analytics"
	"github.com/rosec/backend/internal/services"
)

type AnalyticsHandler struct {
	resultService *services.ResultService
}

func NewAnalyticsHandler(resultService *services.ResultService) *AnalyticsHandler {
	return &AnalyticsHandler{resultService: resultService}
}

// @Summary Analytics dashboard
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param period query string false "day, week or month" default(week)
// @Param classId query string false "Class scope"
// @Param subjectId query string false "Subject scope"
// @Success 200 {object} analytics.Dashboard
// @Router /api/v1/analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	period, err := analytics.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.resultService.Dashboard(c.Request.Context(), period, queryAny(c, "classId", "class_id"), queryAny(c, "subjectId", "subject_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Student results
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID as printed on the sheet"
// @Success 200 {object} services.StudentReport
// @Router /api/v1/analytics/students/{studentId} [get]
func (h *AnalyticsHandler) Student(c *gin.Context) {
	report, err := h.resultService.StudentReport(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func queryAny(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}
