package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rosec/backend/internal/services"
	"github.com/rosec/backend/internal/sheet"
)

func currentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// paramID parses the :id path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto status codes.
func respondError(c *gin.Context, err error) {
	var ve *sheet.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field, "min": ve.Min, "max": ve.Max})
	case services.IsInputError(err), errors.Is(err, services.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrClassNotFound),
		errors.Is(err, services.ErrTeacherNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrScannerNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scanner is not configured"})
	case errors.Is(err, services.ErrScannerUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		var se *services.ScannerError
		if errors.As(err, &se) {
			c.JSON(http.StatusBadGateway, gin.H{"error": se.Error()})
			return
		}
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
