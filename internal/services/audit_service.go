package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/models"
	"gorm.io/gorm"
)

// Audit actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// AuditEntry describes one change to a portal record.
type AuditEntry struct {
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   uuid.UUID
	Before       models.JSONB
	After        models.JSONB
	IP           string
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record stores an audit entry. Failures are logged, never returned.
func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	if e.ActorID == uuid.Nil {
		return
	}
	log := &models.AuditLog{
		ActorUserID:  e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Before:       e.Before,
		After:        e.After,
		IP:           e.IP,
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		slog.ErrorContext(ctx, "failed to write audit log", "resource", e.ResourceType, "action", e.Action, "error", err)
	}
}

// Activity is an audit entry joined with the actor's name.
type Activity struct {
	models.AuditLog
	UserName string `json:"user_name"`
}

// Recent returns the latest entries, newest first, optionally narrowed to a
// resource type.
func (s *AuditService) Recent(ctx context.Context, resourceType string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	var activities []Activity
	q := s.db.WithContext(ctx).Table("audit_logs").
		Select("audit_logs.*, users.full_name as user_name").
		Joins("LEFT JOIN users ON audit_logs.actor_user_id = users.id").
		Order("audit_logs.timestamp DESC").
		Limit(limit)
	if resourceType != "" {
		q = q.Where("audit_logs.resource_type = ?", resourceType)
	}
	if err := q.Scan(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
