package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/sheet"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// JSONB custom type for JSON fields
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}
	return scanJSON(value, j)
}

// PointsRanges is stored as a JSON array, in authoring order.
type PointsRanges []sheet.PointsRange

func (p PointsRanges) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

func (p *PointsRanges) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	return scanJSON(value, p)
}

// AnswerKey is stored as a JSON array ordered by question number.
type AnswerKey []sheet.AnswerItem

func (a AnswerKey) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *AnswerKey) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	return scanJSON(value, a)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Base model with UUID
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User is an admin or teacher account.
type User struct {
	BaseModel
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Role         string `gorm:"type:varchar(20);not null" json:"role"`
	FullName     string `gorm:"type:varchar(255);not null" json:"full_name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}

// Class is a group of students, optionally led by a teacher.
type Class struct {
	BaseModel
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	Level     string     `gorm:"type:varchar(50)" json:"level"`
	TeacherID *uuid.UUID `gorm:"type:char(36);index" json:"teacher_id"`
	Teacher   *User      `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

type Subject struct {
	BaseModel
	Name string `gorm:"type:varchar(255);not null" json:"name"`
	Code string `gorm:"type:varchar(50);uniqueIndex" json:"code"`
}

type Student struct {
	BaseModel
	StudentNumber string     `gorm:"type:varchar(15);uniqueIndex;not null" json:"student_number"`
	FirstName     string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string     `gorm:"type:varchar(100);not null" json:"last_name"`
	ClassID       *uuid.UUID `gorm:"type:char(36);index" json:"class_id"`
	Class         *Class     `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}

// ExamTemplate is an authored exam and the layout of its answer sheet.
type ExamTemplate struct {
	BaseModel
	Title              string       `gorm:"type:varchar(255);not null" json:"title"`
	TotalQuestions     int          `gorm:"not null" json:"total_questions"`
	ChoiceCount        int          `gorm:"not null;default:4" json:"choice_count"`
	StudentIDLength    int          `gorm:"not null;default:8" json:"student_id_length"`
	SubjectIDLength    int          `gorm:"not null;default:0" json:"subject_id_length"`
	QuestionsPerColumn int          `gorm:"default:0" json:"questions_per_column"`
	PointsRanges       PointsRanges `gorm:"type:text" json:"points_ranges"`
	AnswerKey          AnswerKey    `gorm:"type:text" json:"answer_key"`
	SubjectID          *uuid.UUID   `gorm:"type:char(36);index" json:"subject_id"`
	ClassID            *uuid.UUID   `gorm:"type:char(36);index" json:"class_id"`
	CreatedBy          uuid.UUID    `gorm:"type:char(36);not null" json:"created_by"`
	Subject            *Subject     `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	Class              *Class       `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}

// SheetTemplate returns the part of the exam the answer sheet is drawn from.
func (e *ExamTemplate) SheetTemplate() sheet.Template {
	return sheet.Template{
		Title:           e.Title,
		TotalQuestions:  e.TotalQuestions,
		ChoiceCount:     e.ChoiceCount,
		StudentIDLength: e.StudentIDLength,
		SubjectIDLength: e.SubjectIDLength,
		PointsRanges:    e.PointsRanges,
	}
}

// AuditLog tracks all data changes
type AuditLog struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ActorUserID  uuid.UUID `gorm:"type:char(36);index" json:"actor_user_id"`
	Action       string    `gorm:"type:varchar(50);not null" json:"action"`
	ResourceType string    `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   uuid.UUID `gorm:"type:char(36);index" json:"resource_id"`
	Before       JSONB     `gorm:"type:text" json:"before"`
	After        JSONB     `gorm:"type:text" json:"after"`
	Timestamp    time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	IP           string    `gorm:"type:varchar(45)" json:"ip"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores refresh tokens for revocation
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(500);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked   bool      `gorm:"default:false;index" json:"revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
