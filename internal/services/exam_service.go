package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/metrics"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/sheet"
	"gorm.io/gorm"
)

const (
	DefaultChoiceCount     = 4
	DefaultStudentIDLength = 8
)

var ErrExamNotFound = errors.New("exam not found")

// InputError reports an exam field that cannot be stored.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// IsInputError reports whether err should be answered as a bad request.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie) || sheet.IsValidationError(err)
}

// ExamInput is the authored part of an exam template.
type ExamInput struct {
	Title              string              `json:"title" binding:"required"`
	TotalQuestions     int                 `json:"total_questions" binding:"required"`
	ChoiceCount        int                 `json:"choice_count"`
	StudentIDLength    *int                `json:"student_id_length"`
	SubjectIDLength    int                 `json:"subject_id_length"`
	QuestionsPerColumn int                 `json:"questions_per_column"`
	PointsRanges       []sheet.PointsRange `json:"points_ranges"`
	SubjectID          *uuid.UUID          `json:"subject_id"`
	ClassID            *uuid.UUID          `json:"class_id"`
}

// Template fills defaults and returns the sheet template described by in.
func (in ExamInput) Template() sheet.Template {
	t := sheet.Template{
		Title:           in.Title,
		TotalQuestions:  in.TotalQuestions,
		ChoiceCount:     in.ChoiceCount,
		StudentIDLength: DefaultStudentIDLength,
		SubjectIDLength: in.SubjectIDLength,
		PointsRanges:    in.PointsRanges,
	}
	if t.ChoiceCount == 0 {
		t.ChoiceCount = DefaultChoiceCount
	}
	if in.StudentIDLength != nil {
		t.StudentIDLength = *in.StudentIDLength
	}
	return t
}

// ValidateTemplate checks everything a stored exam must satisfy. ID length
// problems come back as *sheet.ValidationError, the rest as *InputError.
func ValidateTemplate(t sheet.Template) error {
	if t.Title == "" {
		return &InputError{Field: "title", Message: "is required"}
	}
	if t.TotalQuestions < 1 {
		return &InputError{Field: "total_questions", Message: "must be at least 1"}
	}
	if t.ChoiceCount < 1 || t.ChoiceCount > sheet.MaxChoiceCount {
		return &InputError{Field: "choice_count", Message: fmt.Sprintf("must be between 1 and %d", sheet.MaxChoiceCount)}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	for i, r := range t.PointsRanges {
		if r.Start < 1 || r.End < r.Start {
			return &InputError{Field: fmt.Sprintf("points_ranges[%d]", i), Message: "must satisfy 1 <= start <= end"}
		}
		if r.Points <= 0 {
			return &InputError{Field: fmt.Sprintf("points_ranges[%d].points", i), Message: "must be positive"}
		}
	}
	return nil
}

// ExamFilter narrows exam listings.
type ExamFilter struct {
	ClassID   string
	SubjectID string
}

type ExamService struct {
	db *gorm.DB
}

func NewExamService(db *gorm.DB) *ExamService {
	return &ExamService{db: db}
}

func (s *ExamService) List(ctx context.Context, f ExamFilter) ([]models.ExamTemplate, error) {
	var exams []models.ExamTemplate
	q := s.db.WithContext(ctx).Preload("Subject").Preload("Class").Order("created_at DESC")
	if f.ClassID != "" {
		q = q.Where("class_id = ?", f.ClassID)
	}
	if f.SubjectID != "" {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	if err := q.Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*models.ExamTemplate, error) {
	var exam models.ExamTemplate
	if err := s.db.WithContext(ctx).Preload("Subject").Preload("Class").First(&exam, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (s *ExamService) Create(ctx context.Context, in ExamInput, createdBy uuid.UUID) (*models.ExamTemplate, error) {
	t := in.Template()
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}

	exam := &models.ExamTemplate{CreatedBy: createdBy}
	applyInput(exam, in, t)
	if err := s.db.WithContext(ctx).Create(exam).Error; err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	slog.InfoContext(ctx, "exam created", "exam_id", exam.ID, "questions", exam.TotalQuestions)
	return exam, nil
}

// Update replaces the authored fields of an exam. Answer key entries that
// no longer fit the new question count or choice count are dropped.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, in ExamInput) (*models.ExamTemplate, error) {
	t := in.Template()
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}

	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyInput(exam, in, t)
	exam.AnswerKey = fitAnswerKey(exam.AnswerKey, t)
	exam.Subject, exam.Class = nil, nil

	if err := s.db.WithContext(ctx).Save(exam).Error; err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return exam, nil
}

func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) (*models.ExamTemplate, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(exam).Error; err != nil {
		return nil, fmt.Errorf("failed to delete exam: %w", err)
	}
	return exam, nil
}

// SaveAnswerKey replaces the answer key with selections. Later selections
// for the same question win.
func (s *ExamService) SaveAnswerKey(ctx context.Context, id uuid.UUID, selections []sheet.AnswerItem) (*models.ExamTemplate, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t := exam.SheetTemplate()
	for i, it := range selections {
		if err := checkSelection(t, it); err != nil {
			err.Field = fmt.Sprintf("answer_key[%d].%s", i, err.Field)
			return nil, err
		}
	}

	return s.storeKey(ctx, exam, sheet.LoadAnswerKey(selections))
}

// ToggleAnswer applies a single bubble click to the stored key: choosing the
// selected option clears the question, any other option replaces it.
func (s *ExamService) ToggleAnswer(ctx context.Context, id uuid.UUID, sel sheet.AnswerItem) (*models.ExamTemplate, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkSelection(exam.SheetTemplate(), sel); err != nil {
		return nil, err
	}

	store := sheet.LoadAnswerKey(exam.AnswerKey)
	store.SetAnswer(sel.Number, sel.CorrectAnswer)
	return s.storeKey(ctx, exam, store)
}

// ClearAnswerKey empties the key and leaves the rest of the exam intact.
func (s *ExamService) ClearAnswerKey(ctx context.Context, id uuid.UUID) (*models.ExamTemplate, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	store := sheet.LoadAnswerKey(exam.AnswerKey)
	store.Clear()
	return s.storeKey(ctx, exam, store)
}

func (s *ExamService) storeKey(ctx context.Context, exam *models.ExamTemplate, store *sheet.AnswerKeyStore) (*models.ExamTemplate, error) {
	exam.AnswerKey = store.Items()
	if err := s.db.WithContext(ctx).Model(exam).Update("answer_key", exam.AnswerKey).Error; err != nil {
		return nil, fmt.Errorf("failed to save answer key: %w", err)
	}
	return exam, nil
}

// RenderSheet draws the sheet of a stored exam with its answer key marked.
func (s *ExamService) RenderSheet(ctx context.Context, id uuid.UUID) (*sheet.Document, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	opts := sheet.RenderOptions{AnswerKey: sheet.LoadAnswerKey(exam.AnswerKey)}
	if exam.Subject != nil {
		opts.Subject = exam.Subject.Name
	}
	if exam.Class != nil {
		opts.Class = exam.Class.Name
	}
	return RenderSheet(exam.SheetTemplate(), opts)
}

// RenderSheet renders t and records the outcome.
func RenderSheet(t sheet.Template, opts sheet.RenderOptions) (*sheet.Document, error) {
	doc, err := sheet.Render(t, opts)
	if err != nil {
		var ve *sheet.ValidationError
		if errors.As(err, &ve) {
			metrics.SheetValidationFailures.WithLabelValues(ve.Field).Inc()
		}
		return nil, err
	}
	metrics.SheetsRendered.Inc()
	return doc, nil
}

func applyInput(exam *models.ExamTemplate, in ExamInput, t sheet.Template) {
	exam.Title = t.Title
	exam.TotalQuestions = t.TotalQuestions
	exam.ChoiceCount = t.ChoiceCount
	exam.StudentIDLength = t.StudentIDLength
	exam.SubjectIDLength = t.SubjectIDLength
	exam.QuestionsPerColumn = in.QuestionsPerColumn
	exam.PointsRanges = t.PointsRanges
	exam.SubjectID = in.SubjectID
	exam.ClassID = in.ClassID
}

func checkSelection(t sheet.Template, it sheet.AnswerItem) *InputError {
	if it.Number < 1 || it.Number > t.TotalQuestions {
		return &InputError{Field: "number", Message: fmt.Sprintf("must be between 1 and %d", t.TotalQuestions)}
	}
	if !slices.Contains(sheet.ChoiceLetters(t.ChoiceCount), it.CorrectAnswer) {
		return &InputError{Field: "correct_answer", Message: fmt.Sprintf("must be one of the first %d letters", t.ChoiceCount)}
	}
	return nil
}

func fitAnswerKey(key models.AnswerKey, t sheet.Template) models.AnswerKey {
	out := make(models.AnswerKey, 0, len(key))
	for _, it := range key {
		if checkSelection(t, it) == nil {
			out = append(out, it)
		}
	}
	return out
}
