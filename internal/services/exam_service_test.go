package services

import (
	"errors"
	"testing"

	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestExamInputTemplateDefaults(t *testing.T) {
	tpl := ExamInput{Title: "Chemistry", TotalQuestions: 30}.Template()
	assert.Equal(t, DefaultChoiceCount, tpl.ChoiceCount)
	assert.Equal(t, DefaultStudentIDLength, tpl.StudentIDLength)

	tpl = ExamInput{Title: "Chemistry", TotalQuestions: 30, StudentIDLength: intPtr(0)}.Template()
	assert.Equal(t, 0, tpl.StudentIDLength)
}

func TestValidateTemplate(t *testing.T) {
	valid := sheet.Template{Title: "Biology", TotalQuestions: 20, ChoiceCount: 5, StudentIDLength: 8}

	tests := []struct {
		name   string
		mutate func(*sheet.Template)
		field  string
	}{
		{"valid", func(*sheet.Template) {}, ""},
		{"missing title", func(t *sheet.Template) { t.Title = "" }, "title"},
		{"no questions", func(t *sheet.Template) { t.TotalQuestions = 0 }, "total_questions"},
		{"too many choices", func(t *sheet.Template) { t.ChoiceCount = 27 }, "choice_count"},
		{"student id too long", func(t *sheet.Template) { t.StudentIDLength = 16 }, "student_id_length"},
		{"subject id too long", func(t *sheet.Template) { t.SubjectIDLength = 9 }, "subject_id_length"},
		{"inverted range", func(t *sheet.Template) {
			t.PointsRanges = []sheet.PointsRange{{Start: 5, End: 2, Points: 1}}
		}, "points_ranges[0]"},
		{"zero points", func(t *sheet.Template) {
			t.PointsRanges = []sheet.PointsRange{{Start: 1, End: 2, Points: 0}}
		}, "points_ranges[0].points"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := valid
			tt.mutate(&tpl)
			err := ValidateTemplate(tpl)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsInputError(err))

			var ie *InputError
			var ve *sheet.ValidationError
			switch {
			case errors.As(err, &ie):
				assert.Equal(t, tt.field, ie.Field)
			case errors.As(err, &ve):
				assert.Equal(t, tt.field, ve.Field)
			default:
				t.Fatalf("unexpected error type %T", err)
			}
		})
	}
}

func TestCheckSelection(t *testing.T) {
	tpl := sheet.Template{TotalQuestions: 10, ChoiceCount: 4}

	assert.Nil(t, checkSelection(tpl, sheet.AnswerItem{Number: 10, CorrectAnswer: "D"}))
	assert.Equal(t, "number", checkSelection(tpl, sheet.AnswerItem{Number: 11, CorrectAnswer: "A"}).Field)
	assert.Equal(t, "correct_answer", checkSelection(tpl, sheet.AnswerItem{Number: 1, CorrectAnswer: "E"}).Field)
}

func TestFitAnswerKey(t *testing.T) {
	key := models.AnswerKey{{Number: 1, CorrectAnswer: "A"}, {Number: 8, CorrectAnswer: "B"}, {Number: 3, CorrectAnswer: "E"}}
	got := fitAnswerKey(key, sheet.Template{TotalQuestions: 5, ChoiceCount: 4})
	assert.Equal(t, models.AnswerKey{{Number: 1, CorrectAnswer: "A"}}, got)
}

func TestScanTemplateFromExam(t *testing.T) {
	exam := &models.ExamTemplate{
		Title:           "History",
		TotalQuestions:  12,
		ChoiceCount:     4,
		StudentIDLength: 6,
		PointsRanges:    models.PointsRanges{{Start: 1, End: 6, Points: 2}},
		AnswerKey:       models.AnswerKey{{Number: 2, CorrectAnswer: "C"}},
	}
	st := ScanTemplateFromExam(exam)
	assert.Equal(t, exam.ID.String(), st.ExamID)
	assert.Equal(t, []ScanPointsRange{{Start: 1, End: 6, Points: 2}}, st.PointsRanges)
	assert.Equal(t, []ScanAnswer{{Number: 2, CorrectAnswer: "C"}}, st.AnswerKey)
	assert.Empty(t, st.ClassID)
}

// questions_per_column is stored with the exam but the sheet layout is
// always derived from the question count.
func TestQuestionsPerColumnDoesNotDriveLayout(t *testing.T) {
	in := ExamInput{Title: "Art", TotalQuestions: 45, QuestionsPerColumn: 5}

	doc, err := RenderSheet(in.Template(), sheet.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 15, doc.Questions.QuestionsPerColumn)
	assert.Len(t, doc.Questions.Columns, 3)
}
