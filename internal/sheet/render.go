package sheet

import (
	"errors"
	"fmt"
)

const (
	MinStudentIDLength = 1
	MaxStudentIDLength = 15
	MinSubjectIDLength = 0
	MaxSubjectIDLength = 8
	MaxChoiceCount     = 26
)

// ValidationError reports a template field outside its allowed range.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Template is the subset of an exam template the sheet depends on.
type Template struct {
	Title           string        `json:"title"`
	TotalQuestions  int           `json:"total_questions"`
	ChoiceCount     int           `json:"choice_count"`
	StudentIDLength int           `json:"student_id_length"`
	SubjectIDLength int           `json:"subject_id_length"`
	PointsRanges    []PointsRange `json:"points_ranges"`
}

// Validate checks the bounds that must hold before a sheet can be drawn.
func (t Template) Validate() error {
	if t.StudentIDLength < MinStudentIDLength || t.StudentIDLength > MaxStudentIDLength {
		return &ValidationError{Field: "student_id_length", Value: t.StudentIDLength, Min: MinStudentIDLength, Max: MaxStudentIDLength}
	}
	if t.SubjectIDLength < MinSubjectIDLength || t.SubjectIDLength > MaxSubjectIDLength {
		return &ValidationError{Field: "subject_id_length", Value: t.SubjectIDLength, Min: MinSubjectIDLength, Max: MaxSubjectIDLength}
	}
	return nil
}

// RenderOptions carries display strings and the answer key of an edit view.
type RenderOptions struct {
	Subject   string
	Class     string
	AnswerKey *AnswerKeyStore
}

type Header struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Class   string `json:"class,omitempty"`
}

// IDGrid is a bubble grid with one column per digit position and one row
// per digit 0-9.
type IDGrid struct {
	Label   string `json:"label"`
	Columns int    `json:"columns"`
	Digits  []int  `json:"digits"`
}

type Bubble struct {
	Letter   string `json:"letter"`
	Selected bool   `json:"selected,omitempty"`
}

type QuestionRow struct {
	Number  int      `json:"number"`
	Points  float64  `json:"points"`
	Bubbles []Bubble `json:"bubbles"`
}

type QuestionColumn struct {
	Index     int           `json:"index"`
	Questions []QuestionRow `json:"questions"`
}

type QuestionGrid struct {
	QuestionsPerColumn int              `json:"questions_per_column"`
	Columns            []QuestionColumn `json:"columns"`
}

type Footer struct {
	TotalQuestions int     `json:"total_questions"`
	TotalPoints    float64 `json:"total_points"`
}

// Document is the structured, markup-free description of a bubble sheet.
// Sections appear in print order.
type Document struct {
	Header      Header       `json:"header"`
	InfoFields  []string     `json:"info_fields"`
	StudentID   IDGrid       `json:"student_id"`
	SubjectID   *IDGrid      `json:"subject_id,omitempty"`
	Questions   QuestionGrid `json:"questions"`
	Footer      Footer       `json:"footer"`
	ChoiceCount int          `json:"choice_count"`
}

var studentInfoFields = []string{"Name", "Class", "Date"}

// ChoiceLetters returns the first n option letters, capped at Z.
func ChoiceLetters(n int) []string {
	n = max(0, min(n, MaxChoiceCount))
	letters := make([]string, n)
	for i := range letters {
		letters[i] = string(rune('A' + i))
	}
	return letters
}

// Render validates t and builds its sheet. The answer key in opts is only
// read, to mark bubbles that are already selected.
func Render(t Template, opts RenderOptions) (*Document, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	doc := &Document{
		Header: Header{
			Title:   t.Title,
			Subject: opts.Subject,
			Class:   opts.Class,
		},
		InfoFields:  append([]string(nil), studentInfoFields...),
		StudentID:   digitGrid("Student ID", t.StudentIDLength),
		ChoiceCount: t.ChoiceCount,
	}
	if t.SubjectIDLength > 0 {
		grid := digitGrid("Subject ID", t.SubjectIDLength)
		doc.SubjectID = &grid
	}

	letters := ChoiceLetters(t.ChoiceCount)
	layout := PlanLayout(t.TotalQuestions)
	doc.Questions.QuestionsPerColumn = layout.QuestionsPerColumn
	for _, col := range layout.Columns {
		qc := QuestionColumn{Index: col.Index, Questions: make([]QuestionRow, 0, col.Count())}
		for q := col.First; q <= col.Last; q++ {
			selected, _ := opts.AnswerKey.Answer(q)
			row := QuestionRow{Number: q, Points: PointsFor(q, t.PointsRanges), Bubbles: make([]Bubble, len(letters))}
			for i, l := range letters {
				row.Bubbles[i] = Bubble{Letter: l, Selected: l == selected}
			}
			qc.Questions = append(qc.Questions, row)
		}
		doc.Questions.Columns = append(doc.Questions.Columns, qc)
	}

	doc.Footer = Footer{
		TotalQuestions: t.TotalQuestions,
		TotalPoints:    TotalPoints(t.PointsRanges, t.TotalQuestions),
	}
	return doc, nil
}

func digitGrid(label string, columns int) IDGrid {
	return IDGrid{Label: label, Columns: columns, Digits: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
}
