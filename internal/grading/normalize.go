package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is one raw result document as it comes out of a result source.
// Field names and value types vary between sources.
type Record map[string]any

// Rule names the step of the resolution order that produced a score.
type Rule string

const (
	RuleScore      Rule = "score"
	RulePercentage Rule = "percentage"
	RuleGrade      Rule = "grade"
	RuleRatio      Rule = "correct_ratio"
	RuleAnswers    Rule = "answers_unscored"
	RuleNone       Rule = "none"
)

// Result is the canonical form of a result record.
type Result struct {
	Source    string    `json:"source"`
	StudentID string    `json:"student_id"`
	ExamID    string    `json:"exam_id"`
	ClassID   string    `json:"class_id,omitempty"`
	SubjectID string    `json:"subject_id,omitempty"`
	Score     float64   `json:"score"`
	Rule      Rule      `json:"rule"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// HasTimestamp reports whether a timestamp could be resolved.
func (r Result) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// Alias field names, most specific first.
var (
	StudentIDFields = []string{"studentId", "student_id", "studentID", "studentNumber", "student_number", "studentCode", "idNumber"}
	ExamIDFields    = []string{"examId", "exam_id", "examID", "templateId", "template_id", "answerSheetId", "sheetId"}
	ClassIDFields   = []string{"classId", "class_id", "classID"}
	SubjectIDFields = []string{"subjectId", "subject_id", "subjectID"}
	TimestampFields = []string{"timestamp", "createdAt", "created_at", "scannedAt", "scanned_at", "submittedAt", "date"}
)

type scoreRule struct {
	rule    Rule
	resolve func(Record) (float64, string, bool)
}

// scoreRules is the resolution order; the first rule that applies wins.
var scoreRules = []scoreRule{
	{RuleScore, numericField("score")},
	{RulePercentage, numericField("percentage")},
	{RuleGrade, numericField("grade")},
	{RuleRatio, correctRatio},
	{RuleAnswers, unscoredAnswers},
}

func numericField(name string) func(Record) (float64, string, bool) {
	return func(rec Record) (float64, string, bool) {
		v, ok := rec.lookup(name)
		if !ok {
			return 0, "", false
		}
		score := ToFloat(v)
		return score, fmt.Sprintf("%s %v → %.2f", name, v, score), true
	}
}

func correctRatio(rec Record) (float64, string, bool) {
	c, okC := rec.lookup("correctAnswers")
	t, okT := rec.lookup("totalQuestions")
	if !okC || !okT {
		return 0, "", false
	}
	correct, total := ToFloat(c), ToFloat(t)
	if total == 0 {
		return 0, fmt.Sprintf("correctAnswers %.0f of 0 questions → 0", correct), true
	}
	score := correct / total * 100
	return score, fmt.Sprintf("correctAnswers %.0f/%.0f → %.2f", correct, total, score), true
}

func unscoredAnswers(rec Record) (float64, string, bool) {
	v, ok := rec.lookup("answers")
	if !ok || !isList(v) {
		return 0, "", false
	}
	return 0, "answers present without an answer key → 0", true
}

// Normalize reduces rec to a Result. It never fails: unusable score fields
// degrade to 0 and unresolved ids stay empty.
func Normalize(source string, rec Record) Result {
	res := Result{
		Source:    source,
		StudentID: rec.firstString(StudentIDFields),
		ExamID:    rec.firstString(ExamIDFields),
		ClassID:   rec.firstString(ClassIDFields),
		SubjectID: rec.firstString(SubjectIDFields),
		Timestamp: rec.firstTime(TimestampFields),
		Rule:      RuleNone,
		Reason:    "no score-bearing field → 0",
	}
	for _, r := range scoreRules {
		if score, reason, ok := r.resolve(rec); ok {
			res.Score, res.Rule, res.Reason = score, r.rule, reason
			break
		}
	}
	return res
}

// NormalizeAll normalizes every record of one source.
func NormalizeAll(source string, recs []Record) []Result {
	out := make([]Result, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Normalize(source, rec))
	}
	return out
}

func (rec Record) lookup(name string) (any, bool) {
	v, ok := rec[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (rec Record) firstString(names []string) string {
	for _, name := range names {
		v, ok := rec.lookup(name)
		if !ok {
			continue
		}
		if s := toID(v); s != "" {
			return s
		}
	}
	return ""
}

func (rec Record) firstTime(names []string) time.Time {
	for _, name := range names {
		v, ok := rec.lookup(name)
		if !ok {
			continue
		}
		if ts, ok := ToTime(v); ok {
			return ts
		}
	}
	return time.Time{}
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ToFloat coerces v the way a lenient float parser would: strings use
// their longest numeric prefix, anything unparseable becomes 0.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f = parseLeadingFloat(n.String())
	case string:
		f = parseLeadingFloat(n)
	case fmt.Stringer:
		f = parseLeadingFloat(n.String())
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

func toID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case interface{ Hex() string }:
		return id.Hex()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int, int32, int64, json.Number:
		return fmt.Sprint(id)
	case fmt.Stringer:
		return id.String()
	default:
		return ""
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToTime resolves the timestamp shapes seen in result sources: native
// times, driver date types, ISO strings, epoch seconds or milliseconds and
// {seconds, nanoseconds} objects.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case interface{ Time() time.Time }:
		ts := t.Time()
		return ts, !ts.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case map[string]any:
		secs, ok := t["seconds"]
		if !ok {
			secs, ok = t["_seconds"]
		}
		if !ok {
			return time.Time{}, false
		}
		nanos := t["nanoseconds"]
		if nanos == nil {
			nanos = t["_nanoseconds"]
		}
		return time.Unix(int64(ToFloat(secs)), int64(ToFloat(nanos))).UTC(), true
	}

	n := ToFloat(v)
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 1e11 {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Unix(int64(n), 0).UTC(), true
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
