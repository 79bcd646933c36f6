package grading

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBinIndex(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{100, "A"},
		{120, "A"},
		{90, "A"},
		{89.99, "B"},
		{80, "B"},
		{79.5, "C"},
		{70, "C"},
		{69, "D"},
		{60, "D"},
		{59.99, "F"},
		{0, "F"},
		{-5, "F"},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if grade := LetterGrade(tt.score); grade != tt.expected {
				t.Errorf("Score %.2f: expected grade %s, got %s", tt.score, tt.expected, grade)
			}
		})
	}
}

func TestPassed(t *testing.T) {
	if !Passed(60) {
		t.Error("Expected 60 to pass")
	}
	if Passed(59.9) {
		t.Error("Expected 59.9 to fail")
	}
}

func TestPerformanceLevel(t *testing.T) {
	tests := []struct {
		average  float64
		expected string
	}{
		{95, LevelExcellent},
		{90, LevelExcellent},
		{85, LevelGood},
		{70, LevelAverage},
		{69.9, LevelPoor},
		{0, LevelPoor},
	}

	for _, tt := range tests {
		if level := PerformanceLevel(tt.average); level != tt.expected {
			t.Errorf("Average %.1f: expected %s, got %s", tt.average, tt.expected, level)
		}
	}
}

func TestNormalize_Score(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected float64
		rule     Rule
	}{
		{"String Score", Record{"score": "85"}, 85, RuleScore},
		{"Numeric Percentage", Record{"percentage": 72.5}, 72.5, RulePercentage},
		{"Correct Ratio", Record{"correctAnswers": 18, "totalQuestions": 20}, 90, RuleRatio},
		{"Empty Record", Record{}, 0, RuleNone},
		{"Grade Field", Record{"grade": int64(66)}, 66, RuleGrade},
		{"Score Beats Percentage", Record{"score": 40, "percentage": 90}, 40, RuleScore},
		{"Non Numeric Score", Record{"score": "absent", "percentage": 90}, 0, RuleScore},
		{"Numeric Prefix", Record{"score": "77.5 pts"}, 77.5, RuleScore},
		{"Null Score Skipped", Record{"score": nil, "percentage": "64"}, 64, RulePercentage},
		{"Above Hundred Not Clamped", Record{"percentage": 105}, 105, RulePercentage},
		{"Zero Total Questions", Record{"correctAnswers": 5, "totalQuestions": 0}, 0, RuleRatio},
		{"Only Correct Answers", Record{"correctAnswers": 5}, 0, RuleNone},
		{"Answers Without Key", Record{"answers": []any{"A", "B"}}, 0, RuleAnswers},
		{"Answers Not A List", Record{"answers": "AB"}, 0, RuleNone},
		{"JSON Number", Record{"score": json.Number("93")}, 93, RuleScore},
		{"Boolean Score", Record{"score": true}, 0, RuleScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize("test", tt.record)
			if result.Score != tt.expected {
				t.Errorf("Expected score %.2f, got %.2f. Reason: %s", tt.expected, result.Score, result.Reason)
			}
			if result.Rule != tt.rule {
				t.Errorf("Expected rule %s, got %s", tt.rule, result.Rule)
			}
		})
	}
}

func TestNormalize_Aliases(t *testing.T) {
	result := Normalize("scan_results", Record{
		"student_number": "20240017",
		"templateId":     "exam-9",
		"class_id":       "c1",
		"subjectId":      "s1",
		"scannedAt":      "2026-03-01T08:30:00Z",
		"score":          88,
	})

	if result.StudentID != "20240017" {
		t.Errorf("Expected student id 20240017, got %q", result.StudentID)
	}
	if result.ExamID != "exam-9" {
		t.Errorf("Expected exam id exam-9, got %q", result.ExamID)
	}
	if result.ClassID != "c1" || result.SubjectID != "s1" {
		t.Errorf("Expected class c1 and subject s1, got %q and %q", result.ClassID, result.SubjectID)
	}
	want := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	if !result.Timestamp.Equal(want) {
		t.Errorf("Expected timestamp %v, got %v", want, result.Timestamp)
	}
	if result.Source != "scan_results" {
		t.Errorf("Expected source scan_results, got %s", result.Source)
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	result := Normalize("results", Record{
		"studentId":  "first",
		"student_id": "second",
		"timestamp":  nil,
		"createdAt":  int64(1767225600000),
	})

	if result.StudentID != "first" {
		t.Errorf("Expected first alias to win, got %q", result.StudentID)
	}
	if !result.Timestamp.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected epoch millis to resolve, got %v", result.Timestamp)
	}
}

func TestToTime(t *testing.T) {
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"Epoch Seconds", 1767225600, true},
		{"Epoch Millis", float64(1767225600000), true},
		{"Date Only", "2026-01-01", true},
		{"Seconds Object", map[string]any{"seconds": 1767225600, "nanoseconds": 0}, true},
		{"Underscore Seconds Object", map[string]any{"_seconds": 1767225600}, true},
		{"Native Time", want, true},
		{"Garbage", "yesterday", false},
		{"Zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ToTime(tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !ts.Equal(want) {
				t.Errorf("Expected %v, got %v", want, ts)
			}
		})
	}
}

func TestNormalize_DoesNotMutate(t *testing.T) {
	rec := Record{"score": "70"}
	Normalize("results", rec)
	if len(rec) != 1 || rec["score"] != "70" {
		t.Errorf("Record was mutated: %v", rec)
	}
}
