package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosec/backend/internal/grading"
)

func scores(values ...float64) []grading.Result {
	out := make([]grading.Result, len(values))
	for i, v := range values {
		out[i] = grading.Result{Score: v}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(scores(95, 55))

	assert.Equal(t, 2, s.TotalResults)
	assert.Equal(t, 75.0, s.AverageScore)
	assert.Equal(t, 50.0, s.PassRate)
	assert.Equal(t, [5]int{1, 0, 0, 0, 1}, s.GradeDistribution)
}

func TestSummarize_Bins(t *testing.T) {
	s := Summarize(scores(100, 90, 89, 80, 79, 70, 69, 60, 59, 0))

	assert.Equal(t, [5]int{2, 2, 2, 2, 2}, s.GradeDistribution)
	assert.Equal(t, 80.0, s.PassRate)
}

func TestEmptyResultSet(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	d := BuildDashboard(nil, Lookups{}, PeriodDay, now)

	assert.Equal(t, 0.0, d.AverageScore)
	assert.Equal(t, 0.0, d.PassRate)
	assert.Equal(t, [5]int{}, d.GradeDistribution)
	assert.Empty(t, d.TopClasses)
	assert.NotNil(t, d.TopClasses)
	assert.Empty(t, d.TopSubjects)
	require.Len(t, d.Trend, 7)
	for _, p := range d.Trend {
		assert.NotEmpty(t, p.Label)
		assert.Equal(t, 0.0, p.Average)
	}
}

func TestTopClasses(t *testing.T) {
	l := Lookups{
		Exams: map[string]ExamInfo{
			"e1": {ClassID: "c1", SubjectID: "math"},
			"e2": {ClassID: "c2", SubjectID: "bio"},
		},
		Classes:  map[string]string{"c1": "Grade 10-A", "c2": "Grade 10-B"},
		Subjects: map[string]string{"math": "Mathematics"},
	}
	results := []grading.Result{
		{ExamID: "e1", Score: 80},
		{ExamID: "e1", Score: 100},
		{ExamID: "e2", Score: 70},
		{ExamID: "missing", ClassID: "c9", Score: 95},
		{ExamID: "missing", Score: 10},
	}

	classes := TopClasses(results, l)
	require.Len(t, classes, 3)
	assert.Equal(t, GroupPerformance{ID: "c9", Name: "c9", Average: 95, Count: 1, Level: grading.LevelExcellent}, classes[0])
	assert.Equal(t, GroupPerformance{ID: "c1", Name: "Grade 10-A", Average: 90, Count: 2, Level: grading.LevelExcellent}, classes[1])
	assert.Equal(t, "Grade 10-B", classes[2].Name)
	assert.Equal(t, grading.LevelAverage, classes[2].Level)

	subjects := TopSubjects(results, l)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Mathematics", subjects[0].Name)
	assert.Equal(t, "bio", subjects[1].Name, "unresolved subject falls back to raw id")
}

func TestTopClasses_SharedNameMerges(t *testing.T) {
	l := Lookups{Classes: map[string]string{"c1": "Grade 10", "c2": "Grade 10"}}
	results := []grading.Result{
		{ClassID: "c2", Score: 50},
		{ClassID: "c1", Score: 90},
	}

	classes := TopClasses(results, l)
	require.Len(t, classes, 1)
	assert.Equal(t, GroupPerformance{ID: "c1", Name: "Grade 10", Average: 70, Count: 2, Level: grading.LevelAverage}, classes[0])
}

func TestTopClasses_LimitAndTies(t *testing.T) {
	var results []grading.Result
	for _, id := range []string{"g", "f", "e", "d", "c", "b", "a"} {
		results = append(results, grading.Result{ClassID: id, Score: 50})
	}

	top := TopClasses(results, Lookups{})
	require.Len(t, top, TopLimit)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, []string{top[0].ID, top[1].ID, top[2].ID, top[3].ID, top[4].ID})
	assert.Equal(t, grading.LevelPoor, top[0].Level)
}

func TestFilter(t *testing.T) {
	l := Lookups{Exams: map[string]ExamInfo{"e1": {ClassID: "c1", SubjectID: "s1"}}}
	results := []grading.Result{
		{ExamID: "e1", Score: 1},
		{ClassID: "c1", SubjectID: "s2", Score: 2},
		{ClassID: "c2", Score: 3},
	}

	assert.Len(t, Filter(results, l, "", ""), 3)
	assert.Len(t, Filter(results, l, "c1", ""), 2)
	assert.Len(t, Filter(results, l, "c1", "s1"), 1)
	assert.Empty(t, Filter(results, l, "c3", ""))
}

func TestScoreTrend_Days(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	results := []grading.Result{
		{Score: 80, Timestamp: now.Add(-time.Hour)},
		{Score: 60, Timestamp: now.Add(-2 * time.Hour)},
		{Score: 50, Timestamp: time.Date(2026, 5, 14, 1, 0, 0, 0, time.UTC)},
		{Score: 99, Timestamp: time.Date(2026, 5, 13, 23, 0, 0, 0, time.UTC)},
		{Score: 99},
	}

	trend := ScoreTrend(results, PeriodDay, now)
	require.Len(t, trend, 7)
	assert.Equal(t, "May 14", trend[0].Label)
	assert.Equal(t, TrendPoint{Label: "May 14", Average: 50, Count: 1}, trend[0])
	assert.Equal(t, TrendPoint{Label: "May 20", Average: 70, Count: 2}, trend[6])
	assert.Equal(t, 0.0, trend[3].Average)
}

func TestScoreTrend_Weeks(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	results := []grading.Result{
		{Score: 90, Timestamp: now.Add(-24 * time.Hour)},
		{Score: 70, Timestamp: now.Add(-8 * 24 * time.Hour)},
		{Score: 40, Timestamp: now.Add(-55 * 24 * time.Hour)},
		{Score: 40, Timestamp: now.Add(-57 * 24 * time.Hour)},
		{Score: 10, Timestamp: now.Add(time.Hour)},
	}

	trend := ScoreTrend(results, PeriodWeek, now)
	require.Len(t, trend, 8)
	assert.Equal(t, "Week 1", trend[0].Label)
	assert.Equal(t, 40.0, trend[0].Average)
	assert.Equal(t, 70.0, trend[6].Average)
	assert.Equal(t, 90.0, trend[7].Average)
	assert.Equal(t, 1, trend[7].Count)
}

func TestScoreTrend_Months(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	results := []grading.Result{
		{Score: 80, Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Score: 60, Timestamp: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
		{Score: 30, Timestamp: time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)},
	}

	trend := ScoreTrend(results, PeriodMonth, now)
	require.Len(t, trend, 6)
	assert.Equal(t, "Sep 2025", trend[0].Label)
	assert.Equal(t, 60.0, trend[0].Average)
	assert.Equal(t, "Feb 2026", trend[5].Label)
	assert.Equal(t, 80.0, trend[5].Average)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	p, err = ParsePeriod("month")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	_, err = ParsePeriod("year")
	assert.Error(t, err)
}

func TestBuildDashboard_Idempotent(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	results := []grading.Result{{ClassID: "c1", Score: 70, Timestamp: now}, {ClassID: "c2", Score: 90, Timestamp: now}}

	a := BuildDashboard(results, Lookups{}, PeriodWeek, now)
	b := BuildDashboard(results, Lookups{}, PeriodWeek, now)
	assert.Equal(t, a, b)
}
