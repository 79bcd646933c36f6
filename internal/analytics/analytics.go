package analytics

import (
	"sort"
	"time"

	"github.com/rosec/backend/internal/grading"
)

// TopLimit is how many groups a ranking returns.
const TopLimit = 5

// Summary holds the headline statistics of a result set.
type Summary struct {
	TotalResults      int     `json:"total_results"`
	AverageScore      float64 `json:"average_score"`
	PassRate          float64 `json:"pass_rate"`
	GradeDistribution [5]int  `json:"grade_distribution"`
}

// ExamInfo is the exam metadata needed to place a result in a class and subject.
type ExamInfo struct {
	Title     string `json:"title"`
	ClassID   string `json:"class_id"`
	SubjectID string `json:"subject_id"`
}

// Lookups maps ids to metadata. Missing entries are tolerated.
type Lookups struct {
	Exams    map[string]ExamInfo
	Classes  map[string]string
	Subjects map[string]string
}

// ClassOf returns the class id of r, preferring the exam's class.
func (l Lookups) ClassOf(r grading.Result) string {
	if e, ok := l.Exams[r.ExamID]; ok && e.ClassID != "" {
		return e.ClassID
	}
	return r.ClassID
}

// SubjectOf returns the subject id of r, preferring the exam's subject.
func (l Lookups) SubjectOf(r grading.Result) string {
	if e, ok := l.Exams[r.ExamID]; ok && e.SubjectID != "" {
		return e.SubjectID
	}
	return r.SubjectID
}

// GroupPerformance is one row of a class or subject ranking.
type GroupPerformance struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Level   string  `json:"level"`
}

// Summarize computes average, pass rate and grade distribution. An empty
// input yields an all-zero summary.
func Summarize(results []grading.Result) Summary {
	s := Summary{TotalResults: len(results)}
	if len(results) == 0 {
		return s
	}

	sum, passed := 0.0, 0
	for _, r := range results {
		sum += r.Score
		if grading.Passed(r.Score) {
			passed++
		}
		s.GradeDistribution[grading.BinIndex(r.Score)]++
	}
	s.AverageScore = sum / float64(len(results))
	s.PassRate = float64(passed) / float64(len(results)) * 100
	return s
}

// TopClasses ranks classes by mean score.
func TopClasses(results []grading.Result, l Lookups) []GroupPerformance {
	return rank(results, l.ClassOf, l.Classes)
}

// TopSubjects ranks subjects by mean score.
func TopSubjects(results []grading.Result, l Lookups) []GroupPerformance {
	return rank(results, l.SubjectOf, l.Subjects)
}

type accumulator struct {
	sum   float64
	count int
}

func (a accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// rank groups results by resolved name (falling back to the raw id), sorts
// by mean descending and keeps the top TopLimit. Ids that share a name merge
// into one row carrying the smallest id. Results without a key are left out.
func rank(results []grading.Result, key func(grading.Result) string, names map[string]string) []GroupPerformance {
	type group struct {
		accumulator
		id string
	}
	groups := make(map[string]*group)
	for _, r := range results {
		id := key(r)
		if id == "" {
			continue
		}
		name := names[id]
		if name == "" {
			name = id
		}
		g, ok := groups[name]
		if !ok {
			g = &group{id: id}
			groups[name] = g
		} else if id < g.id {
			g.id = id
		}
		g.sum += r.Score
		g.count++
	}

	out := make([]GroupPerformance, 0, len(groups))
	for name, g := range groups {
		avg := g.mean()
		out = append(out, GroupPerformance{
			ID:      g.id,
			Name:    name,
			Average: avg,
			Count:   g.count,
			Level:   grading.PerformanceLevel(avg),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Average != out[j].Average {
			return out[i].Average > out[j].Average
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > TopLimit {
		out = out[:TopLimit]
	}
	return out
}

// Filter keeps results whose resolved class and subject match the given
// ids. Empty ids match everything.
func Filter(results []grading.Result, l Lookups, classID, subjectID string) []grading.Result {
	if classID == "" && subjectID == "" {
		return results
	}
	out := make([]grading.Result, 0, len(results))
	for _, r := range results {
		if classID != "" && l.ClassOf(r) != classID {
			continue
		}
		if subjectID != "" && l.SubjectOf(r) != subjectID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Dashboard bundles everything the analytics page shows.
type Dashboard struct {
	Summary
	Period      Period             `json:"period"`
	GeneratedAt time.Time          `json:"generated_at"`
	TopClasses  []GroupPerformance `json:"top_classes"`
	TopSubjects []GroupPerformance `json:"top_subjects"`
	Trend       []TrendPoint       `json:"trend"`
}

// BuildDashboard aggregates an already fetched result set.
func BuildDashboard(results []grading.Result, l Lookups, period Period, now time.Time) Dashboard {
	return Dashboard{
		Summary:     Summarize(results),
		Period:      period,
		GeneratedAt: now,
		TopClasses:  TopClasses(results, l),
		TopSubjects: TopSubjects(results, l),
		Trend:       ScoreTrend(results, period, now),
	}
}
