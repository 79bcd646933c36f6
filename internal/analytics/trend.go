package analytics

import (
	"fmt"
	"time"

	"github.com/rosec/backend/internal/grading"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const (
	trendDays   = 7
	trendWeeks  = 8
	trendMonths = 6
	week        = 7 * 24 * time.Hour
)

// ParsePeriod accepts day, week or month. An empty string means week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unknown trend period %q", s)
	}
}

// TrendPoint is one bucket of a score trend. Empty buckets keep their label
// and report an average of 0.
type TrendPoint struct {
	Label   string  `json:"label"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ScoreTrend buckets results by the last 7 days, 8 weeks or 6 months
// relative to now, oldest bucket first. Results without a timestamp or
// outside the window are ignored. Unknown periods fall back to days.
func ScoreTrend(results []grading.Result, period Period, now time.Time) []TrendPoint {
	var (
		labels []string
		bucket func(time.Time) int
	)

	switch period {
	case PeriodWeek:
		labels, bucket = weekBuckets(now)
	case PeriodMonth:
		labels, bucket = monthBuckets(now)
	default:
		labels, bucket = dayBuckets(now)
	}

	accs := make([]accumulator, len(labels))
	for _, r := range results {
		if !r.HasTimestamp() {
			continue
		}
		if i := bucket(r.Timestamp); i >= 0 && i < len(accs) {
			accs[i].sum += r.Score
			accs[i].count++
		}
	}

	points := make([]TrendPoint, len(labels))
	for i, label := range labels {
		points[i] = TrendPoint{Label: label, Average: accs[i].mean(), Count: accs[i].count}
	}
	return points
}

func dayBuckets(now time.Time) ([]string, func(time.Time) int) {
	today := startOfDay(now)
	labels := make([]string, trendDays)
	for i := range labels {
		labels[i] = today.AddDate(0, 0, i-(trendDays-1)).Format("Jan 2")
	}
	return labels, func(ts time.Time) int {
		day := startOfDay(ts.In(now.Location()))
		for i := 0; i < trendDays; i++ {
			if day.Equal(today.AddDate(0, 0, i-(trendDays-1))) {
				return i
			}
		}
		return -1
	}
}

func weekBuckets(now time.Time) ([]string, func(time.Time) int) {
	labels := make([]string, trendWeeks)
	for i := range labels {
		labels[i] = fmt.Sprintf("Week %d", i+1)
	}
	return labels, func(ts time.Time) int {
		diff := now.Sub(ts)
		if diff < 0 {
			return -1
		}
		weeksAgo := int(diff / week)
		if weeksAgo >= trendWeeks {
			return -1
		}
		return trendWeeks - 1 - weeksAgo
	}
}

func monthBuckets(now time.Time) ([]string, func(time.Time) int) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	labels := make([]string, trendMonths)
	for i := range labels {
		labels[i] = first.AddDate(0, i-(trendMonths-1), 0).Format("Jan 2006")
	}
	return labels, func(ts time.Time) int {
		ts = ts.In(now.Location())
		months := (now.Year()-ts.Year())*12 + int(now.Month()-ts.Month())
		if months < 0 || months >= trendMonths {
			return -1
		}
		return trendMonths - 1 - months
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
