package grading

const (
	// PassThreshold is the minimum score counted as a pass.
	PassThreshold = 60.0

	LevelExcellent = "excellent"
	LevelGood      = "good"
	LevelAverage   = "average"
	LevelPoor      = "poor"
)

// Letter grades in distribution order.
var Letters = [5]string{"A", "B", "C", "D", "F"}

// BinIndex maps a score to its grade bin: A [90,100], B [80,90), C [70,80),
// D [60,70), F below 60. Scores above 100 land in A.
func BinIndex(score float64) int {
	switch {
	case score >= 90:
		return 0
	case score >= 80:
		return 1
	case score >= 70:
		return 2
	case score >= PassThreshold:
		return 3
	default:
		return 4
	}
}

// LetterGrade returns the letter of the bin score falls in.
func LetterGrade(score float64) string {
	return Letters[BinIndex(score)]
}

// Passed reports whether score meets the pass threshold.
func Passed(score float64) bool {
	return score >= PassThreshold
}

// PerformanceLevel labels a group average.
func PerformanceLevel(average float64) string {
	switch {
	case average >= 90:
		return LevelExcellent
	case average >= 80:
		return LevelGood
	case average >= 70:
		return LevelAverage
	default:
		return LevelPoor
	}
}
