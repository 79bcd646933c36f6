package sheet

// DefaultPoints is the value of a question no range covers.
const DefaultPoints = 1.0

// PointsRange assigns Points to every question in [Start, End].
type PointsRange struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Points float64 `json:"points"`
}

// Contains reports whether question falls inside the range.
func (r PointsRange) Contains(question int) bool {
	return r.Start <= question && question <= r.End
}

// PointsFor returns the points of the first range containing question.
// Ranges are neither sorted nor merged, so on overlap the earlier range wins.
func PointsFor(question int, ranges []PointsRange) float64 {
	for _, r := range ranges {
		if r.Contains(question) {
			return r.Points
		}
	}
	return DefaultPoints
}

// TotalPoints sums PointsFor over questions 1..totalQuestions.
func TotalPoints(ranges []PointsRange, totalQuestions int) float64 {
	total := 0.0
	for q := 1; q <= totalQuestions; q++ {
		total += PointsFor(q, ranges)
	}
	return total
}
