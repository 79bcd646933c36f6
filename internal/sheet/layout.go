package sheet

// Column is one vertical strip of the question grid. First and Last are
// inclusive question numbers.
type Column struct {
	Index int `json:"index"`
	First int `json:"first"`
	Last  int `json:"last"`
}

// Count returns how many questions the column holds.
func (c Column) Count() int {
	if c.Last < c.First {
		return 0
	}
	return c.Last - c.First + 1
}

// Layout describes how the questions of a sheet are split into columns.
type Layout struct {
	QuestionsPerColumn int      `json:"questions_per_column"`
	Columns            []Column `json:"columns"`
}

// PlanLayout decides the column count from the total number of questions
// alone. Any questions-per-column preference stored on the exam is ignored.
// Non-positive totals are not validated here.
func PlanLayout(totalQuestions int) Layout {
	var columns int
	switch {
	case totalQuestions > 50:
		columns = 4
	case totalQuestions > 30:
		columns = 3
	case totalQuestions > 15:
		columns = 2
	default:
		columns = 1
	}

	perColumn := totalQuestions
	if columns > 1 {
		perColumn = ceilDiv(totalQuestions, columns)
	}

	layout := Layout{QuestionsPerColumn: perColumn}
	for i := 0; i < columns; i++ {
		first := i*perColumn + 1
		last := min((i+1)*perColumn, totalQuestions)
		layout.Columns = append(layout.Columns, Column{Index: i, First: first, Last: last})
	}
	return layout
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
