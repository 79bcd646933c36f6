package sheet

import "sort"

// AnswerItem is the persisted form of one answer key entry.
type AnswerItem struct {
	Number        int    `json:"number"`
	CorrectAnswer string `json:"correct_answer"`
}

// AnswerKeyStore holds the answer key of one editing session. It is not
// safe for concurrent use; each session owns its own store.
type AnswerKeyStore struct {
	answers map[int]string
}

func NewAnswerKeyStore() *AnswerKeyStore {
	return &AnswerKeyStore{answers: make(map[int]string)}
}

// LoadAnswerKey builds a store from persisted items. Later items overwrite
// earlier ones for the same question.
func LoadAnswerKey(items []AnswerItem) *AnswerKeyStore {
	s := NewAnswerKeyStore()
	for _, it := range items {
		if it.CorrectAnswer == "" {
			continue
		}
		s.answers[it.Number] = it.CorrectAnswer
	}
	return s
}

// SetAnswer selects option for question. Selecting the option that is
// already chosen clears the question. It reports whether the question is
// selected afterwards.
func (s *AnswerKeyStore) SetAnswer(question int, option string) bool {
	if current, ok := s.answers[question]; ok && current == option {
		delete(s.answers, question)
		return false
	}
	s.answers[question] = option
	return true
}

// Answer returns the selected option for question, if any.
func (s *AnswerKeyStore) Answer(question int) (string, bool) {
	if s == nil {
		return "", false
	}
	opt, ok := s.answers[question]
	return opt, ok
}

func (s *AnswerKeyStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.answers)
}

// Clear empties the whole key.
func (s *AnswerKeyStore) Clear() {
	s.answers = make(map[int]string)
}

// Items exports the key ordered by question number, omitting unset questions.
func (s *AnswerKeyStore) Items() []AnswerItem {
	items := make([]AnswerItem, 0, s.Len())
	if s == nil {
		return items
	}
	for number, opt := range s.answers {
		items = append(items, AnswerItem{Number: number, CorrectAnswer: opt})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Number < items[j].Number })
	return items
}
