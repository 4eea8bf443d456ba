package app

import "exam-session-service/internal/domain"

const initialConfidence = 100

// answerSheet holds the sparse per-question answer state. An absent key in
// selected means unanswered; confidence exists only for answered indices;
// an absent review key means not marked.
type answerSheet struct {
	selected   map[int]domain.Option
	confidence map[int]int
	review     map[int]bool
}

func newAnswerSheet() *answerSheet {
	return &answerSheet{
		selected:   make(map[int]domain.Option),
		confidence: make(map[int]int),
		review:     make(map[int]bool),
	}
}

// choose records opt at index. Each change of mind halves confidence.
func (a *answerSheet) choose(index int, opt domain.Option) {
	prev, ok := a.selected[index]
	switch {
	case !ok:
		a.confidence[index] = initialConfidence
	case prev != opt:
		a.confidence[index] /= 2
	}
	a.selected[index] = opt
}

// clear drops the selection and its confidence; the review flag stays.
func (a *answerSheet) clear(index int) {
	delete(a.selected, index)
	delete(a.confidence, index)
}

func (a *answerSheet) toggleReview(index int) bool {
	marked := !a.review[index]
	if marked {
		a.review[index] = true
	} else {
		delete(a.review, index)
	}
	return marked
}

func (a *answerSheet) answer(index int) (domain.Option, bool) {
	opt, ok := a.selected[index]
	return opt, ok
}

func (a *answerSheet) marked(index int) bool {
	return a.review[index]
}

func (a *answerSheet) confidenceAt(index int) int {
	return a.confidence[index]
}

func (a *answerSheet) tile(index int) domain.TileState {
	_, answered := a.selected[index]
	switch {
	case a.review[index] && answered:
		return domain.TileMarkedAnswered
	case a.review[index]:
		return domain.TileMarkedUnanswered
	case answered:
		return domain.TileAnswered
	}
	return domain.TileNotAttempted
}

func (a *answerSheet) selectedCopy() map[int]domain.Option {
	out := make(map[int]domain.Option, len(a.selected))
	for k, v := range a.selected {
		out[k] = v
	}
	return out
}

func (a *answerSheet) reviewCopy() map[int]bool {
	out := make(map[int]bool, len(a.review))
	for k, v := range a.review {
		out[k] = v
	}
	return out
}

func (a *answerSheet) confidenceCopy() map[int]int {
	out := make(map[int]int, len(a.confidence))
	for k, v := range a.confidence {
		out[k] = v
	}
	return out
}
