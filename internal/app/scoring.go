package app

import "exam-session-service/internal/domain"

// scoreQuestions classifies every question in order. A correct answer always
// wins; otherwise the review flag takes precedence over incorrect/unanswered.
func scoreQuestions(questions []domain.Question, sheet *answerSheet) (int, []domain.QuestionStatus) {
	correct := 0
	statuses := make([]domain.QuestionStatus, len(questions))
	for i, q := range questions {
		sel, answered := sheet.answer(i)
		switch {
		case answered && sel == q.Correct:
			statuses[i] = domain.StatusCorrect
			correct++
		case sheet.marked(i) && answered:
			statuses[i] = domain.StatusMarkedAnswered
		case sheet.marked(i):
			statuses[i] = domain.StatusMarkedUnanswered
		case !answered:
			statuses[i] = domain.StatusNotAnswered
		default:
			statuses[i] = domain.StatusIncorrect
		}
	}
	return correct, statuses
}
