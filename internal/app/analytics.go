package app

import (
	"math"

	"exam-session-service/internal/domain"
)

// summarize derives the analytics for a scored session. Only correct answers
// keep their recorded confidence; everything else counts as zero.
func summarize(result domain.ScoredResult, sheet *answerSheet, timing *timingTracker) domain.AnalyticsSummary {
	count := len(result.Statuses)
	summary := domain.AnalyticsSummary{
		Distribution: distribute(result.Statuses),
	}
	if count == 0 {
		return summary
	}

	confidenceSum := 0
	for i, status := range result.Statuses {
		confidenceSum += effectiveConfidence(status, sheet.confidenceAt(i))
	}

	summary.AccuracyPercent = round2(100 * float64(result.Score) / float64(count))
	summary.AverageConfidencePercent = round2(float64(confidenceSum) / float64(count))
	summary.AverageTimePerQuestionSeconds = round2(float64(timing.totalSpent()) / float64(count))
	return summary
}

// distribute folds the review statuses back into the three outcome buckets.
func distribute(statuses []domain.QuestionStatus) domain.Distribution {
	var d domain.Distribution
	for _, status := range statuses {
		switch status {
		case domain.StatusCorrect:
			d.Correct++
		case domain.StatusIncorrect, domain.StatusMarkedAnswered:
			// marked-answered is never correct, the scorer would have said so
			d.Incorrect++
		default:
			d.Unanswered++
		}
	}
	return d
}

func effectiveConfidence(status domain.QuestionStatus, recorded int) int {
	if status != domain.StatusCorrect {
		return 0
	}
	return recorded
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
