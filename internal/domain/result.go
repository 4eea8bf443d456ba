package domain

import "time"

// QuestionStatus is the per-question verdict after scoring.
type QuestionStatus string

const (
	StatusCorrect          QuestionStatus = "correct"
	StatusIncorrect        QuestionStatus = "incorrect"
	StatusNotAnswered      QuestionStatus = "not-answered"
	StatusMarkedAnswered   QuestionStatus = "marked-answered"
	StatusMarkedUnanswered QuestionStatus = "marked-unanswered"
)

// SubmitReason records what ended the session.
type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
)

// ScoredResult is produced once per submission and never changes afterwards.
type ScoredResult struct {
	Score          int              `json:"score"`
	Statuses       []QuestionStatus `json:"statuses"`
	TotalTimeTaken int              `json:"totalTimeTaken"`
	Reason         SubmitReason     `json:"reason"`
}

// Distribution is the three-bucket outcome count. Marked statuses are folded in.
type Distribution struct {
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}

// Total returns the sum of all buckets.
func (d Distribution) Total() int {
	return d.Correct + d.Incorrect + d.Unanswered
}

// AnalyticsSummary holds derived statistics over a submitted session.
type AnalyticsSummary struct {
	AccuracyPercent               float64      `json:"accuracyPercent"`
	AverageConfidencePercent      float64      `json:"averageConfidencePercent"`
	AverageTimePerQuestionSeconds float64      `json:"averageTimePerQuestionSeconds"`
	Distribution                  Distribution `json:"distribution"`
}

// QuestionReport is one row of the results view.
type QuestionReport struct {
	Index               int            `json:"index"`
	Prompt              string         `json:"prompt"`
	Status              QuestionStatus `json:"status"`
	Selected            Option         `json:"selected,omitempty"`
	Correct             Option         `json:"correct"`
	TimeSpent           int            `json:"timeSpent"`
	RecordedConfidence  int            `json:"recordedConfidence"`
	EffectiveConfidence int            `json:"effectiveConfidence"`
}

// Report is everything the results view needs after submission.
type Report struct {
	SessionID     string           `json:"sessionId"`
	UserID        string           `json:"userId"`
	TestType      string           `json:"testType"`
	QuestionCount int              `json:"questionCount"`
	Result        ScoredResult     `json:"result"`
	Summary       AnalyticsSummary `json:"summary"`
	Questions     []QuestionReport `json:"questions"`
	TimeSpent     map[int]int      `json:"timeSpent"`
	Confidence    map[int]int      `json:"confidence"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}
