package domain

// Phase is the exam session lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "not-started"
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitted  Phase = "submitted"
	// PhaseFailed follows a failed load; Reset returns the session to NotStarted.
	PhaseFailed Phase = "failed"
)

// TileState is the overview grid class for one question.
type TileState string

const (
	TileNotAttempted     TileState = "not-attempted"
	TileAnswered         TileState = "answered"
	TileMarkedAnswered   TileState = "marked-answered"
	TileMarkedUnanswered TileState = "marked-unanswered"
)

// Snapshot is the observable state of a session pushed to clients.
type Snapshot struct {
	SessionID     string         `json:"sessionId"`
	UserID        string         `json:"userId"`
	TestType      string         `json:"testType"`
	Phase         Phase          `json:"phase"`
	QuestionCount int            `json:"questionCount"`
	CurrentIndex  int            `json:"currentIndex"`
	TimeRemaining int            `json:"timeRemaining"`
	TimeTaken     int            `json:"timeTaken"`
	OverviewOpen  bool           `json:"overviewOpen"`
	Selected      map[int]Option `json:"selected"`
	Marked        map[int]bool   `json:"marked"`
	Tiles         []TileState    `json:"tiles"`
	Error         string         `json:"error,omitempty"`
}

// Navigation reports where a navigation request landed.
type Navigation struct {
	From           int  `json:"from"`
	To             int  `json:"to"`
	OverviewClosed bool `json:"overviewClosed"`
}
