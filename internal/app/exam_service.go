package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/metrics"
	"exam-session-service/internal/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// ResultRecorder persists the report of a submitted session.
type ResultRecorder interface {
	RecordResult(ctx context.Context, report domain.Report) error
}

// ResultLookup reads back reports recorded by a ResultRecorder.
type ResultLookup interface {
	Result(ctx context.Context, sessionID string) (domain.Report, error)
}

// Durations maps test types to countdown lengths.
type Durations struct {
	ByTestType map[string]time.Duration
	Default    time.Duration
}

// For returns the countdown for testType. Test types match case-insensitively,
// so "Full-length" and "full-length" share a budget.
func (d Durations) For(testType string) time.Duration {
	if v, ok := d.ByTestType[testType]; ok && v > 0 {
		return v
	}
	for name, v := range d.ByTestType {
		if v > 0 && strings.EqualFold(name, testType) {
			return v
		}
	}
	return d.Default
}

// ServiceOption customizes an ExamService.
type ServiceOption func(*ExamService)

func WithResultRecorder(r ResultRecorder) ServiceOption {
	return func(s *ExamService) { s.results = r }
}

func WithRenderer(r render.Renderer) ServiceOption {
	return func(s *ExamService) { s.renderer = r }
}

func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *ExamService) { s.log = log }
}

func WithMetrics(m *metrics.Exam) ServiceOption {
	return func(s *ExamService) { s.metrics = m }
}

func WithDurations(d Durations) ServiceOption {
	return func(s *ExamService) { s.durations = d }
}

// WithSessionOptions applies opts to every session the service creates.
func WithSessionOptions(opts ...SessionOption) ServiceOption {
	return func(s *ExamService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// ExamService contains the exam session use cases.
type ExamService struct {
	sessions    SessionRepository
	questions   QuestionProvider
	results     ResultRecorder
	renderer    render.Renderer
	durations   Durations
	log         zerolog.Logger
	metrics     *metrics.Exam
	sessionOpts []SessionOption
	recordWait  time.Duration
}

func NewExamService(store SessionRepository, questions QuestionProvider, opts ...ServiceOption) *ExamService {
	s := &ExamService{
		sessions:   store,
		questions:  questions,
		renderer:   render.Plain{},
		durations:  Durations{Default: 40 * time.Minute},
		log:        zerolog.Nop(),
		recordWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewExam()
	}
	s.log = s.log.With().Str("component", "exam_service").Logger()
	return s
}

// CreateSession registers a NotStarted session for a user and test type.
func (s *ExamService) CreateSession(userID, testType string) *Session {
	id := uuid.NewString()
	opts := append([]SessionOption{WithSubmitHook(s.onSubmitted)}, s.sessionOpts...)
	session := NewSession(id, userID, testType, opts...)
	s.sessions.Put(session)
	s.metrics.ActiveSessions.Inc()
	s.log.Debug().Str("session_id", id).Str("user_id", userID).Str("test_type", testType).Msg("session created")
	return session
}

// Session looks up a live session.
func (s *ExamService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// StartSession loads the question set and arms the countdown.
func (s *ExamService) StartSession(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	duration := s.durations.For(session.TestType())
	err = session.Start(ctx, s.questions, duration)
	switch {
	case err == nil:
		s.metrics.SessionsStarted.WithLabelValues(session.TestType()).Inc()
		snap := session.Snapshot()
		s.log.Info().
			Str("session_id", sessionID).
			Int("questions", snap.QuestionCount).
			Dur("duration", duration).
			Msg("session started")
		return snap, nil
	case errors.Is(err, domain.ErrLoadCanceled),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrAlreadySubmitted):
		return session.Snapshot(), err
	default:
		s.metrics.LoadFailures.WithLabelValues(session.TestType()).Inc()
		s.log.Error().Err(err).Str("session_id", sessionID).Str("test_type", session.TestType()).Msg("question load failed")
		return session.Snapshot(), err
	}
}

// CurrentQuestion returns the rendered current question.
func (s *ExamService) CurrentQuestion(sessionID string) (domain.QuestionView, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	view, err := session.CurrentQuestion()
	if err != nil {
		return domain.QuestionView{}, err
	}
	view.Prompt = s.renderer.Render(view.Prompt)
	for opt, markup := range view.Options {
		view.Options[opt] = s.renderer.Render(markup)
	}
	return view, nil
}

// Submit scores the session; repeated calls return the first result.
func (s *ExamService) Submit(sessionID string) (domain.ScoredResult, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	return session.Submit()
}

// Report returns the results view with rendered prompts.
func (s *ExamService) Report(sessionID string) (domain.Report, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := session.Report()
	if err != nil {
		return domain.Report{}, err
	}
	return s.renderReport(report), nil
}

// LookupReport serves the report of a live session, or of a closed one from the
// result recorder when it supports reads.
func (s *ExamService) LookupReport(ctx context.Context, sessionID string) (domain.Report, error) {
	report, err := s.Report(sessionID)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return report, err
	}
	lookup, ok := s.results.(ResultLookup)
	if !ok {
		return domain.Report{}, domain.ErrSessionNotFound
	}
	stored, err := lookup.Result(ctx, sessionID)
	if err != nil {
		return domain.Report{}, err
	}
	return s.renderReport(stored), nil
}

func (s *ExamService) renderReport(report domain.Report) domain.Report {
	rows := make([]domain.QuestionReport, len(report.Questions))
	for i, row := range report.Questions {
		row.Prompt = s.renderer.Render(row.Prompt)
		rows[i] = row
	}
	report.Questions = rows
	return report
}

// Abort cancels a pending question load.
func (s *ExamService) Abort(sessionID string) (bool, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return false, err
	}
	return session.Abort(), nil
}

// Close stops the session and drops it from the repository.
func (s *ExamService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	s.metrics.ActiveSessions.Dec()
}

func (s *ExamService) onSubmitted(report domain.Report) {
	s.metrics.Submissions.WithLabelValues(report.TestType, string(report.Result.Reason)).Inc()
	s.metrics.Accuracy.WithLabelValues(report.TestType).Observe(report.Summary.AccuracyPercent)
	s.log.Info().
		Str("session_id", report.SessionID).
		Str("reason", string(report.Result.Reason)).
		Int("score", report.Result.Score).
		Int("questions", report.QuestionCount).
		Msg("session submitted")

	if s.results == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.recordWait)
	defer cancel()
	if err := s.results.RecordResult(ctx, report); err != nil {
		s.log.Error().Err(err).Str("session_id", report.SessionID).Msg("record result failed")
	}
}
