package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// QuestionProvider fetches the question set for a test type and user.
type QuestionProvider interface {
	LoadQuestions(ctx context.Context, testType, userID string) ([]domain.Question, error)
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now, for deterministic timing in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTickInterval changes the countdown period (one second by default).
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tickEvery = d
		}
	}
}

// WithManualTicks disables the background countdown; the caller drives Tick.
func WithManualTicks() SessionOption {
	return func(s *Session) { s.manualTicks = true }
}

// WithSubmitHook registers fn to run once, outside the session lock, after the
// session is scored.
func WithSubmitHook(fn func(domain.Report)) SessionOption {
	return func(s *Session) { s.onSubmit = fn }
}

// Session is one user's timed exam. Every event (user action, tick, load
// completion) runs to completion under mu before the next one is applied.
type Session struct {
	id          string
	userID      string
	testType    string
	createdAt   time.Time
	now         func() time.Time
	tickEvery   time.Duration
	manualTicks bool
	onSubmit    func(domain.Report)

	mu           sync.Mutex
	phase        domain.Phase
	questions    []domain.Question
	current      int
	overviewOpen bool
	sheet        *answerSheet
	timing       *timingTracker
	report       *domain.Report
	loadErr      error
	cancelLoad   context.CancelFunc
	aborted      bool
	closed       bool
	stopTicker   context.CancelFunc
	subscribers  map[chan domain.Snapshot]struct{}
}

// NewSession creates a session in the NotStarted phase.
func NewSession(id, userID, testType string, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		userID:      userID,
		testType:    testType,
		now:         time.Now,
		tickEvery:   time.Second,
		phase:       domain.PhaseNotStarted,
		sheet:       newAnswerSheet(),
		timing:      newTimingTracker(),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	return s
}

func (s *Session) ID() string       { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) TestType() string { return s.testType }

// CreatedAt is when the session object was created, not when it started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LoadError returns the error that moved the session to Failed, if any.
func (s *Session) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Start loads the question set and arms the countdown. The provider call runs
// without holding the lock; every other operation is rejected while it is
// outstanding. A failed load leaves the session Failed until Reset.
func (s *Session) Start(ctx context.Context, provider QuestionProvider, duration time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionNotActive
	}
	switch s.phase {
	case domain.PhaseNotStarted:
	case domain.PhaseSubmitted:
		s.mu.Unlock()
		return domain.ErrAlreadySubmitted
	default:
		s.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.phase = domain.PhaseLoading
	s.cancelLoad = cancel
	s.aborted = false
	s.loadErr = nil
	s.broadcastLocked()
	s.mu.Unlock()

	questions, err := provider.LoadQuestions(loadCtx, s.testType, s.userID)

	s.mu.Lock()
	cancel()
	s.cancelLoad = nil
	aborted := s.aborted
	s.aborted = false
	// a load that completed wins over an abort that raced it, unless the session is gone
	if s.closed || (aborted && err != nil) {
		s.phase = domain.PhaseNotStarted
		s.broadcastLocked()
		s.mu.Unlock()
		return domain.ErrLoadCanceled
	}
	if err != nil {
		s.phase = domain.PhaseFailed
		s.loadErr = err
		s.broadcastLocked()
		s.mu.Unlock()
		return fmt.Errorf("load questions: %w", err)
	}

	s.questions = make([]domain.Question, len(questions))
	for i, q := range questions {
		q.Index = i
		s.questions[i] = q
	}
	s.current = 0
	s.phase = domain.PhaseActive
	s.timing.arm(int(duration/time.Second), s.now())

	var (
		report domain.Report
		fresh  bool
	)
	if s.timing.remaining == 0 {
		report, fresh, _ = s.submitLocked(domain.SubmitTimeout)
	} else {
		s.startTickerLocked()
		s.broadcastLocked()
	}
	s.mu.Unlock()

	if fresh {
		s.notifySubmitted(report)
	}
	return nil
}

// Abort cancels an in-flight load. It reports whether a load was pending.
// A load that already returned its questions is kept.
func (s *Session) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseLoading || s.cancelLoad == nil {
		return false
	}
	s.aborted = true
	s.cancelLoad()
	return true
}

// Reset returns a Failed session to NotStarted so Start can be retried.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case domain.PhaseNotStarted:
		return nil
	case domain.PhaseFailed:
		s.phase = domain.PhaseNotStarted
		s.loadErr = nil
		s.broadcastLocked()
		return nil
	case domain.PhaseSubmitted:
		return domain.ErrAlreadySubmitted
	}
	return domain.ErrAlreadyStarted
}

// Close stops background work without scoring. Used when the client goes away.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseLoading && s.cancelLoad != nil {
		s.aborted = true
		s.cancelLoad()
	}
	s.closed = true
	s.stopTickerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// SelectAnswer records opt for the question at index.
func (s *Session) SelectAnswer(index int, opt domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	if !opt.Valid() {
		return domain.ErrInvalidOption
	}
	s.sheet.choose(index, opt)
	s.broadcastLocked()
	return nil
}

// ClearAnswer removes the selection and confidence at index.
func (s *Session) ClearAnswer(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	s.sheet.clear(index)
	s.broadcastLocked()
	return nil
}

// ToggleReview flips the review mark at index and returns the new value.
func (s *Session) ToggleReview(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return false, err
	}
	marked := s.sheet.toggleReview(index)
	s.broadcastLocked()
	return marked, nil
}

// CurrentIndex returns the question pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// GoNext flushes elapsed time and moves forward, stopping at the last question.
func (s *Session) GoNext() (domain.Navigation, error) {
	return s.move(func(cur int) (int, error) { return cur + 1, nil }, false)
}

// GoBack flushes elapsed time and moves back, stopping at the first question.
func (s *Session) GoBack() (domain.Navigation, error) {
	return s.move(func(cur int) (int, error) { return cur - 1, nil }, false)
}

// JumpTo flushes elapsed time, moves to index and closes the overview grid.
func (s *Session) JumpTo(index int) (domain.Navigation, error) {
	return s.move(func(int) (int, error) {
		if index < 0 || index >= len(s.questions) {
			return 0, domain.ErrIndexOutOfRange
		}
		return index, nil
	}, true)
}

// move runs target under the lock; out-of-range results are clamped.
func (s *Session) move(target func(cur int) (int, error), closeOverview bool) (domain.Navigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return domain.Navigation{}, err
	}
	count := len(s.questions)
	if count == 0 {
		return domain.Navigation{}, domain.ErrNoQuestions
	}
	next, err := target(s.current)
	if err != nil {
		return domain.Navigation{}, err
	}

	s.timing.flush(s.current, s.now())

	if next < 0 {
		next = 0
	}
	if next > count-1 {
		next = count - 1
	}
	nav := domain.Navigation{From: s.current, To: next}
	s.current = next
	if closeOverview {
		s.overviewOpen = false
		nav.OverviewClosed = true
	}
	s.broadcastLocked()
	return nav, nil
}

// OpenOverview shows the question grid.
func (s *Session) OpenOverview() error {
	return s.setOverview(true)
}

// CloseOverview hides the question grid.
func (s *Session) CloseOverview() error {
	return s.setOverview(false)
}

func (s *Session) setOverview(open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	s.overviewOpen = open
	s.broadcastLocked()
	return nil
}

// CurrentQuestion returns the unrendered view of the current question.
func (s *Session) CurrentQuestion() (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return domain.QuestionView{}, err
	}
	if len(s.questions) == 0 {
		return domain.QuestionView{}, domain.ErrNoQuestions
	}
	q := s.questions[s.current]
	view := domain.QuestionView{
		Index:   s.current,
		Count:   len(s.questions),
		Prompt:  q.Prompt,
		Options: make(map[domain.Option]string, len(domain.Options)),
		Marked:  s.sheet.marked(s.current),
	}
	for _, opt := range domain.Options {
		view.Options[opt] = q.OptionMarkup(opt)
	}
	if sel, ok := s.sheet.answer(s.current); ok {
		view.Selected = sel
	}
	return view, nil
}

// Tick advances the countdown by one second. Reaching zero submits the session
// exactly once; ticks outside Active do nothing.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return
	}
	var (
		report domain.Report
		fresh  bool
	)
	if s.timing.tick() {
		report, fresh, _ = s.submitLocked(domain.SubmitTimeout)
	} else {
		s.broadcastLocked()
	}
	s.mu.Unlock()

	if fresh {
		s.notifySubmitted(report)
	}
}

// Submit scores the session. Calling it again returns the stored result.
func (s *Session) Submit() (domain.ScoredResult, error) {
	s.mu.Lock()
	report, fresh, err := s.submitLocked(domain.SubmitManual)
	s.mu.Unlock()
	if err != nil {
		return domain.ScoredResult{}, err
	}
	if fresh {
		s.notifySubmitted(report)
	}
	return report.Result, nil
}

// Report returns the scored result and analytics of a submitted session.
func (s *Session) Report() (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return domain.Report{}, domain.ErrNotSubmitted
	}
	return *s.report, nil
}

// Snapshot returns the observable state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, primed with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) submitLocked(reason domain.SubmitReason) (domain.Report, bool, error) {
	switch s.phase {
	case domain.PhaseSubmitted:
		return *s.report, false, nil
	case domain.PhaseLoading:
		return domain.Report{}, false, domain.ErrSessionLoading
	case domain.PhaseActive:
	default:
		return domain.Report{}, false, domain.ErrSessionNotActive
	}

	s.timing.flush(s.current, s.now())
	s.stopTickerLocked()

	score, statuses := scoreQuestions(s.questions, s.sheet)
	result := domain.ScoredResult{
		Score:          score,
		Statuses:       statuses,
		TotalTimeTaken: s.timing.taken,
		Reason:         reason,
	}
	report := s.buildReportLocked(result)
	s.report = &report
	s.phase = domain.PhaseSubmitted
	s.overviewOpen = false
	s.broadcastLocked()
	return report, true, nil
}

func (s *Session) buildReportLocked(result domain.ScoredResult) domain.Report {
	rows := make([]domain.QuestionReport, len(s.questions))
	for i, q := range s.questions {
		sel, _ := s.sheet.answer(i)
		recorded := s.sheet.confidenceAt(i)
		rows[i] = domain.QuestionReport{
			Index:               i,
			Prompt:              q.Prompt,
			Status:              result.Statuses[i],
			Selected:            sel,
			Correct:             q.Correct,
			TimeSpent:           s.timing.spentAt(i),
			RecordedConfidence:  recorded,
			EffectiveConfidence: effectiveConfidence(result.Statuses[i], recorded),
		}
	}
	return domain.Report{
		SessionID:     s.id,
		UserID:        s.userID,
		TestType:      s.testType,
		QuestionCount: len(s.questions),
		Result:        result,
		Summary:       summarize(result, s.sheet, s.timing),
		Questions:     rows,
		TimeSpent:     s.timing.spentCopy(),
		Confidence:    s.sheet.confidenceCopy(),
		SubmittedAt:   s.now(),
	}
}

func (s *Session) notifySubmitted(report domain.Report) {
	if s.onSubmit != nil {
		s.onSubmit(report)
	}
}

func (s *Session) requireActiveLocked() error {
	switch s.phase {
	case domain.PhaseActive:
		return nil
	case domain.PhaseLoading:
		return domain.ErrSessionLoading
	case domain.PhaseSubmitted:
		return domain.ErrAlreadySubmitted
	}
	return domain.ErrSessionNotActive
}

func (s *Session) checkIndexLocked(index int) error {
	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if len(s.questions) == 0 {
		return domain.ErrNoQuestions
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrIndexOutOfRange
	}
	return nil
}

func (s *Session) startTickerLocked() {
	if s.manualTicks {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTicker = cancel
	every := s.tickEvery
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

func (s *Session) stopTickerLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow reader: replace the stale snapshot with the newest one
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	tiles := make([]domain.TileState, len(s.questions))
	for i := range s.questions {
		tiles[i] = s.sheet.tile(i)
	}
	snap := domain.Snapshot{
		SessionID:     s.id,
		UserID:        s.userID,
		TestType:      s.testType,
		Phase:         s.phase,
		QuestionCount: len(s.questions),
		CurrentIndex:  s.current,
		TimeRemaining: s.timing.remaining,
		TimeTaken:     s.timing.taken,
		OverviewOpen:  s.overviewOpen,
		Selected:      s.sheet.selectedCopy(),
		Marked:        s.sheet.reviewCopy(),
		Tiles:         tiles,
	}
	if s.loadErr != nil {
		snap.Error = s.loadErr.Error()
	}
	return snap
}
