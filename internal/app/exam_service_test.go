package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	"exam-session-service/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type bracketRenderer struct{}

func (bracketRenderer) Render(markup string) string { return "[" + markup + "]" }

func newTestService(t *testing.T, durations app.Durations) (*app.ExamService, *memory.SessionStore, *memory.ResultStore, *metrics.Exam) {
	t.Helper()
	store := memory.NewSessionStore()
	results := memory.NewResultStore()
	m := metrics.NewExam()
	loader := memory.NewStaticQuestionLoader(map[string][]domain.Question{
		"topic-wise": fourQuestions(),
	})
	svc := app.NewExamService(store, loader,
		app.WithResultRecorder(results),
		app.WithRenderer(bracketRenderer{}),
		app.WithMetrics(m),
		app.WithDurations(durations),
		app.WithSessionOptions(app.WithManualTicks()),
	)
	return svc, store, results, m
}

func TestExamServiceSubmitRecordsResult(t *testing.T) {
	svc, _, results, m := newTestService(t, app.Durations{Default: time.Hour})
	session := svc.CreateSession("u1", "topic-wise")

	snap, err := svc.StartSession(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Phase != domain.PhaseActive || snap.TimeRemaining != 3600 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := session.SelectAnswer(0, domain.OptionA); err != nil {
		t.Fatalf("select: %v", err)
	}
	result, err := svc.Submit(session.ID())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 {
		t.Fatalf("expected score 1, got %d", result.Score)
	}
	if _, err := svc.Submit(session.ID()); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	stored, err := results.Result(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("expected result to be recorded: %v", err)
	}
	if stored.UserID != "u1" || stored.Result.Score != 1 {
		t.Fatalf("unexpected stored report %+v", stored)
	}
	if results.Len() != 1 {
		t.Fatalf("expected one recorded result, got %d", results.Len())
	}

	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("topic-wise", "manual")); got != 1 {
		t.Fatalf("expected one manual submission metric, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsStarted.WithLabelValues("topic-wise")); got != 1 {
		t.Fatalf("expected one started session metric, got %v", got)
	}
}

func TestExamServiceRendersQuestionAndReport(t *testing.T) {
	svc, _, _, _ := newTestService(t, app.Durations{Default: time.Hour})
	session := svc.CreateSession("u1", "topic-wise")
	if _, err := svc.StartSession(context.Background(), session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}

	view, err := svc.CurrentQuestion(session.ID())
	if err != nil {
		t.Fatalf("current question: %v", err)
	}
	if view.Prompt != "[q0 prompt]" || view.Options[domain.OptionC] != "[q0-C]" {
		t.Fatalf("expected rendered view, got %+v", view)
	}

	if _, err := svc.Report(session.ID()); !errors.Is(err, domain.ErrNotSubmitted) {
		t.Fatalf("expected not submitted, got %v", err)
	}
	if _, err := svc.Submit(session.ID()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	report, err := svc.Report(session.ID())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Questions[3].Prompt != "[q3 prompt]" {
		t.Fatalf("expected rendered report prompt, got %q", report.Questions[3].Prompt)
	}
	if raw, _ := session.Report(); raw.Questions[3].Prompt != "q3 prompt" {
		t.Fatalf("rendering must not alter the stored report, got %q", raw.Questions[3].Prompt)
	}
}

func TestExamServiceDurationsPerTestType(t *testing.T) {
	svc, _, _, _ := newTestService(t, app.Durations{
		ByTestType: map[string]time.Duration{"topic-wise": 90 * time.Second},
		Default:    time.Hour,
	})
	session := svc.CreateSession("u1", "topic-wise")
	snap, err := svc.StartSession(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.TimeRemaining != 90 {
		t.Fatalf("expected 90s countdown, got %d", snap.TimeRemaining)
	}
}

func TestDurationsMatchTestTypeCaseInsensitively(t *testing.T) {
	d := app.Durations{
		ByTestType: map[string]time.Duration{"topic-wise": 40 * time.Minute, "full-length": 180 * time.Minute},
		Default:    40 * time.Minute,
	}
	if got := d.For("Full-length"); got != 180*time.Minute {
		t.Fatalf("expected 180m for Full-length, got %s", got)
	}
	if got := d.For("FULL-LENGTH"); got != 180*time.Minute {
		t.Fatalf("expected 180m for FULL-LENGTH, got %s", got)
	}
	if got := d.For("unknown"); got != 40*time.Minute {
		t.Fatalf("expected default for unknown, got %s", got)
	}
}

func TestExamServiceFullLengthCountdown(t *testing.T) {
	store := memory.NewSessionStore()
	loader := memory.NewStaticQuestionLoader(map[string][]domain.Question{"Full-length": fourQuestions()})
	svc := app.NewExamService(store, loader,
		app.WithDurations(app.Durations{
			ByTestType: map[string]time.Duration{"full-length": 180 * time.Minute},
			Default:    40 * time.Minute,
		}),
		app.WithSessionOptions(app.WithManualTicks()),
	)
	session := svc.CreateSession("u1", "Full-length")
	snap, err := svc.StartSession(context.Background(), session.ID())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.TimeRemaining != 180*60 {
		t.Fatalf("expected 10800s, got %d", snap.TimeRemaining)
	}
}

func TestExamServiceTimeoutRecordsResult(t *testing.T) {
	svc, _, results, m := newTestService(t, app.Durations{Default: 2 * time.Second})
	session := svc.CreateSession("u1", "topic-wise")
	if _, err := svc.StartSession(context.Background(), session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}
	session.Tick()
	session.Tick()

	stored, err := results.Result(context.Background(), session.ID())
	if err != nil || stored.Result.Reason != domain.SubmitTimeout {
		t.Fatalf("expected timeout result to be recorded, got %+v", stored)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("topic-wise", "timeout")); got != 1 {
		t.Fatalf("expected one timeout submission metric, got %v", got)
	}
}

func TestExamServiceLoadFailure(t *testing.T) {
	svc, _, _, m := newTestService(t, app.Durations{Default: time.Hour})
	session := svc.CreateSession("u1", "unknown-type")

	snap, err := svc.StartSession(context.Background(), session.ID())
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected question set not found, got %v", err)
	}
	if snap.Phase != domain.PhaseFailed {
		t.Fatalf("expected failed, got %s", snap.Phase)
	}
	if got := testutil.ToFloat64(m.LoadFailures.WithLabelValues("unknown-type")); got != 1 {
		t.Fatalf("expected one load failure metric, got %v", got)
	}
}

func TestExamServiceCloseAndUnknownSession(t *testing.T) {
	svc, store, _, m := newTestService(t, app.Durations{Default: time.Hour})
	session := svc.CreateSession("u1", "topic-wise")
	if store.Len() != 1 {
		t.Fatalf("expected session to be stored")
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Fatalf("expected one active session, got %v", got)
	}

	svc.Close(session.ID())
	if store.Len() != 0 {
		t.Fatalf("expected session to be removed")
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Fatalf("expected no active sessions, got %v", got)
	}

	if _, err := svc.StartSession(context.Background(), session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Submit("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Abort("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	svc.Close("missing")
}

func TestExamServiceLookupReportAfterClose(t *testing.T) {
	svc, _, _, _ := newTestService(t, app.Durations{Default: time.Hour})
	ctx := context.Background()
	session := svc.CreateSession("u1", "topic-wise")
	if _, err := svc.StartSession(ctx, session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.LookupReport(ctx, session.ID()); !errors.Is(err, domain.ErrNotSubmitted) {
		t.Fatalf("expected not submitted for a live session, got %v", err)
	}
	if err := session.SelectAnswer(1, domain.OptionB); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := svc.Submit(session.ID()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	svc.Close(session.ID())

	report, err := svc.LookupReport(ctx, session.ID())
	if err != nil {
		t.Fatalf("lookup closed session: %v", err)
	}
	if report.Result.Score != 1 || report.Questions[0].Prompt != "[q0 prompt]" {
		t.Fatalf("expected stored rendered report, got %+v", report)
	}
	if _, err := svc.LookupReport(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExamServiceLookupReportWithoutRecorder(t *testing.T) {
	loader := memory.NewStaticQuestionLoader(map[string][]domain.Question{"topic-wise": fourQuestions()})
	svc := app.NewExamService(memory.NewSessionStore(), loader)
	if _, err := svc.LookupReport(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
