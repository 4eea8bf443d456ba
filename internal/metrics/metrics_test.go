package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesExamCollectors(t *testing.T) {
	m := NewExam()
	m.SessionsStarted.WithLabelValues("topic-wise").Inc()
	m.Submissions.WithLabelValues("topic-wise", "timeout").Inc()
	m.Accuracy.WithLabelValues("topic-wise").Observe(75)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`exam_sessions_started_total{test_type="topic-wise"} 1`,
		`exam_submissions_total{reason="timeout",test_type="topic-wise"} 1`,
		`exam_accuracy_percent_count{test_type="topic-wise"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in scrape output:\n%s", want, body)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewExam(), NewExam()
	a.ActiveSessions.Inc()

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "exam_active_sessions" && f.GetMetric()[0].GetGauge().GetValue() != 0 {
			t.Fatalf("registries share state")
		}
	}
}
