package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exam holds the exam session collectors.
type Exam struct {
	registry *prometheus.Registry

	SessionsStarted *prometheus.CounterVec
	LoadFailures    *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	Accuracy        *prometheus.HistogramVec
}

// NewExam registers the collectors on a fresh registry.
func NewExam() *Exam {
	m := &Exam{
		registry: prometheus.NewRegistry(),
		SessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_sessions_started_total",
				Help: "Exam sessions whose question set loaded",
			},
			[]string{"test_type"},
		),
		LoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_question_load_failures_total",
				Help: "Question set loads that failed",
			},
			[]string{"test_type"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_submissions_total",
				Help: "Scored exam sessions",
			},
			[]string{"test_type", "reason"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "exam_active_sessions",
				Help: "Sessions currently held in memory",
			},
		),
		Accuracy: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exam_accuracy_percent",
				Help:    "Accuracy of submitted sessions",
				Buckets: []float64{10, 25, 40, 50, 60, 75, 90, 100},
			},
			[]string{"test_type"},
		),
	}
	m.registry.MustRegister(m.SessionsStarted, m.LoadFailures, m.Submissions, m.ActiveSessions, m.Accuracy)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Exam) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Exam) Registry() *prometheus.Registry {
	return m.registry
}
