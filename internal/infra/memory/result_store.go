package memory

import (
	"context"
	"sync"

	"exam-session-service/internal/domain"
)

// ResultStore keeps submitted reports in memory. The first report per session wins.
type ResultStore struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
}

func NewResultStore() *ResultStore {
	return &ResultStore{reports: make(map[string]domain.Report)}
}

func (s *ResultStore) RecordResult(_ context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.SessionID]; !ok {
		s.reports[report.SessionID] = report
	}
	return nil
}

// Result returns the stored report for a session.
func (s *ResultStore) Result(_ context.Context, sessionID string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[sessionID]
	if !ok {
		return domain.Report{}, domain.ErrSessionNotFound
	}
	return report, nil
}

// Len reports how many results were recorded.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
