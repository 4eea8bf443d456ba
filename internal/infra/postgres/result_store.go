package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exam-session-service/internal/domain"
	"github.com/uptrace/bun"
)

type examResult struct {
	bun.BaseModel `bun:"table:exam_results,alias:er"`

	SessionID       string        `bun:"session_id,pk"`
	UserID          string        `bun:"user_id,notnull"`
	TestType        string        `bun:"test_type,notnull"`
	Score           int           `bun:"score,notnull"`
	QuestionCount   int           `bun:"question_count,notnull"`
	TotalTimeTaken  int           `bun:"total_time_taken,notnull"`
	Reason          string        `bun:"reason,notnull"`
	AccuracyPercent float64       `bun:"accuracy_percent,notnull"`
	Report          domain.Report `bun:"report,type:jsonb"`
	SubmittedAt     time.Time     `bun:"submitted_at,notnull"`
}

// ResultStore writes submitted reports to the exam_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

// RecordResult inserts the report; a second insert for the same session is ignored.
func (s *ResultStore) RecordResult(ctx context.Context, report domain.Report) error {
	row := &examResult{
		SessionID:       report.SessionID,
		UserID:          report.UserID,
		TestType:        report.TestType,
		Score:           report.Result.Score,
		QuestionCount:   report.QuestionCount,
		TotalTimeTaken:  report.Result.TotalTimeTaken,
		Reason:          string(report.Result.Reason),
		AccuracyPercent: report.Summary.AccuracyPercent,
		Report:          report,
		SubmittedAt:     report.SubmittedAt,
	}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (session_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}
	return nil
}

// Result loads the stored report for a session.
func (s *ResultStore) Result(ctx context.Context, sessionID string) (domain.Report, error) {
	row := new(examResult)
	err := s.db.NewSelect().Model(row).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("select exam result: %w", err)
	}
	return row.Report, nil
}
