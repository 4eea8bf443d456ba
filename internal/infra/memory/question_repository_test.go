package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionProvider: NewStaticQuestionLoader(map[string][]domain.Question{
			"topic-wise": sampleQuestions(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	first, err := repo.LoadQuestions(context.Background(), "topic-wise", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	first[0].Prompt = "mutated"
	second, err := repo.LoadQuestions(context.Background(), "topic-wise", "u1")
	if err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if second[0].Prompt != "What is 2 + 2?" {
		t.Fatalf("cache should not share slices with callers, got %q", second[0].Prompt)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuestionProvider: NewStaticQuestionLoader(map[string][]domain.Question{
			"topic-wise": sampleQuestions(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.LoadQuestions(context.Background(), "topic-wise", "u1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.LoadQuestions(context.Background(), "topic-wise", "u1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.calls)
	}
}

func TestStaticLoaderUnknownTestType(t *testing.T) {
	loader := NewStaticQuestionLoader(nil)
	if _, err := loader.LoadQuestions(context.Background(), "nope", "u1"); !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	app.QuestionProvider
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, testType, userID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionProvider.LoadQuestions(ctx, testType, userID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Prompt:  "What is 2 + 2?",
			Options: [4]string{"3", "4", "5", "6"},
			Correct: domain.OptionB,
		},
	}
}
