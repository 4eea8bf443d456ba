package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches question sets with TTL to avoid repeated provider hits.
type QuestionRepository struct {
	loader app.QuestionProvider
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[string]cachedPaper
}

type cachedPaper struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader app.QuestionProvider, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPaper),
	}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context, testType, userID string) ([]domain.Question, error) {
	key := paperKey(testType, userID)
	if questions, ok := r.cached(key); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if questions, ok := r.cached(key); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, testType, userID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedPaper{
			questions: questions,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (r *QuestionRepository) cached(key string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		return cloneQuestions(entry.questions), true
	}
	return nil, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func paperKey(testType, userID string) string {
	return testType + "|" + userID
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	copy(out, in)
	return out
}

// StaticQuestionLoader serves fixed question sets per test type (tests/demos).
type StaticQuestionLoader struct {
	papers map[string][]domain.Question
}

func NewStaticQuestionLoader(papers map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{papers: papers}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, testType, _ string) ([]domain.Question, error) {
	if questions, ok := l.papers[testType]; ok {
		return cloneQuestions(questions), nil
	}
	return nil, domain.ErrQuestionSetNotFound
}
