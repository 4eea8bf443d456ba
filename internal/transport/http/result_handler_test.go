package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	"github.com/rs/zerolog"
)

func TestResultHandlerServesClosedSession(t *testing.T) {
	loader := memory.NewStaticQuestionLoader(map[string][]domain.Question{"topic-wise": sampleQuestions()})
	service := app.NewExamService(memory.NewSessionStore(), loader,
		app.WithResultRecorder(memory.NewResultStore()),
		app.WithDurations(app.Durations{Default: 10 * time.Minute}),
		app.WithSessionOptions(app.WithManualTicks()),
	)
	mux := http.NewServeMux()
	mux.Handle("GET /results/{sessionId}", NewResultHandler(service, zerolog.Nop()))
	server := httptest.NewServer(mux)
	defer server.Close()

	session := service.CreateSession("u1", "topic-wise")
	if _, err := service.StartSession(context.Background(), session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if code := getStatus(t, server.URL+"/results/"+session.ID(), nil); code != http.StatusConflict {
		t.Fatalf("expected 409 before submit, got %d", code)
	}

	if err := session.SelectAnswer(0, domain.OptionB); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Submit(session.ID()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	service.Close(session.ID())

	var report domain.Report
	if code := getStatus(t, server.URL+"/results/"+session.ID(), &report); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if report.SessionID != session.ID() || report.Result.Score != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	var failure errorPayload
	if code := getStatus(t, server.URL+"/results/missing", &failure); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if failure.Code != "not_found" {
		t.Fatalf("expected not_found code, got %+v", failure)
	}
}

func getStatus(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}
