package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exam-session-service/internal/domain"
)

const paperEndpoint = "addquestionpaper"

// HTTPProvider requests a question paper from the question API.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type paperRequest struct {
	TestType string `json:"testType"`
	UserID   string `json:"UserID"`
}

type paperResponse struct {
	AddedQuestions *[]wireQuestion `json:"addedQuestions"`
}

type wireQuestion struct {
	Question      string `json:"Question"`
	OptionA       string `json:"OptionA"`
	OptionB       string `json:"OptionB"`
	OptionC       string `json:"OptionC"`
	OptionD       string `json:"OptionD"`
	CorrectOption string `json:"CorrectOption"`
}

func (p *HTTPProvider) LoadQuestions(ctx context.Context, testType, userID string) ([]domain.Question, error) {
	body, err := json.Marshal(paperRequest{TestType: testType, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("encode paper request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+paperEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build paper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request question paper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("question api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload paperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode question paper: %w: %v", domain.ErrMalformedPayload, err)
	}
	if payload.AddedQuestions == nil {
		return nil, domain.ErrMalformedPayload
	}
	return toQuestions(*payload.AddedQuestions)
}

func toQuestions(wire []wireQuestion) ([]domain.Question, error) {
	questions := make([]domain.Question, len(wire))
	for i, w := range wire {
		correct, err := domain.ParseOption(w.CorrectOption)
		if err != nil {
			return nil, fmt.Errorf("question %d correct option %q: %w", i, w.CorrectOption, domain.ErrMalformedPayload)
		}
		questions[i] = domain.Question{
			Index:   i,
			Prompt:  w.Question,
			Options: [4]string{w.OptionA, w.OptionB, w.OptionC, w.OptionD},
			Correct: correct,
		}
	}
	return questions, nil
}
