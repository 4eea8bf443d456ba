package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"github.com/rs/zerolog"
)

// ResultHandler serves GET /results/{sessionId}: the report of a submitted
// session, live or already closed.
type ResultHandler struct {
	service *app.ExamService
	log     zerolog.Logger
}

func NewResultHandler(service *app.ExamService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		service: service,
		log:     log.With().Str("component", "results").Logger(),
	}
}

func (h *ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	report, err := h.service.LookupReport(r.Context(), sessionID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, errorCode(err), err)
		return
	case errors.Is(err, domain.ErrNotSubmitted):
		writeError(w, http.StatusConflict, errorCode(err), err)
		return
	default:
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("result lookup failed")
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.log.Debug().Err(err).Msg("write result")
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorPayload{Code: code, Message: err.Error()})
}
