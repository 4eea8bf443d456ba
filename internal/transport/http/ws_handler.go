package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.ExamService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExamService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// indexPayload is shared by select, clear, review and jump. A missing index
// means the current question.
type indexPayload struct {
	Index  *int   `json:"index"`
	Option string `json:"option"`
}

type overviewPayload struct {
	Open bool `json:"open"`
}

type reviewResult struct {
	Index  int  `json:"index"`
	Marked bool `json:"marked"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// connection serializes writes for one socket. Writers must stop calling emit
// before send is closed.
type connection struct {
	send   chan outboundMessage[any]
	closed chan struct{}
}

func (c *connection) emit(msgType string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: msgType, Payload: payload}:
	case <-c.closed:
	}
}

func (c *connection) fail(err error) {
	c.emit("error", errorPayload{Code: errorCode(err), Message: err.Error()})
}

// ServeWS upgrades HTTP requests to websockets and drives one exam session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	testType := r.URL.Query().Get("testType")
	if userID == "" || testType == "" {
		http.Error(w, "missing userId or testType", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	session := h.service.CreateSession(userID, testType)
	sessionID := session.ID()
	log := h.log.With().Str("session_id", sessionID).Logger()
	defer h.service.Close(sessionID)

	updates, cancel := session.Subscribe()
	defer cancel()

	c := &connection{
		send:   make(chan outboundMessage[any], 16),
		closed: make(chan struct{}),
	}
	writerDone := make(chan struct{})
	var workers sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	workers.Add(1)
	go func() {
		defer workers.Done()
		resultSent := false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				c.emit("state", snap)
				if snap.Phase == domain.PhaseSubmitted && !resultSent {
					report, err := h.service.Report(sessionID)
					if err != nil {
						c.fail(err)
						continue
					}
					resultSent = true
					c.emit("result", report)
				}
			case <-c.closed:
				return
			}
		}
	}()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, session, inbound, &workers)
	}

	session.Abort()
	close(c.closed)
	workers.Wait()
	close(c.send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, c *connection, session *app.Session, inbound inboundMessage, workers *sync.WaitGroup) {
	sessionID := session.ID()
	switch inbound.Type {
	case "start":
		// the load may block; run it off the read loop so abort can be received
		workers.Add(1)
		go func() {
			defer workers.Done()
			if _, err := h.service.StartSession(ctx, sessionID); err != nil {
				c.fail(err)
			}
		}()
	case "select":
		var p indexPayload
		if !decode(c, inbound.Payload, &p) {
			return
		}
		opt, err := domain.ParseOption(p.Option)
		if err != nil {
			c.fail(err)
			return
		}
		if err := session.SelectAnswer(indexOrCurrent(session, p.Index), opt); err != nil {
			c.fail(err)
		}
	case "clear":
		var p indexPayload
		if !decode(c, inbound.Payload, &p) {
			return
		}
		if err := session.ClearAnswer(indexOrCurrent(session, p.Index)); err != nil {
			c.fail(err)
		}
	case "review":
		var p indexPayload
		if !decode(c, inbound.Payload, &p) {
			return
		}
		index := indexOrCurrent(session, p.Index)
		marked, err := session.ToggleReview(index)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("review", reviewResult{Index: index, Marked: marked})
	case "back":
		h.navigate(c, sessionID, session.GoBack)
	case "next":
		h.navigate(c, sessionID, session.GoNext)
	case "jump":
		var p indexPayload
		if !decode(c, inbound.Payload, &p) {
			return
		}
		if p.Index == nil {
			c.fail(domain.ErrIndexOutOfRange)
			return
		}
		index := *p.Index
		h.navigate(c, sessionID, func() (domain.Navigation, error) { return session.JumpTo(index) })
	case "overview":
		var p overviewPayload
		if !decode(c, inbound.Payload, &p) {
			return
		}
		var err error
		if p.Open {
			err = session.OpenOverview()
		} else {
			err = session.CloseOverview()
		}
		if err != nil {
			c.fail(err)
		}
	case "question":
		h.sendQuestion(c, sessionID)
	case "submit":
		// the result message follows the submitted state snapshot
		if _, err := h.service.Submit(sessionID); err != nil {
			c.fail(err)
		}
	case "reset":
		if err := session.Reset(); err != nil {
			c.fail(err)
		}
	case "abort":
		if _, err := h.service.Abort(sessionID); err != nil {
			c.fail(err)
		}
	default:
		c.emit("error", errorPayload{Code: "unsupported", Message: "unsupported message type"})
	}
}

func (h *WSHandler) navigate(c *connection, sessionID string, move func() (domain.Navigation, error)) {
	nav, err := move()
	if err != nil {
		c.fail(err)
		return
	}
	c.emit("navigated", nav)
	h.sendQuestion(c, sessionID)
}

func (h *WSHandler) sendQuestion(c *connection, sessionID string) {
	view, err := h.service.CurrentQuestion(sessionID)
	if err != nil {
		c.fail(err)
		return
	}
	c.emit("question", view)
}

func decode(c *connection, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.emit("error", errorPayload{Code: "bad_payload", Message: "invalid payload"})
		return false
	}
	return true
}

func indexOrCurrent(session *app.Session, index *int) int {
	if index != nil {
		return *index
	}
	return session.CurrentIndex()
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSessionLoading):
		return "loading"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, domain.ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, domain.ErrSessionNotActive):
		return "not_active"
	case errors.Is(err, domain.ErrNotSubmitted):
		return "not_submitted"
	case errors.Is(err, domain.ErrNoQuestions):
		return "no_questions"
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, domain.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, domain.ErrLoadCanceled):
		return "load_canceled"
	case errors.Is(err, domain.ErrQuestionSetNotFound):
		return "question_set_not_found"
	case errors.Is(err, domain.ErrMalformedPayload):
		return "malformed_payload"
	}
	return "load_failed"
}
