package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams a participant's attempt over a websocket.
type WSHandler struct {
	service     *app.QuizService
	coordinator *app.Coordinator
	log         logrus.FieldLogger
	upgrader    websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, coordinator *app.Coordinator, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service:     service,
		coordinator: coordinator,
		log:         logging.OrDiscard(log).WithField("component", "ws"),
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

type answerPayload struct {
	QuestionID int `json:"questionId"`
	Option     int `json:"option"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type answerResult struct {
	Answer   domain.Answer       `json:"answer"`
	Snapshot app.SessionSnapshot `json:"state"`
}

type resultPayload struct {
	Result domain.Result `json:"result"`
	Rank   int           `json:"rank,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS attaches a joined participant to their runner. The attempt starts
// when the instructor starts the discipline session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	disciplineID := r.URL.Query().Get("discipline")
	participantID := r.URL.Query().Get("participant")
	if disciplineID == "" || participantID == "" {
		http.Error(w, "missing discipline or participant", http.StatusBadRequest)
		return
	}
	if _, err := h.service.Discipline(disciplineID); err != nil {
		writeError(w, h.log, err)
		return
	}
	runner, err := h.service.Runner(r.Context(), participantID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if runner.Participant().DisciplineID != disciplineID {
		writeError(w, h.log, domain.ErrParticipantNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithFields(logrus.Fields{"discipline": disciplineID, "participant": participantID})
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	states, cancelStates := runner.Subscribe()
	defer cancelStates()
	sessions, cancelSessions, err := h.coordinator.Subscribe(ctx, disciplineID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelSessions()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	// push gives up once the connection is closing or the writer is gone.
	push := func(msgType string, payload any) bool {
		select {
		case send <- outboundMessage[any]{Type: msgType, Payload: payload}:
			return true
		case <-closeSignals:
			return false
		case <-writerDone:
			return false
		}
	}

	forwarders.Add(2)
	go func() {
		defer forwarders.Done()
		resultSent := false
		for {
			select {
			case snap, ok := <-states:
				if !ok {
					return
				}
				if !push("state", snap) {
					return
				}
				if snap.Phase == app.PhaseCompleted.String() && !resultSent {
					if result, ok := runner.Result(); ok {
						resultSent = true
						if !push("result", h.resultPayload(ctx, disciplineID, result)) {
							return
						}
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()
	go func() {
		defer forwarders.Done()
		for {
			select {
			case status, ok := <-sessions:
				if !ok {
					return
				}
				if !push("session", status) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		if err := h.service.AwaitStart(ctx, participantID); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("waiting for session start failed")
		}
	}()

	log.Info("participant connected")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !h.dispatch(ctx, runner, inbound, push) {
			break
		}
	}

	close(closeSignals)
	cancelCtx()
	forwarders.Wait()
	close(send)
	<-writerDone

	if _, done := runner.Result(); done {
		h.service.Release(participantID)
	}
	log.Info("participant disconnected")
}

// dispatch applies one client message; it returns false when the writer is gone.
func (h *WSHandler) dispatch(ctx context.Context, runner *app.Runner, inbound inboundMessage, push func(string, any) bool) bool {
	fail := func(err error) bool {
		return push("error", errorPayload{Message: err.Error()})
	}
	switch inbound.Type {
	case "start":
		// the state subscription carries the new snapshot
		if _, err := runner.Start(); err != nil {
			return fail(err)
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return push("error", errorPayload{Message: "invalid answer payload"})
		}
		answer, snap, err := runner.Answer(payload.QuestionID, payload.Option)
		if err != nil {
			return fail(err)
		}
		return push("answerResult", answerResult{Answer: answer, Snapshot: snap})
	case "next":
		runner.Advance(1)
	case "previous":
		runner.Advance(-1)
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return push("error", errorPayload{Message: "invalid goto payload"})
		}
		runner.GoTo(payload.Index)
	case "submit":
		if _, err := runner.Submit(ctx); err != nil {
			return fail(err)
		}
	case "reset":
		runner.Reset()
	default:
		return push("error", errorPayload{Message: "unsupported message type"})
	}
	return true
}

func (h *WSHandler) resultPayload(ctx context.Context, disciplineID string, result domain.Result) resultPayload {
	payload := resultPayload{Result: result}
	if _, rank, err := h.service.Result(ctx, disciplineID, result.ParticipantID); err == nil {
		payload.Rank = rank
	}
	return payload
}
