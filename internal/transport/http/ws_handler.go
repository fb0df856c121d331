package http

import (
	"context"
	"encoding/json"
	"net/http"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		service: service,
		log:     log,
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

type nicknamePayload struct {
	Nickname string `json:"nickname"`
}

type loadPayload struct {
	Language string `json:"language"`
}

type startPayload struct {
	Mode     domain.Mode `json:"mode"`
	Language string      `json:"language"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	ChoiceID   string `json:"choiceId"`
}

type stepPayload struct {
	Step domain.Step `json:"step"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type nicknameResult struct {
	Nickname string `json:"nickname"`
	Accepted bool   `json:"accepted"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session
// per connection. The session is closed when the connection ends.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.service.Open(ctx)
	defer h.service.Close(session.ID())
	log := h.log.WithField("session", session.ID())

	if name := r.URL.Query().Get("name"); name != "" {
		session.SetNickname(name)
	}

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	// only this loop and the read loop below send; both stop before send is closed
	sendOrDrop := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	sendOrDrop(outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: session.ID()}})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				sendOrDrop(outboundMessage[any]{Type: "state", Payload: newStateView(session.ID(), state, resultFor(session))})
			case <-closeSignals:
				return
			}
		}
	}()

	if lang := r.URL.Query().Get("lang"); lang != "" {
		h.load(ctx, session, lang, sendOrDrop)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(ctx, session, inbound, sendOrDrop)
	}

	cancel()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, session *app.Session, inbound inboundMessage, send func(outboundMessage[any])) {
	fail := func(message string) {
		send(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	switch inbound.Type {
	case "nickname":
		var payload nicknamePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid nickname payload")
			return
		}
		accepted := session.SetNickname(payload.Nickname)
		send(outboundMessage[any]{Type: "nickname", Payload: nicknameResult{Nickname: payload.Nickname, Accepted: accepted}})

	case "load":
		var payload loadPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid load payload")
			return
		}
		h.load(ctx, session, payload.Language, send)

	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid start payload")
			return
		}
		lang, err := domain.ParseLanguage(payload.Language)
		if err != nil {
			fail(err.Error())
			return
		}
		if payload.Mode == "" {
			payload.Mode = domain.ModeStandard
		}
		if !session.Start(payload.Mode, lang) {
			fail("quiz cannot be started: load questions first")
		}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid answer payload")
			return
		}
		record, ok := session.SubmitAnswer(payload.QuestionID, payload.ChoiceID)
		if !ok {
			fail("answer rejected")
			return
		}
		send(outboundMessage[any]{Type: "answerResult", Payload: record})

	case "reset":
		session.ResetQuiz()

	case "restart":
		if !session.Restart() {
			fail("restart is only possible from the result step")
		}

	case "step":
		var payload stepPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid step payload")
			return
		}
		if !session.SetStep(payload.Step) {
			fail("step change not allowed")
		}

	default:
		fail("unsupported message type")
	}
}

// load runs in the background so the connection stays responsive; the
// outcome reaches the client through state updates.
func (h *WSHandler) load(ctx context.Context, session *app.Session, code string, send func(outboundMessage[any])) {
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		send(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	go func() {
		_ = session.LoadQuestions(ctx, lang)
	}()
}
