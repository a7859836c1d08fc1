package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"learnworld-service/internal/app"
	"learnworld-service/internal/logger"
)

type WSHandler struct {
	service  *app.ProgressService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ProgressService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
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

type submitPayload struct {
	LessonID string            `json:"lessonId"`
	Answers  []json.RawMessage `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets, streams leaderboard updates
// and accepts lesson submissions from the connected user.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if _, err := h.service.Profile(r.Context(), userID); err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()

	initial, err := h.service.Snapshot(r.Context())
	if err != nil {
		_ = conn.WriteJSON(errorMessage("leaderboard unavailable"))
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	out := outbox{send: send, writerDone: writerDone}
	out.push(outboundMessage[any]{Type: "joined", Payload: initial})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "submit":
			reply = h.submit(r, userID, inbound.Payload)
		default:
			reply = errorMessage("unsupported message type")
		}
		if !out.push(reply) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// outbox queues messages for the connection writer.
type outbox struct {
	send       chan<- outboundMessage[any]
	writerDone <-chan struct{}
}

// push reports false once the writer has stopped instead of blocking.
func (o outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.writerDone:
		return false
	}
}

func (h *WSHandler) submit(r *http.Request, userID string, raw json.RawMessage) outboundMessage[any] {
	var payload submitPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.LessonID == "" {
		return errorMessage("invalid submit payload")
	}
	summary, err := h.service.SubmitLesson(r.Context(), userID, payload.LessonID, ParseAnswers(payload.Answers))
	if err != nil {
		return errorMessage(err.Error())
	}
	return outboundMessage[any]{Type: "submitResult", Payload: summary}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
