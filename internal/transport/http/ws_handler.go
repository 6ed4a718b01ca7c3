package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"study-vault/internal/app"
	"study-vault/internal/auth"
	"study-vault/internal/domain"
)

// WSHandler streams notification events to a signed-in user's sessions.
type WSHandler struct {
	hub           *app.Hub
	notifications *app.NotificationService
	tokens        *auth.TokenIssuer
	upgrader      websocket.Upgrader
}

func NewWSHandler(hub *app.Hub, notifications *app.NotificationService, tokens *auth.TokenIssuer) *WSHandler {
	return &WSHandler{
		hub:           hub,
		notifications: notifications,
		tokens:        tokens,
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

type joinPayload struct {
	UserID string `json:"userId"`
}

type dismissPayload struct {
	ID string `json:"id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS authenticates the token query parameter, upgrades the connection and waits for a
// join message naming the same user before attaching the session to the hub.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var eventsDone chan struct{}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	errorMsg := func(msg string) outboundMessage[any] {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.UserID != userID {
				send <- errorMsg("join must name the authenticated user")
				continue
			}
			if eventsDone != nil {
				send <- errorMsg("already joined")
				continue
			}
			events, leave := h.hub.Join(userID)
			defer leave()
			eventsDone = make(chan struct{})
			go forwardEvents(events, send, closeSignals, eventsDone)
			send <- outboundMessage[any]{Type: "joined", Payload: joinPayload{UserID: userID}}
		case "dismiss":
			var payload dismissPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.ID == "" {
				send <- errorMsg("invalid dismiss payload")
				continue
			}
			if err := h.notifications.Dismiss(r.Context(), userID, payload.ID); err != nil {
				send <- errorMsg(domain.MessageOf(err))
				continue
			}
			send <- outboundMessage[any]{Type: "dismissed", Payload: payload}
		default:
			send <- errorMsg("unsupported message type")
		}
	}

	close(closeSignals)
	if eventsDone != nil {
		<-eventsDone
	}
	close(send)
	<-writerDone
}

func forwardEvents(events <-chan domain.NotificationEvent, send chan<- outboundMessage[any], closeSignals, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case send <- outboundMessage[any]{Type: "notification", Payload: ev}:
			case <-closeSignals:
				return
			}
		case <-closeSignals:
			return
		}
	}
}
