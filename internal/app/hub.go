package app

import (
	"context"
	"sync"

	"study-vault/internal/domain"
)

const sessionBuffer = 8

// Hub is the registry of live real-time sessions keyed by user id.
// Each joined session owns a buffered channel; Publish fans an event out to all of them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan domain.NotificationEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan domain.NotificationEvent]struct{})}
}

// Join registers a session for userID. The caller must invoke leave to avoid leaks.
func (h *Hub) Join(userID string) (<-chan domain.NotificationEvent, func()) {
	ch := make(chan domain.NotificationEvent, sessionBuffer)

	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[chan domain.NotificationEvent]struct{})
		h.rooms[userID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	leave := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		room, ok := h.rooms[userID]
		if !ok {
			return
		}
		if _, ok := room[ch]; ok {
			delete(room, ch)
			close(ch)
		}
		if len(room) == 0 {
			delete(h.rooms, userID)
		}
	}
	return ch, leave
}

// Publish delivers event to every session of userID. Users without sessions miss the event;
// the durable inbox row is what they poll later.
func (h *Hub) Publish(_ context.Context, userID string, event domain.NotificationEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.rooms[userID] {
		select {
		case ch <- event:
		default:
			// slow session: drop its oldest pending event
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Sessions returns the number of live sessions for userID.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
