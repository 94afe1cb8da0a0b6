// Package hub is the in-process pub/sub fan-out used to broadcast engine
// events. Delivery is fire-and-forget: a slow subscriber never blocks the
// engine, and no delivery guarantee is assumed by the core.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is one outbound real-time event.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client is a subscriber channel. The transport layer (out of scope here)
// drains it into whatever socket it owns.
type Client chan []byte

// Hub manages per-game and per-user subscriber sets.
type Hub struct {
	mu    sync.RWMutex
	games map[uuid.UUID]map[Client]bool
	users map[uuid.UUID]map[Client]bool
	log   *logrus.Entry
}

// New creates an empty hub.
func New(log *logrus.Entry) *Hub {
	return &Hub{
		games: make(map[uuid.UUID]map[Client]bool),
		users: make(map[uuid.UUID]map[Client]bool),
		log:   log,
	}
}

// SubscribeGame registers a client for a game's broadcast stream.
func (h *Hub) SubscribeGame(gameID uuid.UUID, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[Client]bool)
	}
	h.games[gameID][c] = true
}

// UnsubscribeGame removes a client and closes its channel.
func (h *Hub) UnsubscribeGame(gameID uuid.UUID, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.games[gameID]; ok {
		if clients[c] {
			delete(clients, c)
			close(c)
			if len(clients) == 0 {
				delete(h.games, gameID)
			}
		}
	}
}

// SubscribeUser registers a client for a user's private stream.
func (h *Hub) SubscribeUser(userID uuid.UUID, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][c] = true
}

// UnsubscribeUser removes a client and closes its channel.
func (h *Hub) UnsubscribeUser(userID uuid.UUID, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.users[userID]; ok {
		if clients[c] {
			delete(clients, c)
			close(c)
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// EmitToGame sends an event to every subscriber of the game.
func (h *Hub) EmitToGame(gameID uuid.UUID, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.send(h.games[gameID], event, payload)
}

// EmitToUser sends an event to every subscriber of the user.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.send(h.users[userID], event, payload)
}

func (h *Hub) send(clients map[Client]bool, event string, payload interface{}) {
	if len(clients) == 0 {
		return
	}
	msg, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Warn("hub: marshal event")
		return
	}
	for c := range clients {
		// Non-blocking send; a full client buffer drops the event for
		// that client rather than stalling the engine.
		select {
		case c <- msg:
		default:
		}
	}
}
