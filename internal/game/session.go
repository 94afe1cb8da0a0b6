package game

import (
	"sync"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// ChargeKind distinguishes who a pending charge is owed to.
type ChargeKind int

const (
	// ChargeRent is owed to another player for landing on their field.
	ChargeRent ChargeKind = iota
	// ChargeBank is owed to the bank (tax fields, secret charges).
	ChargeBank
)

// PendingCharge is an obligation the lander may settle manually before the
// deadline command settles it for them.
type PendingCharge struct {
	Kind       ChargeKind
	Amount     int64
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	FieldIndex int
}

// Session is the in-memory authority for one active game. All mutation of the
// game, its auction, secret, trade and charge state happens under mu; store
// writes are performed while the lock is held so persisted state never runs
// ahead of the session.
type Session struct {
	mu sync.Mutex

	Game    *models.Game
	Auction *models.Auction
	Secret  *models.SecretInfo
	Trade   *models.Trade
	Charge  *PendingCharge

	// auctionSeq increments on every staged raise; a race-window command
	// carrying an older seq confirms nothing.
	auctionSeq uint64

	// actionIndex orders the per-game action log entries.
	actionIndex int
}

// Registry holds the live sessions keyed by game id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Get returns the session for the game id, if present.
func (r *Registry) Get(gameID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// GetOrCreate returns the existing session for g.ID or registers a new one
// wrapping g.
func (r *Registry) GetOrCreate(g *models.Game) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[g.ID]; ok {
		return s
	}
	s := &Session{Game: g}
	r.sessions[g.ID] = s
	return s
}

// Delete drops the session for the game id.
func (r *Registry) Delete(gameID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, gameID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
