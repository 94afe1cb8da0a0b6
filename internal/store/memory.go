package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// Memory is an in-process implementation of all three stores. It is the
// default backend when no DATABASE_URL is configured and the backend used by
// the engine tests.
type Memory struct {
	mu      sync.RWMutex
	games   map[uuid.UUID]*models.Game
	players map[uuid.UUID]*models.Player
	fields  map[uuid.UUID]*models.Field
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games:   make(map[uuid.UUID]*models.Game),
		players: make(map[uuid.UUID]*models.Player),
		fields:  make(map[uuid.UUID]*models.Field),
	}
}

func (m *Memory) Create(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *Memory) Find(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	g.Players = m.playersOf(id)
	return g, nil
}

// playersOf rebuilds the seat-ordered player list. Caller holds the lock.
func (m *Memory) playersOf(gameID uuid.UUID) []*models.Player {
	var out []*models.Player
	for _, p := range m.players {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}

func (m *Memory) Update(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return ErrNotFound
	}
	m.games[g.ID] = g
	return nil
}

func (m *Memory) ListByStatus(ctx context.Context, status models.GameStatus) ([]*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Game
	for _, g := range m.games {
		if g.Status == status {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Players returns the PlayerStore view of the memory backend.
func (m *Memory) Players() PlayerStore { return (*memoryPlayers)(m) }

// Fields returns the FieldStore view of the memory backend.
func (m *Memory) Fields() FieldStore { return (*memoryFields)(m) }

type memoryPlayers Memory

func (m *memoryPlayers) Create(ctx context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
	return nil
}

func (m *memoryPlayers) Find(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *memoryPlayers) Update(ctx context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; !ok {
		return ErrNotFound
	}
	m.players[p.ID] = p
	return nil
}

func (m *memoryPlayers) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, id)
	return nil
}

func (m *memoryPlayers) IncrementMoney(ctx context.Context, id uuid.UUID, delta int64) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Money += delta
	return p, nil
}

func (m *memoryPlayers) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Player
	for _, p := range m.players {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out, nil
}

type memoryFields Memory

func (m *memoryFields) Create(ctx context.Context, f *models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[f.ID] = f
	return nil
}

func (m *memoryFields) FindByIndex(ctx context.Context, gameID uuid.UUID, index int) (*models.Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.fields {
		if f.GameID == gameID && f.Index == index {
			return f, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryFields) Update(ctx context.Context, f *models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fields[f.ID]; !ok {
		return ErrNotFound
	}
	m.fields[f.ID] = f
	return nil
}

func (m *memoryFields) BulkUpdate(ctx context.Context, fields []*models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		m.fields[f.ID] = f
	}
	return nil
}

func (m *memoryFields) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Field
	for _, f := range m.fields {
		if f.GameID == gameID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
