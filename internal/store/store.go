// Package store defines the persistence collaborators consumed by the game
// engine. The engine treats these as narrow, synchronous-looking calls: the
// only failure contract is an error on not-found or infrastructure trouble.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// GameStore persists game records. Find returns the denormalized projection
// including the ordered player list.
type GameStore interface {
	Create(ctx context.Context, g *models.Game) error
	Find(ctx context.Context, id uuid.UUID) (*models.Game, error)
	Update(ctx context.Context, g *models.Game) error
	ListByStatus(ctx context.Context, status models.GameStatus) ([]*models.Game, error)
}

// PlayerStore persists player records. IncrementMoney is the single money
// mutation primitive: it must be atomic so concurrent timer firings never
// produce lost updates.
type PlayerStore interface {
	Create(ctx context.Context, p *models.Player) error
	Find(ctx context.Context, id uuid.UUID) (*models.Player, error)
	Update(ctx context.Context, p *models.Player) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementMoney(ctx context.Context, id uuid.UUID, delta int64) (*models.Player, error)
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Player, error)
}

// FieldStore persists the per-game board cells.
type FieldStore interface {
	Create(ctx context.Context, f *models.Field) error
	FindByIndex(ctx context.Context, gameID uuid.UUID, index int) (*models.Field, error)
	Update(ctx context.Context, f *models.Field) error
	BulkUpdate(ctx context.Context, fields []*models.Field) error
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Field, error)
}
