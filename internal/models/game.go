package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus tracks the lifecycle of a game record.
type GameStatus string

const (
	GameStatusLobby    GameStatus = "LOBBY"
	GameStatusActive   GameStatus = "ACTIVE"
	GameStatusFinished GameStatus = "FINISHED"
)

// Game is the denormalized per-game projection handed around by the engine.
// Players are ordered by join order; that order is the seat order for turns.
type Game struct {
	ID     uuid.UUID  `json:"id"`
	Status GameStatus `json:"status"`

	Players []*Player `json:"players"`

	// TurnOfUserID is the user currently entitled to act. At most one
	// non-eliminated player holds it at a time.
	TurnOfUserID uuid.UUID `json:"turnOfUserId"`

	// Dices holds the last roll. Empty means the turn owner must still roll.
	Dices []int `json:"dices"`

	TurnEnds   time.Time     `json:"turnEnds"`
	TimeOfTurn time.Duration `json:"timeOfTurn"`

	PassStartBonus int64 `json:"passStartBonus"`

	// Shared bank inventory for branch construction.
	HousesQty int `json:"housesQty"`
	HotelsQty int `json:"hotelsQty"`

	// TurnsToUnpledge is the number of rolls a pledged field survives
	// before ownership is released back to the bank.
	TurnsToUnpledge int `json:"turnsToUnpledge"`

	MaxPlayers int       `json:"maxPlayers"`
	ChatID     uuid.UUID `json:"chatId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PlayerByUserID returns the seat belonging to userID, or nil.
func (g *Game) PlayerByUserID(userID uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the players that have not been eliminated.
func (g *Game) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if !p.Lost {
			active = append(active, p)
		}
	}
	return active
}
