package models

import "github.com/google/uuid"

// Player is one seat in a game. A player record is never deleted once the
// game is active; elimination only flips Lost.
type Player struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	GameID uuid.UUID `json:"gameId"`

	// CurrentFieldIndex is the board position, 0..BoardSize-1.
	CurrentFieldIndex int `json:"currentFieldIndex"`

	Money int64  `json:"money"`
	Lost  bool   `json:"lost"`
	Color string `json:"color"`

	// JoinOrder fixes the seat order used for turn handoff.
	JoinOrder int `json:"joinOrder"`
}
