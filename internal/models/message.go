package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat line posted into a game's chat feed. The engine only
// writes system narration (secret events, trades); user chat is out of scope.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chatId"`
	UserID    uuid.UUID `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
