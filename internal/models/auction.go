package models

import (
	"time"

	"github.com/google/uuid"
)

// Bidder is one appended entry in an auction's bidder log. Accepted
// distinguishes a confirmed raise from a provisional one staged during the
// race-resolution window. Refusals are recorded as zero-valued entries.
type Bidder struct {
	UserID   uuid.UUID `json:"userId"`
	Bid      int64     `json:"bid"`
	Accepted bool      `json:"accepted"`
}

// Auction is the bidding state for one field of one game. The bidders list is
// append-only for the auction's lifetime.
type Auction struct {
	FieldIndex   int                `json:"fieldIndex"`
	Bidders      []Bidder           `json:"bidders"`
	TurnEnds     time.Time          `json:"turnEnds"`
	UsersRefused map[uuid.UUID]bool `json:"usersRefused"`
}

// Leader returns the current leading bidder: the last accepted entry scanned
// from the end. A forward scan would misidentify the leader because refusal
// records are zero-valued and interleaved.
func (a *Auction) Leader() *Bidder {
	for i := len(a.Bidders) - 1; i >= 0; i-- {
		if a.Bidders[i].Accepted {
			return &a.Bidders[i]
		}
	}
	return nil
}

// HasRefused reports whether the user already declined to keep bidding.
func (a *Auction) HasRefused(userID uuid.UUID) bool {
	return a.UsersRefused[userID]
}
