package models

import "github.com/google/uuid"

// SecretInfo is an in-flight secret event drawn for one game. Users holds the
// participants: the landing player first, then the other involved players.
// A uuid.Nil slot marks that participant as settled; the record is destroyed
// once every obligated slot is settled.
type SecretInfo struct {
	Amounts []int64     `json:"amounts"`
	Users   []uuid.UUID `json:"users"`
	Text    string      `json:"text"`

	NumOfPlayersInvolved int `json:"numOfPlayersInvolved"`
}

// Settle marks the user's slot as resolved and reports whether any
// unsettled slot remains.
func (s *SecretInfo) Settle(userID uuid.UUID) bool {
	for i, u := range s.Users {
		if u == userID {
			s.Users[i] = uuid.Nil
			break
		}
	}
	for _, u := range s.Users {
		if u != uuid.Nil {
			return false
		}
	}
	return true
}
