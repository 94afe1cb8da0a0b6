package hub

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(logrus.NewEntry(l))
}

func TestEmitToGameReachesSubscribers(t *testing.T) {
	h := testHub()
	gameID := uuid.New()
	c := make(Client, 1)
	h.SubscribeGame(gameID, c)

	h.EmitToGame(gameID, "rolledDice", map[string]int{"a": 1})

	select {
	case raw := <-c:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, "rolledDice", ev.Type)
	default:
		t.Fatal("expected an event on the client channel")
	}
}

func TestEmitToUserIsPrivate(t *testing.T) {
	h := testHub()
	alice, bob := uuid.New(), uuid.New()
	ca, cb := make(Client, 1), make(Client, 1)
	h.SubscribeUser(alice, ca)
	h.SubscribeUser(bob, cb)

	h.EmitToUser(alice, "error", nil)

	assert.Len(t, ca, 1)
	assert.Len(t, cb, 0)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := testHub()
	gameID := uuid.New()
	c := make(Client) // unbuffered and never drained
	h.SubscribeGame(gameID, c)

	// Must return instead of stalling.
	h.EmitToGame(gameID, "updatePlayers", nil)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := testHub()
	gameID := uuid.New()
	c := make(Client, 1)
	h.SubscribeGame(gameID, c)
	h.UnsubscribeGame(gameID, c)

	_, open := <-c
	assert.False(t, open)

	// Emitting after the last unsubscribe is a no-op.
	h.EmitToGame(gameID, "updatePlayers", nil)
}
