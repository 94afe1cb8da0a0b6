package game

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"monopoly/server/internal/models"
	"monopoly/server/internal/store"
)

// fakeClock is a manually advanced Clock. Advance runs due callbacks
// synchronously on the calling goroutine, which keeps timer-driven engine
// flows deterministic in tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and fires every due timer in order.
// Callbacks run outside the clock lock so they may schedule new timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// fakeRand replays a scripted sequence; once exhausted it returns zero.
type fakeRand struct {
	mu   sync.Mutex
	vals []int
}

func (r *fakeRand) push(vals ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals = append(r.vals, vals...)
}

func (r *fakeRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v % n
}

type recordedEvent struct {
	target  uuid.UUID
	name    string
	payload interface{}
}

// mockBroadcaster records every emitted event for assertions.
type mockBroadcaster struct {
	mu         sync.Mutex
	gameEvents []recordedEvent
	userEvents []recordedEvent
}

func (b *mockBroadcaster) EmitToGame(gameID uuid.UUID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gameEvents = append(b.gameEvents, recordedEvent{target: gameID, name: event, payload: payload})
}

func (b *mockBroadcaster) EmitToUser(userID uuid.UUID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userEvents = append(b.userEvents, recordedEvent{target: userID, name: event, payload: payload})
}

func (b *mockBroadcaster) gameEventCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.gameEvents {
		if ev.name == name {
			n++
		}
	}
	return n
}

func (b *mockBroadcaster) lastGameEvent(name string) (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.gameEvents) - 1; i >= 0; i-- {
		if b.gameEvents[i].name == name {
			return b.gameEvents[i], true
		}
	}
	return recordedEvent{}, false
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fixture is a ready-to-play active game backed by the memory store.
type fixture struct {
	t       *testing.T
	engine  *Engine
	clock   *fakeClock
	rng     *fakeRand
	bc      *mockBroadcaster
	mem     *store.Memory
	game    *models.Game
	players []*models.Player
	session *Session
}

func newFixture(t *testing.T, numPlayers int) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	clock := newFakeClock()
	rng := &fakeRand{}
	bc := &mockBroadcaster{}
	e := New(Deps{
		Games:     mem,
		Players:   mem.Players(),
		Fields:    mem.Fields(),
		Broadcast: bc,
		Rand:      rng,
		Clock:     clock,
		Log:       quietLog(),
	})

	g := &models.Game{
		ID:              uuid.New(),
		Status:          models.GameStatusActive,
		TimeOfTurn:      DefaultTimeOfTurn,
		PassStartBonus:  DefaultPassStartBonus,
		HousesQty:       DefaultHousesQty,
		HotelsQty:       DefaultHotelsQty,
		TurnsToUnpledge: DefaultTurnsToUnpledge,
		MaxPlayers:      numPlayers,
		ChatID:          uuid.New(),
		CreatedAt:       clock.Now(),
	}
	require.NoError(t, mem.Create(ctx, g))

	var players []*models.Player
	for i := 0; i < numPlayers; i++ {
		p := &models.Player{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			GameID:    g.ID,
			Money:     DefaultStartMoney,
			Color:     seatColors[i%len(seatColors)],
			JoinOrder: i,
		}
		require.NoError(t, mem.Players().Create(ctx, p))
		players = append(players, p)
	}
	g.Players = players
	g.TurnOfUserID = players[0].UserID
	g.TurnEnds = clock.Now().Add(g.TimeOfTurn)

	for _, f := range BuildBoard(g.ID) {
		require.NoError(t, mem.Fields().Create(ctx, f))
	}

	s := e.sessions.GetOrCreate(g)
	return &fixture{
		t:       t,
		engine:  e,
		clock:   clock,
		rng:     rng,
		bc:      bc,
		mem:     mem,
		game:    g,
		players: players,
		session: s,
	}
}

func (f *fixture) ctx() context.Context { return context.Background() }

func (f *fixture) field(index int) *models.Field {
	f.t.Helper()
	fld, err := f.mem.Fields().FindByIndex(context.Background(), f.game.ID, index)
	require.NoError(f.t, err)
	return fld
}

// rollTo scripts the dice so the current turn owner lands on target and rolls.
func (f *fixture) rollTo(target int) error {
	f.t.Helper()
	p := f.game.PlayerByUserID(f.game.TurnOfUserID)
	require.NotNil(f.t, p)
	dist := (target - p.CurrentFieldIndex + BoardSize) % BoardSize
	require.True(f.t, dist >= 2 && dist <= 12, "target %d not reachable by one roll from %d", target, p.CurrentFieldIndex)
	d1 := dist / 2
	d2 := dist - d1
	f.rng.push(d1-1, d2-1)
	return f.engine.RollDice(f.ctx(), f.game.ID, p.UserID)
}
