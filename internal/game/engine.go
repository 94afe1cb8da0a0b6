// Package game implements the authoritative turn-resolution engine: the turn
// state machine, the auction, payment, secret-event and trade subsystems, and
// the deadline scheduling that keeps a game moving when players go silent.
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"monopoly/server/internal/cache"
	"monopoly/server/internal/models"
	"monopoly/server/internal/store"
)

const (
	// BoardSize is the number of fields on the board; movement is modular.
	BoardSize = 40

	// MinRaise is the smallest allowed auction increment.
	MinRaise int64 = 100

	// RaceWindow is how long a staged raise waits before it is confirmed,
	// letting a concurrent raise supersede it.
	RaceWindow = 200 * time.Millisecond

	// AuctionResponseTimeout bounds how long the auction waits for the next
	// raise or refusal before resolving itself.
	AuctionResponseTimeout = 10 * time.Second

	// TradeResponseTimeout bounds how long a trade offer stays open.
	TradeResponseTimeout = 10 * time.Second

	// PassTurnDelay is the grace period before a no-input landing passes the
	// turn, so clients can animate the move.
	PassTurnDelay = 2500 * time.Millisecond
)

// Lobby defaults applied to a newly created game.
const (
	DefaultMaxPlayers      = 4
	DefaultStartMoney      = int64(15000)
	DefaultPassStartBonus  = int64(2000)
	DefaultHousesQty       = 32
	DefaultHotelsQty       = 12
	DefaultTurnsToUnpledge = 15
	DefaultTimeOfTurn      = 90 * time.Second
)

// Broadcaster pushes real-time events out to clients. The hub satisfies it.
type Broadcaster interface {
	EmitToGame(gameID uuid.UUID, event string, payload interface{})
	EmitToUser(userID uuid.UUID, event string, payload interface{})
}

// ChatNotifier narrates engine events into the game chat.
type ChatNotifier interface {
	PostMessage(ctx context.Context, actingUserID uuid.UUID, chatID uuid.UUID, text string) (*models.Message, error)
}

// ActionLogger records the ordered per-game action log.
type ActionLogger interface {
	PublishGameAction(ctx context.Context, rec cache.GameActionRecord) error
}

// Rand is the dice and deck randomness source. math/rand satisfies it; tests
// substitute a deterministic one.
type Rand interface {
	Intn(n int) int
}

// Deps wires the engine's collaborators. Chat and Actions may be nil; the
// engine then skips narration and action logging.
type Deps struct {
	Games     store.GameStore
	Players   store.PlayerStore
	Fields    store.FieldStore
	Broadcast Broadcaster
	Chat      ChatNotifier
	Actions   ActionLogger
	Rand      Rand
	Clock     Clock
	Log       *logrus.Entry
}

// Engine is the authoritative game engine. One engine serves many games; each
// game's state lives in its Session and all per-game work runs under the
// session lock.
type Engine struct {
	games     store.GameStore
	players   store.PlayerStore
	fields    store.FieldStore
	broadcast Broadcaster
	chat      ChatNotifier
	actions   ActionLogger
	rng       Rand
	clock     Clock
	sched     *Scheduler
	sessions  *Registry
	log       *logrus.Entry

	landingRules []landingRule
}

// New builds an engine from deps. Rand and Clock default to math/rand and the
// real clock when nil.
func New(deps Deps) *Engine {
	if deps.Rand == nil {
		deps.Rand = mathRand{}
	}
	if deps.Clock == nil {
		deps.Clock = NewRealClock()
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	e := &Engine{
		games:     deps.Games,
		players:   deps.Players,
		fields:    deps.Fields,
		broadcast: deps.Broadcast,
		chat:      deps.Chat,
		actions:   deps.Actions,
		rng:       deps.Rand,
		clock:     deps.Clock,
		sessions:  NewRegistry(),
		log:       deps.Log,
	}
	e.sched = NewScheduler(deps.Clock, e.resume, deps.Log.WithField("component", "scheduler"))
	e.landingRules = e.buildLandingRules()
	return e
}

// Scheduler exposes the engine's timer scheduler for inspection.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Sessions exposes the live session registry.
func (e *Engine) Sessions() *Registry { return e.sessions }

// session returns the live session for gameID, rehydrating it from the store
// if the engine has not seen the game yet (e.g. after a restart).
func (e *Engine) session(ctx context.Context, gameID uuid.UUID) (*Session, error) {
	if s, ok := e.sessions.Get(gameID); ok {
		return s, nil
	}
	g, err := e.games.Find(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != models.GameStatusActive {
		return nil, &ValidationError{Message: "game is not active"}
	}
	return e.sessions.GetOrCreate(g), nil
}

// resume is the single re-entry point for fired timers. It acquires the
// session lock itself; the scheduler guarantees it is called lock-free.
func (e *Engine) resume(gameID uuid.UUID, cmd Command) error {
	s, ok := e.sessions.Get(gameID)
	if !ok {
		return nil
	}
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Game.Status != models.GameStatusActive {
		return nil
	}

	switch cmd.Kind {
	case CmdRollDeadline:
		return e.resolveRollDeadlineLocked(ctx, s)
	case CmdPassTurn:
		return e.passTurnToNextLocked(ctx, s)
	case CmdChargeDeadline:
		return e.resolveChargeDeadlineLocked(ctx, s)
	case CmdSecretDeadline:
		return e.resolveSecretDeadlineLocked(ctx, s)
	case CmdAuctionRace:
		return e.confirmRaiseLocked(ctx, s, cmd.Seq)
	case CmdAuctionDeadline:
		return e.resolveAuctionDeadlineLocked(ctx, s)
	case CmdTradeDeadline:
		return e.resolveTradeDeadlineLocked(ctx, s)
	}
	return nil
}

// creditLocked moves delta through the atomic store increment and refreshes
// the session's cached balance. Assumes the session lock is held.
func (e *Engine) creditLocked(ctx context.Context, p *models.Player, delta int64) error {
	updated, err := e.players.IncrementMoney(ctx, p.ID, delta)
	if err != nil {
		return err
	}
	p.Money = updated.Money
	return nil
}

// emitPlayers broadcasts the current player roster. Assumes lock held.
func (e *Engine) emitPlayersLocked(s *Session) {
	e.broadcast.EmitToGame(s.Game.ID, EventUpdatePlayers, map[string]interface{}{
		"players": s.Game.Players,
	})
}

// emitGameData broadcasts the current game frame. Assumes lock held.
func (e *Engine) emitGameDataLocked(s *Session) {
	e.broadcast.EmitToGame(s.Game.ID, EventUpdateGameData, map[string]interface{}{
		"game": s.Game,
	})
}

// logAction appends an entry to the per-game action log. Publishing happens
// off the session lock; ordering is fixed by the index taken under it.
func (e *Engine) logAction(s *Session, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if e.actions == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameID:        s.Game.ID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     e.clock.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.actions.PublishGameAction(ctx, rec); err != nil {
			e.log.WithError(err).
				WithField("game_id", rec.GameID).
				WithField("action_type", rec.ActionType).
				Warn("publish game action")
		}
	}()
}

// chatNarrate posts a system line into the game chat, best effort.
func (e *Engine) chatNarrate(s *Session, actorID uuid.UUID, text string) {
	if e.chat == nil || s.Game.ChatID == uuid.Nil {
		return
	}
	chatID := s.Game.ChatID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := e.chat.PostMessage(ctx, actorID, chatID, text); err != nil {
			e.log.WithError(err).WithField("chat_id", chatID).Warn("post chat message")
		}
	}()
}
