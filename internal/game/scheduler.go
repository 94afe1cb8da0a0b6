package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CommandKind identifies what a fired timer should resume.
type CommandKind int

const (
	// CmdRollDeadline fires when the turn owner ran out of time to roll.
	CmdRollDeadline CommandKind = iota
	// CmdPassTurn fires after the short no-input delay of a pass-turn landing.
	CmdPassTurn
	// CmdChargeDeadline auto-settles the pending rent or bank charge.
	CmdChargeDeadline
	// CmdSecretDeadline auto-settles a single-participant secret charge.
	CmdSecretDeadline
	// CmdAuctionRace confirms a staged raise once the race window closes.
	CmdAuctionRace
	// CmdAuctionDeadline resolves the auction when bidders stop responding.
	CmdAuctionDeadline
	// CmdTradeDeadline auto-refuses an unanswered trade offer.
	CmdTradeDeadline
)

// Command is the deferred-callback payload. Timers never capture engine state
// directly; they carry a command that re-enters the engine through a single
// resume entry point.
type Command struct {
	Kind   CommandKind
	UserID uuid.UUID
	Seq    uint64
}

// Outcome is how a scheduled timer concluded.
type Outcome int

const (
	// OutcomeFired means the timer ran its command.
	OutcomeFired Outcome = iota
	// OutcomeSuperseded means the timer was cancelled or replaced before
	// firing. Callers must treat this as "someone else already advanced
	// the state", not as an error.
	OutcomeSuperseded
)

// Pending is the awaitable handle of one scheduled command.
type Pending struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
	err     error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(outcome Outcome, err error) {
	p.once.Do(func() {
		p.outcome = outcome
		p.err = err
		close(p.done)
	})
}

// Wait blocks until the timer fired or was superseded. The error is the
// command's failure when it fired; a superseded timer carries no error.
func (p *Pending) Wait() (Outcome, error) {
	<-p.done
	return p.outcome, p.err
}

// DispatchFunc re-enters the engine with a fired command.
type DispatchFunc func(gameID uuid.UUID, cmd Command) error

// Scheduler maps a game id to at most one pending deferred command.
// Scheduling a new command for an id implicitly supersedes any pending one
// (last-writer-wins); Cancel on an id with no pending timer is a no-op.
type Scheduler struct {
	mu        sync.Mutex
	clock     Clock
	dispatch  DispatchFunc
	timers    map[uuid.UUID]*timerEntry
	nextToken uint64
	log       *logrus.Entry
}

type timerEntry struct {
	token   uint64
	timer   Timer
	pending *Pending
	cmd     Command
}

// NewScheduler creates a scheduler firing commands into dispatch.
func NewScheduler(clock Clock, dispatch DispatchFunc, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		clock:    clock,
		dispatch: dispatch,
		timers:   make(map[uuid.UUID]*timerEntry),
		log:      log,
	}
}

// Schedule registers cmd to fire after delay, superseding any pending timer
// for the same game id.
func (s *Scheduler) Schedule(gameID uuid.UUID, delay time.Duration, cmd Command) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[gameID]; ok {
		old.timer.Stop()
		old.pending.resolve(OutcomeSuperseded, nil)
		delete(s.timers, gameID)
	}

	s.nextToken++
	entry := &timerEntry{
		token:   s.nextToken,
		pending: newPending(),
		cmd:     cmd,
	}
	s.timers[gameID] = entry
	token := entry.token
	entry.timer = s.clock.AfterFunc(delay, func() {
		s.fire(gameID, token)
	})
	return entry.pending
}

// Cancel drops the pending timer for the game id, if any.
func (s *Scheduler) Cancel(gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.timers[gameID]; ok {
		entry.timer.Stop()
		entry.pending.resolve(OutcomeSuperseded, nil)
		delete(s.timers, gameID)
	}
}

// HasPending reports whether a timer is registered for the game id.
func (s *Scheduler) HasPending(gameID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[gameID]
	return ok
}

func (s *Scheduler) fire(gameID uuid.UUID, token uint64) {
	s.mu.Lock()
	entry, ok := s.timers[gameID]
	if !ok || entry.token != token {
		// Superseded between the timer firing and this callback running;
		// the pending handle was already resolved by the superseder.
		s.mu.Unlock()
		return
	}
	delete(s.timers, gameID)
	s.mu.Unlock()

	// Dispatch outside the scheduler lock: the command will re-enter the
	// engine, which may schedule follow-up timers.
	err := s.dispatch(gameID, entry.cmd)
	if err != nil {
		s.log.WithError(err).
			WithField("game_id", gameID).
			WithField("command", entry.cmd.Kind).
			Error("scheduled command failed")
	}
	entry.pending.resolve(OutcomeFired, err)
}
