package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// RollDice rolls for the turn owner, moves their piece and resolves the
// landing. Rejected when it is not the caller's turn or the dice were already
// thrown this turn.
func (e *Engine) RollDice(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.rollDiceLocked(ctx, s, userID)
}

// rollDiceLocked is the lock-held body of RollDice; the roll deadline command
// re-enters here to auto-roll for a silent turn owner.
func (e *Engine) rollDiceLocked(ctx context.Context, s *Session, userID uuid.UUID) error {
	g := s.Game
	if g.Status != models.GameStatusActive {
		return e.rejectf(ctx, userID, "game is not active")
	}
	if g.TurnOfUserID != userID {
		return e.rejectf(ctx, userID, "not your turn")
	}
	p := g.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	if len(g.Dices) > 0 {
		return e.rejectf(ctx, userID, "dice already rolled this turn")
	}
	if s.Trade != nil {
		return e.rejectf(ctx, userID, "resolve the pending trade first")
	}
	if s.Auction != nil {
		return e.rejectf(ctx, userID, "an auction is in progress")
	}

	d1 := e.rng.Intn(6) + 1
	d2 := e.rng.Intn(6) + 1
	g.Dices = []int{d1, d2}

	if err := e.tickPledgedFieldsLocked(ctx, s); err != nil {
		return err
	}

	from := p.CurrentFieldIndex
	p.CurrentFieldIndex = (from + d1 + d2) % BoardSize
	if p.CurrentFieldIndex < from {
		if err := e.creditLocked(ctx, p, g.PassStartBonus); err != nil {
			return err
		}
	}

	if err := e.players.Update(ctx, p); err != nil {
		return err
	}
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	e.broadcast.EmitToGame(g.ID, EventRolledDice, map[string]interface{}{
		"userId":     userID,
		"dices":      g.Dices,
		"fieldIndex": p.CurrentFieldIndex,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "rollDice", map[string]interface{}{
		"dices":      g.Dices,
		"fieldIndex": p.CurrentFieldIndex,
	})

	field, err := e.fields.FindByIndex(ctx, g.ID, p.CurrentFieldIndex)
	if err != nil {
		return err
	}
	return e.resolveLandingLocked(ctx, s, field, p)
}

// tickPledgedFieldsLocked advances the pledge clocks: every pledged field on
// the board loses one turn, and a field reaching zero is released back to the
// bank. Runs on every roll regardless of whose fields are pledged.
// Assumes the session lock is held.
func (e *Engine) tickPledgedFieldsLocked(ctx context.Context, s *Session) error {
	all, err := e.fields.ListByGame(ctx, s.Game.ID)
	if err != nil {
		return err
	}
	var changed []*models.Field
	for _, f := range all {
		if !f.IsPledged {
			continue
		}
		f.TurnsToUnpledge--
		if f.TurnsToUnpledge <= 0 {
			f.OwnedBy = uuid.Nil
			f.IsPledged = false
			f.TurnsToUnpledge = 0
			f.AmountOfBranches = 0
		}
		changed = append(changed, f)
	}
	if len(changed) == 0 {
		return nil
	}
	if err := e.fields.BulkUpdate(ctx, changed); err != nil {
		return err
	}
	e.broadcast.EmitToGame(s.Game.ID, EventUpdateGameData, map[string]interface{}{
		"fields": changed,
	})
	return nil
}

// Landing actions. All assume the session lock is held.

func (e *Engine) landPassLocked(ctx context.Context, s *Session, f *models.Field, p *models.Player) error {
	e.sched.Schedule(s.Game.ID, PassTurnDelay, Command{Kind: CmdPassTurn})
	return nil
}

func (e *Engine) landSpecialLocked(ctx context.Context, s *Session, f *models.Field, p *models.Player) error {
	if f.Secret {
		return e.drawSecretLocked(ctx, s, p)
	}
	s.Charge = &PendingCharge{
		Kind:       ChargeBank,
		Amount:     f.ToPay,
		FromUserID: p.UserID,
		FieldIndex: f.Index,
	}
	e.broadcast.EmitToGame(s.Game.ID, EventUpdateGameData, map[string]interface{}{
		"charge": map[string]interface{}{
			"userId":     p.UserID,
			"amount":     f.ToPay,
			"fieldIndex": f.Index,
		},
	})
	e.sched.Schedule(s.Game.ID, s.Game.TimeOfTurn, Command{Kind: CmdChargeDeadline})
	return nil
}

func (e *Engine) landRentLocked(ctx context.Context, s *Session, f *models.Field, p *models.Player) error {
	all, err := e.fields.ListByGame(ctx, s.Game.ID)
	if err != nil {
		return err
	}
	rent := e.rentForLocked(f, all)
	if rent <= 0 {
		return e.landPassLocked(ctx, s, f, p)
	}
	if liquidityOf(p, all) < rent {
		// Even selling everything could not cover the rent.
		return e.loseGameLocked(ctx, s, p.UserID)
	}
	s.Charge = &PendingCharge{
		Kind:       ChargeRent,
		Amount:     rent,
		FromUserID: p.UserID,
		ToUserID:   f.OwnedBy,
		FieldIndex: f.Index,
	}
	e.broadcast.EmitToGame(s.Game.ID, EventUpdateGameData, map[string]interface{}{
		"charge": map[string]interface{}{
			"userId":     p.UserID,
			"toUserId":   f.OwnedBy,
			"amount":     rent,
			"fieldIndex": f.Index,
		},
	})
	e.sched.Schedule(s.Game.ID, s.Game.TimeOfTurn, Command{Kind: CmdChargeDeadline})
	return nil
}

func (e *Engine) landAuctionLocked(ctx context.Context, s *Session, f *models.Field, p *models.Player) error {
	return e.openAuctionLocked(ctx, s, f, p)
}

// resolveRollDeadlineLocked handles an expired turn clock: auto-roll when the
// owner never threw the dice, otherwise force the turn over.
func (e *Engine) resolveRollDeadlineLocked(ctx context.Context, s *Session) error {
	if len(s.Game.Dices) == 0 && s.Trade == nil {
		return e.rollDiceLocked(ctx, s, s.Game.TurnOfUserID)
	}
	return e.passTurnToNextLocked(ctx, s)
}

// resolveChargeDeadlineLocked force-settles the pending charge at the end of
// the payment window.
func (e *Engine) resolveChargeDeadlineLocked(ctx context.Context, s *Session) error {
	ch := s.Charge
	if ch == nil {
		return e.passTurnToNextLocked(ctx, s)
	}
	s.Charge = nil
	if ch.Kind == ChargeRent {
		if err := e.payRentLocked(ctx, s, ch); err != nil {
			return err
		}
	} else {
		eliminated, err := e.transferWithBankLocked(ctx, s, ch.FromUserID, -ch.Amount)
		if err != nil {
			return err
		}
		if eliminated {
			// loseGame already handed the turn over or finished the game.
			return nil
		}
		e.broadcast.EmitToGame(s.Game.ID, EventPayedForField, map[string]interface{}{
			"userId":     ch.FromUserID,
			"amount":     ch.Amount,
			"fieldIndex": ch.FieldIndex,
		})
	}
	if s.Game.Status != models.GameStatusActive {
		return nil
	}
	if lander := s.Game.PlayerByUserID(ch.FromUserID); lander != nil && lander.Lost {
		// Rent payer went bankrupt during settlement; turn already moved on.
		return nil
	}
	return e.passTurnToNextLocked(ctx, s)
}

// PayForField settles the pending rent charge early, before the deadline
// command does it. Requires actual cash; pledging or selling first is the
// caller's problem.
func (e *Engine) PayForField(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.Charge
	if ch == nil || ch.Kind != ChargeRent || ch.FromUserID != userID {
		return e.rejectf(ctx, userID, "nothing to pay for")
	}
	p := s.Game.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	if p.Money < ch.Amount {
		return e.rejectf(ctx, userID, "not enough money, pledge or sell first")
	}
	s.Charge = nil
	if err := e.payRentLocked(ctx, s, ch); err != nil {
		return err
	}
	return e.passTurnToNextLocked(ctx, s)
}

// PayToBank settles a pending bank obligation early: a tax charge or a
// single-participant secret charge.
func (e *Engine) PayToBank(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.Game.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}

	var amount int64
	var fieldIndex int
	switch {
	case s.Secret != nil && SecretOnePlayerMustPay(s.Secret, userID):
		amount = -s.Secret.Amounts[0]
	case s.Charge != nil && s.Charge.Kind == ChargeBank && s.Charge.FromUserID == userID:
		amount = s.Charge.Amount
		fieldIndex = s.Charge.FieldIndex
	default:
		return e.rejectf(ctx, userID, "nothing to pay to the bank")
	}
	if p.Money < amount {
		return e.rejectf(ctx, userID, "not enough money, pledge or sell first")
	}

	if s.Secret != nil && SecretOnePlayerMustPay(s.Secret, userID) {
		s.Secret = nil
	} else {
		s.Charge = nil
	}
	if err := e.creditLocked(ctx, p, -amount); err != nil {
		return err
	}
	e.broadcast.EmitToGame(s.Game.ID, EventPayedForField, map[string]interface{}{
		"userId":     userID,
		"amount":     amount,
		"fieldIndex": fieldIndex,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "payToBank", map[string]interface{}{"amount": amount})
	return e.passTurnToNextLocked(ctx, s)
}

// passTurnToNextLocked ends the current turn: clears transient turn state,
// advances the seat to the next non-eliminated player and arms the roll
// deadline. Assumes the session lock is held.
func (e *Engine) passTurnToNextLocked(ctx context.Context, s *Session) error {
	g := s.Game
	e.sched.Cancel(g.ID)
	s.Auction = nil
	s.Charge = nil
	s.Secret = nil
	g.Dices = nil

	next := e.nextSeatLocked(g)
	if next == nil {
		return nil
	}
	g.TurnOfUserID = next.UserID
	g.TurnEnds = e.clock.Now().Add(g.TimeOfTurn)
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	e.broadcast.EmitToGame(g.ID, EventPassTurnToNext, map[string]interface{}{
		"userId":   next.UserID,
		"turnEnds": g.TurnEnds,
	})
	e.emitGameDataLocked(s)
	e.logAction(s, next.UserID, "passTurnToNext", nil)

	e.sched.Schedule(g.ID, g.TimeOfTurn, Command{Kind: CmdRollDeadline})
	return nil
}

// nextSeatLocked finds the next non-eliminated player after the current turn
// owner in join order. The scan is bounded by the roster size.
func (e *Engine) nextSeatLocked(g *models.Game) *models.Player {
	n := len(g.Players)
	if n == 0 {
		return nil
	}
	cur := 0
	for i, p := range g.Players {
		if p.UserID == g.TurnOfUserID {
			cur = i
			break
		}
	}
	for i := 1; i <= n; i++ {
		cand := g.Players[(cur+i)%n]
		if !cand.Lost {
			return cand
		}
	}
	return nil
}

// loseGameLocked eliminates the player: marks the seat lost, releases every
// field they own back to the bank, clears obligations tied to them, and either
// finishes the game or hands the turn over. Assumes the session lock is held.
func (e *Engine) loseGameLocked(ctx context.Context, s *Session, userID uuid.UUID) error {
	g := s.Game
	p := g.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return nil
	}
	p.Lost = true
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}

	all, err := e.fields.ListByGame(ctx, g.ID)
	if err != nil {
		return err
	}
	var released []*models.Field
	for _, f := range all {
		if f.OwnedBy != userID {
			continue
		}
		f.OwnedBy = uuid.Nil
		f.IsPledged = false
		f.TurnsToUnpledge = 0
		f.AmountOfBranches = 0
		released = append(released, f)
	}
	if len(released) > 0 {
		if err := e.fields.BulkUpdate(ctx, released); err != nil {
			return err
		}
	}

	if s.Charge != nil && s.Charge.FromUserID == userID {
		s.Charge = nil
	}
	if s.Secret != nil {
		for _, u := range s.Secret.Users {
			if u == userID {
				s.Secret = nil
				break
			}
		}
	}

	e.emitPlayersLocked(s)
	e.broadcast.EmitToGame(g.ID, EventUpdateGameData, map[string]interface{}{
		"fields": released,
	})
	e.logAction(s, userID, "loseGame", nil)
	e.chatNarrate(s, userID, "A player has gone bankrupt and left the game")

	active := g.ActivePlayers()
	if len(active) == 1 {
		g.Status = models.GameStatusFinished
		if err := e.games.Update(ctx, g); err != nil {
			return err
		}
		e.sched.Cancel(g.ID)
		e.broadcast.EmitToGame(g.ID, EventPlayerWon, map[string]interface{}{
			"userId": active[0].UserID,
		})
		e.logAction(s, active[0].UserID, "playerWon", nil)
		e.sessions.Delete(g.ID)
		return nil
	}

	if g.TurnOfUserID == userID {
		return e.passTurnToNextLocked(ctx, s)
	}
	return nil
}
