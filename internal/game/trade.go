package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// OfferTrade opens a trade from the turn owner to another player. The turn is
// provisionally handed to the recipient so only they may act; an unanswered
// offer auto-refuses at the response deadline and the turn snaps back.
func (e *Engine) OfferTrade(ctx context.Context, gameID, userID uuid.UUID, t *models.Trade) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.Game
	if g.TurnOfUserID != userID {
		return e.rejectf(ctx, userID, "not your turn")
	}
	if s.Trade != nil {
		return e.rejectf(ctx, userID, "a trade is already pending")
	}
	if s.Auction != nil || s.Charge != nil || s.Secret != nil {
		return e.rejectf(ctx, userID, "settle the current obligation first")
	}
	if t == nil || t.IsTrivial() {
		return e.rejectf(ctx, userID, "trade offer is empty")
	}
	if t.ToUserID == userID {
		return e.rejectf(ctx, userID, "cannot trade with yourself")
	}
	from := g.PlayerByUserID(userID)
	to := g.PlayerByUserID(t.ToUserID)
	if from == nil || from.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	if to == nil || to.Lost {
		return e.rejectf(ctx, userID, "that player is not in the game")
	}
	if t.OfferedMoney < 0 || t.WantedMoney < 0 {
		return e.rejectf(ctx, userID, "money legs cannot be negative")
	}
	if from.Money < t.OfferedMoney {
		return e.rejectf(ctx, userID, "you cannot cover the offered money")
	}

	all, err := e.fields.ListByGame(ctx, g.ID)
	if err != nil {
		return err
	}
	byIndex := make(map[int]*models.Field, len(all))
	for _, f := range all {
		byIndex[f.Index] = f
	}
	for _, idx := range t.OfferedFields {
		f, ok := byIndex[idx]
		if !ok || f.OwnedBy != userID {
			return e.rejectf(ctx, userID, "you do not own field %d", idx)
		}
		if f.AmountOfBranches > 0 {
			return e.rejectf(ctx, userID, "sell the branches on field %d first", idx)
		}
	}
	for _, idx := range t.WantedFields {
		f, ok := byIndex[idx]
		if !ok || f.OwnedBy != t.ToUserID {
			return e.rejectf(ctx, userID, "the other player does not own field %d", idx)
		}
		if f.AmountOfBranches > 0 {
			return e.rejectf(ctx, userID, "field %d still has branches on it", idx)
		}
	}

	t.FromUserID = userID
	s.Trade = t
	// Hand the turn to the recipient for the length of the response window.
	g.TurnOfUserID = t.ToUserID
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	e.broadcast.EmitToGame(g.ID, EventTradeOffered, map[string]interface{}{
		"fromUserId":    t.FromUserID,
		"toUserId":      t.ToUserID,
		"offeredFields": t.OfferedFields,
		"wantedFields":  t.WantedFields,
		"offeredMoney":  t.OfferedMoney,
		"wantedMoney":   t.WantedMoney,
	})
	e.logAction(s, userID, "tradeOffered", map[string]interface{}{
		"toUserId": t.ToUserID,
	})
	e.sched.Schedule(g.ID, TradeResponseTimeout, Command{Kind: CmdTradeDeadline})
	return nil
}

// AcceptTrade executes the pending trade. Only the recipient may accept, and
// they must be able to cover the wanted money leg.
func (e *Engine) AcceptTrade(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Trade
	if t == nil {
		return e.rejectf(ctx, userID, "no pending trade")
	}
	if t.ToUserID != userID {
		return e.rejectf(ctx, userID, "this trade is not addressed to you")
	}
	g := s.Game
	from := g.PlayerByUserID(t.FromUserID)
	to := g.PlayerByUserID(t.ToUserID)
	if from == nil || from.Lost || to == nil || to.Lost {
		s.Trade = nil
		return e.restoreTurnAfterTradeLocked(ctx, s, t)
	}
	if to.Money < t.WantedMoney {
		return e.rejectf(ctx, userID, "you cannot cover the wanted money")
	}
	if from.Money < t.OfferedMoney {
		// The offerer's balance moved since the offer; void it.
		s.Trade = nil
		e.broadcast.EmitToGame(g.ID, EventTradeRefused, map[string]interface{}{
			"fromUserId": t.FromUserID,
			"toUserId":   t.ToUserID,
		})
		return e.restoreTurnAfterTradeLocked(ctx, s, t)
	}

	all, err := e.fields.ListByGame(ctx, g.ID)
	if err != nil {
		return err
	}
	byIndex := make(map[int]*models.Field, len(all))
	for _, f := range all {
		byIndex[f.Index] = f
	}
	var swapped []*models.Field
	for _, idx := range t.OfferedFields {
		if f, ok := byIndex[idx]; ok && f.OwnedBy == t.FromUserID {
			f.OwnedBy = t.ToUserID
			swapped = append(swapped, f)
		}
	}
	for _, idx := range t.WantedFields {
		if f, ok := byIndex[idx]; ok && f.OwnedBy == t.ToUserID {
			f.OwnedBy = t.FromUserID
			swapped = append(swapped, f)
		}
	}
	if len(swapped) > 0 {
		if err := e.fields.BulkUpdate(ctx, swapped); err != nil {
			return err
		}
	}

	// Two independent money legs.
	if err := e.creditLocked(ctx, from, -t.OfferedMoney+t.WantedMoney); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, to, t.OfferedMoney-t.WantedMoney); err != nil {
		return err
	}

	s.Trade = nil
	e.broadcast.EmitToGame(g.ID, EventTradeAccepted, map[string]interface{}{
		"fromUserId": t.FromUserID,
		"toUserId":   t.ToUserID,
	})
	e.emitPlayersLocked(s)
	e.broadcast.EmitToGame(g.ID, EventUpdateGameData, map[string]interface{}{
		"fields": swapped,
	})
	e.logAction(s, userID, "tradeAccepted", map[string]interface{}{
		"fromUserId": t.FromUserID,
	})
	e.chatNarrate(s, userID, "A trade was accepted")
	return e.restoreTurnAfterTradeLocked(ctx, s, t)
}

// RefuseTrade declines the pending trade. Only the recipient may refuse.
func (e *Engine) RefuseTrade(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Trade
	if t == nil {
		return e.rejectf(ctx, userID, "no pending trade")
	}
	if t.ToUserID != userID {
		return e.rejectf(ctx, userID, "this trade is not addressed to you")
	}
	return e.refuseTradeLocked(ctx, s)
}

// resolveTradeDeadlineLocked auto-refuses an unanswered trade offer.
func (e *Engine) resolveTradeDeadlineLocked(ctx context.Context, s *Session) error {
	if s.Trade == nil {
		return nil
	}
	return e.refuseTradeLocked(ctx, s)
}

// refuseTradeLocked clears the offer and snaps the turn back to the offerer.
// Assumes the session lock is held.
func (e *Engine) refuseTradeLocked(ctx context.Context, s *Session) error {
	t := s.Trade
	s.Trade = nil
	if t == nil {
		return nil
	}
	e.broadcast.EmitToGame(s.Game.ID, EventTradeRefused, map[string]interface{}{
		"fromUserId": t.FromUserID,
		"toUserId":   t.ToUserID,
	})
	e.logAction(s, t.ToUserID, "tradeRefused", nil)
	return e.restoreTurnAfterTradeLocked(ctx, s, t)
}

// restoreTurnAfterTradeLocked gives the turn back to the offerer and re-arms
// the roll deadline with whatever turn time remains. A clock already past its
// end passes the turn instead. Assumes the session lock is held.
func (e *Engine) restoreTurnAfterTradeLocked(ctx context.Context, s *Session, t *models.Trade) error {
	g := s.Game
	g.TurnOfUserID = t.FromUserID
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}
	e.emitGameDataLocked(s)

	remaining := g.TurnEnds.Sub(e.clock.Now())
	if remaining <= 0 {
		return e.passTurnToNextLocked(ctx, s)
	}
	if offerer := g.PlayerByUserID(t.FromUserID); offerer == nil || offerer.Lost {
		return e.passTurnToNextLocked(ctx, s)
	}
	var kind CommandKind = CmdRollDeadline
	if len(g.Dices) > 0 {
		// The offerer already rolled; the rest of the window only has to
		// close the turn.
		kind = CmdPassTurn
	}
	e.sched.Schedule(g.ID, remaining, Command{Kind: kind})
	return nil
}
