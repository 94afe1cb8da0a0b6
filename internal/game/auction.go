package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// openAuctionLocked starts bidding for the field the lander declined (or
// could not afford). The opening entry is a synthetic bank bid at the list
// price; the lander is pre-refused so only the other players may bid.
// Assumes the session lock is held.
func (e *Engine) openAuctionLocked(ctx context.Context, s *Session, f *models.Field, lander *models.Player) error {
	s.Auction = &models.Auction{
		FieldIndex: f.Index,
		Bidders: []models.Bidder{
			{UserID: uuid.Nil, Bid: f.Price, Accepted: true},
		},
		TurnEnds:     e.clock.Now().Add(AuctionResponseTimeout),
		UsersRefused: map[uuid.UUID]bool{lander.UserID: true},
	}
	e.broadcast.EmitToGame(s.Game.ID, EventHasPutUpForAuction, map[string]interface{}{
		"fieldIndex": f.Index,
		"price":      f.Price,
		"userId":     lander.UserID,
	})
	e.logAction(s, lander.UserID, "hasPutUpForAuction", map[string]interface{}{
		"fieldIndex": f.Index,
		"price":      f.Price,
	})
	e.sched.Schedule(s.Game.ID, AuctionResponseTimeout, Command{Kind: CmdAuctionDeadline})
	return nil
}

// RaisePrice stages a raise on the active auction. bidAmount must equal the
// leader's current bid; a mismatch means the caller raised against a stale
// frame. The raise is provisional for the duration of the race window so a
// concurrent raise can supersede it.
func (e *Engine) RaisePrice(ctx context.Context, gameID, userID uuid.UUID, raiseBy, bidAmount int64) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.Auction
	if a == nil {
		return e.rejectf(ctx, userID, "no active auction")
	}
	p := s.Game.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	if a.HasRefused(userID) {
		return e.rejectf(ctx, userID, "you already refused to bid")
	}
	leader := a.Leader()
	if leader == nil {
		return e.rejectf(ctx, userID, "auction has no current bid")
	}
	if bidAmount != leader.Bid {
		return e.rejectf(ctx, userID, "bid is out of date, current bid is %d", leader.Bid)
	}
	if raiseBy < MinRaise {
		return e.rejectf(ctx, userID, "minimum raise is %d", MinRaise)
	}
	newBid := leader.Bid + raiseBy
	if p.Money < newBid {
		return e.rejectf(ctx, userID, "not enough money to bid %d", newBid)
	}

	a.Bidders = append(a.Bidders, models.Bidder{UserID: userID, Bid: newBid})
	s.auctionSeq++
	pending := e.sched.Schedule(s.Game.ID, RaceWindow, Command{
		Kind:   CmdAuctionRace,
		UserID: userID,
		Seq:    s.auctionSeq,
	})
	go e.notifyRaceLoss(pending, userID)
	return nil
}

// notifyRaceLoss tells a bidder their staged raise lost the race window.
func (e *Engine) notifyRaceLoss(p *Pending, userID uuid.UUID) {
	outcome, _ := p.Wait()
	if outcome == OutcomeSuperseded {
		e.broadcast.EmitToUser(userID, EventError, map[string]interface{}{
			"message": "your bid was superseded by another action",
		})
	}
}

// confirmRaiseLocked promotes the newest staged raise once its race window
// closed. A stale seq means a later raise is already staged; that raise's own
// window will confirm it.
func (e *Engine) confirmRaiseLocked(ctx context.Context, s *Session, seq uint64) error {
	a := s.Auction
	if a == nil || seq != s.auctionSeq {
		return nil
	}
	// Refusal marks may land after the staged raise inside the race window,
	// so scan back past zero-valued entries for the newest real bid.
	var staged *models.Bidder
	for i := len(a.Bidders) - 1; i >= 0; i-- {
		if a.Bidders[i].Bid > 0 {
			staged = &a.Bidders[i]
			break
		}
	}
	if staged == nil || staged.Accepted || staged.UserID == uuid.Nil {
		return nil
	}
	staged.Accepted = true
	a.TurnEnds = e.clock.Now().Add(AuctionResponseTimeout)

	e.broadcast.EmitToGame(s.Game.ID, EventRaisedPrice, map[string]interface{}{
		"userId":     staged.UserID,
		"bid":        staged.Bid,
		"fieldIndex": a.FieldIndex,
	})
	e.logAction(s, staged.UserID, "raisedPrice", map[string]interface{}{
		"bid":        staged.Bid,
		"fieldIndex": a.FieldIndex,
	})
	e.sched.Schedule(s.Game.ID, AuctionResponseTimeout, Command{Kind: CmdAuctionDeadline})
	return nil
}

// RefuseFromAuction withdraws the caller from the bidding. The current leader
// cannot refuse. When every non-eliminated player has refused, the auction
// settles immediately.
func (e *Engine) RefuseFromAuction(ctx context.Context, gameID, userID uuid.UUID) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.Auction
	if a == nil {
		return e.rejectf(ctx, userID, "no active auction")
	}
	p := s.Game.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	if a.HasRefused(userID) {
		return e.rejectf(ctx, userID, "you already refused to bid")
	}
	if leader := a.Leader(); leader != nil && leader.UserID == userID {
		return e.rejectf(ctx, userID, "the leading bidder cannot refuse")
	}

	a.UsersRefused[userID] = true
	// Refusals leave a zero-valued mark in the bidder log.
	a.Bidders = append(a.Bidders, models.Bidder{UserID: userID})

	e.broadcast.EmitToGame(s.Game.ID, EventRefusedFromAuction, map[string]interface{}{
		"userId":     userID,
		"fieldIndex": a.FieldIndex,
	})
	e.logAction(s, userID, "refusedFromAuction", map[string]interface{}{
		"fieldIndex": a.FieldIndex,
	})

	leader := a.Leader()
	for _, pl := range s.Game.ActivePlayers() {
		if leader != nil && pl.UserID == leader.UserID {
			continue
		}
		if !a.HasRefused(pl.UserID) {
			return nil
		}
	}
	// Everyone but the leader is out; settle with whatever leader exists.
	return e.settleAuctionLocked(ctx, s)
}

// resolveAuctionDeadlineLocked fires when bidders stopped responding.
func (e *Engine) resolveAuctionDeadlineLocked(ctx context.Context, s *Session) error {
	return e.settleAuctionLocked(ctx, s)
}

// settleAuctionLocked ends the auction: a real leading bid wins the field,
// the synthetic opening bid alone means nobody wanted it. Idempotent on an
// already-settled auction. Assumes the session lock is held.
func (e *Engine) settleAuctionLocked(ctx context.Context, s *Session) error {
	a := s.Auction
	if a == nil {
		return nil
	}
	leader := a.Leader()
	if leader == nil || leader.UserID == uuid.Nil {
		s.Auction = nil
		return e.passTurnToNextLocked(ctx, s)
	}
	return e.winAuctionLocked(ctx, s, leader)
}

// winAuctionLocked transfers the field to the leading bidder and charges the
// bid. Solvency was proven when the raise was accepted, so the charge is a
// plain debit. Assumes the session lock is held.
func (e *Engine) winAuctionLocked(ctx context.Context, s *Session, leader *models.Bidder) error {
	a := s.Auction
	if a == nil {
		return nil
	}
	f, err := e.fields.FindByIndex(ctx, s.Game.ID, a.FieldIndex)
	if err != nil {
		return err
	}
	winner := s.Game.PlayerByUserID(leader.UserID)
	if winner == nil || winner.Lost {
		s.Auction = nil
		return e.passTurnToNextLocked(ctx, s)
	}

	f.OwnedBy = winner.UserID
	if err := e.fields.Update(ctx, f); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, winner, -leader.Bid); err != nil {
		return err
	}
	s.Auction = nil

	e.broadcast.EmitToGame(s.Game.ID, EventWonAuction, map[string]interface{}{
		"userId":     winner.UserID,
		"bid":        leader.Bid,
		"fieldIndex": f.Index,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, winner.UserID, "wonAuction", map[string]interface{}{
		"bid":        leader.Bid,
		"fieldIndex": f.Index,
	})
	e.chatNarrate(s, winner.UserID, "The auction for "+f.Name+" is over")
	return e.passTurnToNextLocked(ctx, s)
}
