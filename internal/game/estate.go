package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// PledgeField mortgages an owned, branch-free field for half its price. The
// pledge clock starts at the game's configured length; if it runs out before
// the field is redeemed, ownership reverts to the bank.
func (e *Engine) PledgeField(ctx context.Context, gameID, userID uuid.UUID, fieldIndex int) error {
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
	f, err := e.fields.FindByIndex(ctx, gameID, fieldIndex)
	if err != nil {
		return err
	}
	if f.OwnedBy != userID {
		return e.rejectf(ctx, userID, "you do not own this field")
	}
	if f.IsPledged {
		return e.rejectf(ctx, userID, "field is already pledged")
	}
	if f.AmountOfBranches > 0 {
		return e.rejectf(ctx, userID, "sell the branches first")
	}

	f.IsPledged = true
	f.TurnsToUnpledge = s.Game.TurnsToUnpledge
	if err := e.fields.Update(ctx, f); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, p, f.PledgeValue()); err != nil {
		return err
	}

	e.broadcast.EmitToGame(s.Game.ID, EventFieldPledged, map[string]interface{}{
		"userId":     userID,
		"fieldIndex": f.Index,
		"amount":     f.PledgeValue(),
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "pledgeField", map[string]interface{}{"fieldIndex": f.Index})
	return nil
}

// RedeemField buys a pledged field back for its pledge value.
func (e *Engine) RedeemField(ctx context.Context, gameID, userID uuid.UUID, fieldIndex int) error {
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
	f, err := e.fields.FindByIndex(ctx, gameID, fieldIndex)
	if err != nil {
		return err
	}
	if f.OwnedBy != userID {
		return e.rejectf(ctx, userID, "you do not own this field")
	}
	if !f.IsPledged {
		return e.rejectf(ctx, userID, "field is not pledged")
	}
	cost := f.PledgeValue()
	if p.Money < cost {
		return e.rejectf(ctx, userID, "not enough money to redeem")
	}

	f.IsPledged = false
	f.TurnsToUnpledge = 0
	if err := e.fields.Update(ctx, f); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, p, -cost); err != nil {
		return err
	}

	e.broadcast.EmitToGame(s.Game.ID, EventFieldRedeemed, map[string]interface{}{
		"userId":     userID,
		"fieldIndex": f.Index,
		"amount":     cost,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "redeemField", map[string]interface{}{"fieldIndex": f.Index})
	return nil
}

// BuyBranch builds one construction tier on the field. Requires the whole
// group owned pledge-free, even development across the group, bank inventory
// for the piece, and cash for the branch price. Tier five swaps the four
// houses for a hotel.
func (e *Engine) BuyBranch(ctx context.Context, gameID, userID uuid.UUID, fieldIndex int) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.Game
	p := g.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	all, err := e.fields.ListByGame(ctx, gameID)
	if err != nil {
		return err
	}
	f := fieldAt(all, fieldIndex)
	if f == nil || f.OwnedBy != userID {
		return e.rejectf(ctx, userID, "you do not own this field")
	}
	if f.BranchPrice <= 0 {
		return e.rejectf(ctx, userID, "this field cannot be developed")
	}
	if f.IsPledged {
		return e.rejectf(ctx, userID, "field is pledged")
	}
	if f.AmountOfBranches >= models.MaxBranches {
		return e.rejectf(ctx, userID, "field is fully developed")
	}

	newCount := f.AmountOfBranches + 1
	for _, sib := range groupOf(all, f) {
		if sib.OwnedBy != userID || sib.IsPledged {
			return e.rejectf(ctx, userID, "you must own the whole group, pledge-free")
		}
		if sib.Index != f.Index && newCount-sib.AmountOfBranches > 1 {
			return e.rejectf(ctx, userID, "develop the group evenly")
		}
	}

	if newCount == models.MaxBranches {
		if g.HotelsQty <= 0 {
			return e.rejectf(ctx, userID, "the bank is out of hotels")
		}
	} else if g.HousesQty <= 0 {
		return e.rejectf(ctx, userID, "the bank is out of houses")
	}
	if p.Money < f.BranchPrice {
		return e.rejectf(ctx, userID, "not enough money to build")
	}

	f.AmountOfBranches = newCount
	if newCount == models.MaxBranches {
		g.HotelsQty--
		g.HousesQty += 4
	} else {
		g.HousesQty--
	}
	if err := e.fields.Update(ctx, f); err != nil {
		return err
	}
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, p, -f.BranchPrice); err != nil {
		return err
	}

	e.broadcast.EmitToGame(g.ID, EventBranchBought, map[string]interface{}{
		"userId":     userID,
		"fieldIndex": f.Index,
		"branches":   f.AmountOfBranches,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "buyBranch", map[string]interface{}{"fieldIndex": f.Index})
	return nil
}

// SellBranch tears one tier down for half the branch price. Selling a hotel
// puts four houses back on the field, which the bank must be able to supply.
func (e *Engine) SellBranch(ctx context.Context, gameID, userID uuid.UUID, fieldIndex int) error {
	s, err := e.session(ctx, gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.Game
	p := g.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return e.rejectf(ctx, userID, "you are not playing this game")
	}
	all, err := e.fields.ListByGame(ctx, gameID)
	if err != nil {
		return err
	}
	f := fieldAt(all, fieldIndex)
	if f == nil || f.OwnedBy != userID {
		return e.rejectf(ctx, userID, "you do not own this field")
	}
	if f.AmountOfBranches <= 0 {
		return e.rejectf(ctx, userID, "nothing to sell on this field")
	}

	newCount := f.AmountOfBranches - 1
	for _, sib := range groupOf(all, f) {
		if sib.Index != f.Index && sib.AmountOfBranches-newCount > 1 {
			return e.rejectf(ctx, userID, "sell the group down evenly")
		}
	}
	if f.AmountOfBranches == models.MaxBranches && g.HousesQty < 4 {
		return e.rejectf(ctx, userID, "the bank cannot supply houses for the hotel")
	}

	if f.AmountOfBranches == models.MaxBranches {
		g.HotelsQty++
		g.HousesQty -= 4
	} else {
		g.HousesQty++
	}
	f.AmountOfBranches = newCount
	if err := e.fields.Update(ctx, f); err != nil {
		return err
	}
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}
	if err := e.creditLocked(ctx, p, f.BranchPrice/2); err != nil {
		return err
	}

	e.broadcast.EmitToGame(g.ID, EventBranchSold, map[string]interface{}{
		"userId":     userID,
		"fieldIndex": f.Index,
		"branches":   f.AmountOfBranches,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, userID, "sellBranch", map[string]interface{}{"fieldIndex": f.Index})
	return nil
}

func fieldAt(all []*models.Field, index int) *models.Field {
	for _, f := range all {
		if f.Index == index {
			return f
		}
	}
	return nil
}

func groupOf(all []*models.Field, f *models.Field) []*models.Field {
	if f.Group == "" {
		return []*models.Field{f}
	}
	var group []*models.Field
	for _, other := range all {
		if other.Group == f.Group {
			group = append(group, other)
		}
	}
	return group
}
