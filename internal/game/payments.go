package game

import (
	"context"

	"github.com/google/uuid"
)

// transferWithBankLocked applies amount (positive payout, negative charge) to
// the player's balance. A charge the player cannot cover eliminates the player
// and leaves the balance untouched; money never goes negative.
// Assumes the session lock is held.
func (e *Engine) transferWithBankLocked(ctx context.Context, s *Session, userID uuid.UUID, amount int64) (eliminated bool, err error) {
	p := s.Game.PlayerByUserID(userID)
	if p == nil || p.Lost {
		return false, nil
	}
	if amount < 0 && p.Money < -amount {
		if err := e.loseGameLocked(ctx, s, userID); err != nil {
			return true, err
		}
		return true, nil
	}
	if err := e.creditLocked(ctx, p, amount); err != nil {
		return false, err
	}
	e.emitPlayersLocked(s)
	return false, nil
}

// payToUserForSecretLocked moves amount from one secret participant to the
// other. An insolvent payer is eliminated, the obligation dies with them and
// the payee is never credited. On success both slots of the secret record are
// settled; the record is destroyed once no unsettled slot remains.
// Assumes the session lock is held.
func (e *Engine) payToUserForSecretLocked(ctx context.Context, s *Session, fromID, toID uuid.UUID, amount int64) (eliminated bool, err error) {
	payer := s.Game.PlayerByUserID(fromID)
	payee := s.Game.PlayerByUserID(toID)
	if payer == nil || payer.Lost {
		return false, nil
	}

	if payer.Money < amount {
		s.Secret = nil
		if err := e.loseGameLocked(ctx, s, fromID); err != nil {
			return true, err
		}
		return true, nil
	}

	if err := e.creditLocked(ctx, payer, -amount); err != nil {
		return false, err
	}
	if payee != nil && !payee.Lost {
		if err := e.creditLocked(ctx, payee, amount); err != nil {
			return false, err
		}
	}

	if sec := s.Secret; sec != nil {
		sec.Settle(toID)
		if sec.Settle(fromID) {
			s.Secret = nil
		}
	}
	e.emitPlayersLocked(s)
	return false, nil
}

// payRentLocked settles a rent charge from payer to owner. The payer was
// liquidity-checked when the charge was created, but may still be cash-short
// at the deadline; that eliminates them.
// Assumes the session lock is held.
func (e *Engine) payRentLocked(ctx context.Context, s *Session, ch *PendingCharge) error {
	payer := s.Game.PlayerByUserID(ch.FromUserID)
	if payer == nil || payer.Lost {
		return nil
	}
	if payer.Money < ch.Amount {
		return e.loseGameLocked(ctx, s, ch.FromUserID)
	}
	if err := e.creditLocked(ctx, payer, -ch.Amount); err != nil {
		return err
	}
	if owner := s.Game.PlayerByUserID(ch.ToUserID); owner != nil && !owner.Lost {
		if err := e.creditLocked(ctx, owner, ch.Amount); err != nil {
			return err
		}
	}
	e.broadcast.EmitToGame(s.Game.ID, EventPayedForField, map[string]interface{}{
		"userId":     ch.FromUserID,
		"toUserId":   ch.ToUserID,
		"amount":     ch.Amount,
		"fieldIndex": ch.FieldIndex,
	})
	e.emitPlayersLocked(s)
	e.logAction(s, ch.FromUserID, "payRent", map[string]interface{}{
		"amount":     ch.Amount,
		"fieldIndex": ch.FieldIndex,
	})
	return nil
}
