package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// Classifier predicates. All are pure over the field, the game frame and the
// landing player; the landing table composes them in a fixed priority order.

// OwnedByCurrentUser reports whether the field belongs to the lander.
func OwnedByCurrentUser(f *models.Field, p *models.Player) bool {
	return f.OwnedBy != uuid.Nil && f.OwnedBy == p.UserID
}

// OwnedByOtherNotPledged reports whether the field charges rent: owned by
// someone else and not pledged.
func OwnedByOtherNotPledged(f *models.Field, p *models.Player) bool {
	return f.OwnedBy != uuid.Nil && f.OwnedBy != p.UserID && !f.IsPledged
}

// NotOwned reports whether the bank still holds a purchasable field.
func NotOwned(f *models.Field) bool {
	return !f.IsSpecial() && f.OwnedBy == uuid.Nil
}

// IsSkipable reports whether landing has no effect: a corner field, a special
// field with neither a charge nor a secret draw, or a pledged field.
func IsSkipable(f *models.Field) bool {
	if f.IsPledged {
		return true
	}
	return f.IsSpecial() && f.ToPay == 0 && !f.Secret
}

// AffordableForSomeoneElse reports whether at least one other non-eliminated
// player could open the bidding at the field's price.
func AffordableForSomeoneElse(f *models.Field, g *models.Game, p *models.Player) bool {
	for _, other := range g.Players {
		if other.Lost || other.UserID == p.UserID {
			continue
		}
		if other.Money >= f.Price {
			return true
		}
	}
	return false
}

// landingRule is one branch of landing resolution. Rules are evaluated in
// order; the first matching rule consumes the landing.
type landingRule struct {
	name string
	when func(f *models.Field, g *models.Game, p *models.Player) bool
	do   func(ctx context.Context, s *Session, f *models.Field, p *models.Player) error
}

func (e *Engine) buildLandingRules() []landingRule {
	return []landingRule{
		{
			name: "passTurn",
			when: func(f *models.Field, g *models.Game, p *models.Player) bool {
				if OwnedByCurrentUser(f, p) || IsSkipable(f) {
					return true
				}
				return NotOwned(f) && !AffordableForSomeoneElse(f, g, p)
			},
			do: e.landPassLocked,
		},
		{
			name: "special",
			when: func(f *models.Field, g *models.Game, p *models.Player) bool {
				return f.IsSpecial() && (f.ToPay > 0 || f.Secret)
			},
			do: e.landSpecialLocked,
		},
		{
			name: "rent",
			when: func(f *models.Field, g *models.Game, p *models.Player) bool {
				return OwnedByOtherNotPledged(f, p)
			},
			do: e.landRentLocked,
		},
		{
			name: "auction",
			when: func(f *models.Field, g *models.Game, p *models.Player) bool {
				return NotOwned(f) && AffordableForSomeoneElse(f, g, p)
			},
			do: e.landAuctionLocked,
		},
	}
}

// resolveLandingLocked dispatches the landing through the rule table.
// Assumes the session lock is held.
func (e *Engine) resolveLandingLocked(ctx context.Context, s *Session, f *models.Field, p *models.Player) error {
	for _, rule := range e.landingRules {
		if rule.when(f, s.Game, p) {
			e.log.WithField("game_id", s.Game.ID).
				WithField("field_index", f.Index).
				WithField("rule", rule.name).
				Debug("landing resolved")
			return rule.do(ctx, s, f, p)
		}
	}
	// No rule matched; treat as a no-effect landing.
	return e.landPassLocked(ctx, s, f, p)
}

// rentForLocked computes the rent the lander owes: the income at the field's
// branch tier, doubled on an unimproved field whose whole group the owner
// holds pledge-free. Assumes the session lock is held.
func (e *Engine) rentForLocked(f *models.Field, all []*models.Field) int64 {
	rent := f.RentAt(f.AmountOfBranches)
	if f.AmountOfBranches > 0 {
		return rent
	}
	if f.Group == "" {
		return rent
	}
	for _, other := range all {
		if other.Group != f.Group {
			continue
		}
		if other.OwnedBy != f.OwnedBy || other.IsPledged {
			return rent
		}
	}
	return rent * 2
}

// liquidityOfLocked is the cash the player could raise on the spot: their
// balance plus the pledge value of every unpledged field they own.
func liquidityOf(p *models.Player, all []*models.Field) int64 {
	total := p.Money
	for _, f := range all {
		if f.OwnedBy == p.UserID && !f.IsPledged {
			total += f.PledgeValue()
		}
	}
	return total
}
