package game

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// RandomPlayerPlaceholder is substituted in secret texts with the randomly
// chosen counterparty when the event is drawn. Templates themselves are never
// mutated; every draw renders a fresh copy.
const RandomPlayerPlaceholder = "$RANDOM_PLAYER$"

// allPlayers marks a template involving every non-eliminated player.
const allPlayers = -1

// secretTemplate is one card of the deck. players is 1, 2 or allPlayers.
// Amount sign convention: negative means the slot's user pays, positive means
// they receive. For two-party peer events the amounts mirror each other; for
// all-player events a single amount is a bank transfer applied to every other
// player, and a second amount is a peer transfer with the drawing player.
type secretTemplate struct {
	amounts []int64
	players int
	text    string
}

var secretDeck = []secretTemplate{
	{amounts: []int64{2000}, players: 1, text: "You won the city lottery. Collect 2000"},
	{amounts: []int64{1000}, players: 1, text: "Tax refund. Collect 1000"},
	{amounts: []int64{500}, players: 1, text: "You sold an old painting. Collect 500"},
	{amounts: []int64{-1500}, players: 1, text: "Hospital bills. Pay 1500"},
	{amounts: []int64{-1000}, players: 1, text: "Speeding fine. Pay 1000"},
	{amounts: []int64{-500}, players: 1, text: "Street repairs in front of your house. Pay 500"},
	{amounts: []int64{-1500, 1500}, players: 2, text: "Pay " + RandomPlayerPlaceholder + " 1500 for consulting services"},
	{amounts: []int64{1000, -1000}, players: 2, text: RandomPlayerPlaceholder + " repays an old debt. Collect 1000"},
	{amounts: []int64{-300}, players: allPlayers, text: "City toll. Every other player pays the bank 300"},
	{amounts: []int64{0, -500}, players: allPlayers, text: "It is your birthday. Every player pays you 500"},
	{amounts: []int64{0, 300}, players: allPlayers, text: "You throw a party. Pay every player 300"},
}

// Secret classifier predicates, pure over the record and the acting user.

// SecretOnePlayerMustPay reports whether the record is a single-participant
// charge still owed by userID.
func SecretOnePlayerMustPay(sec *models.SecretInfo, userID uuid.UUID) bool {
	return sec.NumOfPlayersInvolved == 1 &&
		len(sec.Amounts) > 0 && sec.Amounts[0] < 0 &&
		len(sec.Users) > 0 && sec.Users[0] == userID
}

// SecretOnePlayerMustReceive reports whether the record is a
// single-participant payout for userID.
func SecretOnePlayerMustReceive(sec *models.SecretInfo, userID uuid.UUID) bool {
	return sec.NumOfPlayersInvolved == 1 &&
		len(sec.Amounts) > 0 && sec.Amounts[0] > 0 &&
		len(sec.Users) > 0 && sec.Users[0] == userID
}

// SecretTwoPlayersInvolved reports whether exactly two participants are bound.
func SecretTwoPlayersInvolved(sec *models.SecretInfo) bool {
	return sec.NumOfPlayersInvolved == 2
}

// SecretAllPlayersInvolved reports whether the whole table participates.
func SecretAllPlayersInvolved(sec *models.SecretInfo) bool {
	return sec.NumOfPlayersInvolved > 2
}

// drawSecretLocked draws a random card for the lander, renders it into a
// SecretInfo and resolves it according to its participant count.
// Assumes the session lock is held.
func (e *Engine) drawSecretLocked(ctx context.Context, s *Session, p *models.Player) error {
	g := s.Game
	tpl := secretDeck[e.rng.Intn(len(secretDeck))]

	info := &models.SecretInfo{
		Amounts: append([]int64(nil), tpl.amounts...),
		Text:    tpl.text,
	}
	switch tpl.players {
	case 1:
		info.Users = []uuid.UUID{p.UserID}
		info.NumOfPlayersInvolved = 1
	case 2:
		other := e.randomOtherPlayerLocked(g, p)
		if other == nil {
			// Nobody left to pair with; the card has no effect.
			return e.landPassLocked(ctx, s, nil, p)
		}
		info.Users = []uuid.UUID{p.UserID, other.UserID}
		info.NumOfPlayersInvolved = 2
		info.Text = strings.Replace(info.Text, RandomPlayerPlaceholder, other.Color, 1)
	default:
		info.Users = []uuid.UUID{p.UserID}
		for _, pl := range g.ActivePlayers() {
			if pl.UserID != p.UserID {
				info.Users = append(info.Users, pl.UserID)
			}
		}
		info.NumOfPlayersInvolved = len(info.Users)
		if info.NumOfPlayersInvolved < 2 {
			return e.landPassLocked(ctx, s, nil, p)
		}
	}
	s.Secret = info

	e.broadcast.EmitToGame(g.ID, EventSecretDrawn, map[string]interface{}{
		"text":    info.Text,
		"users":   info.Users,
		"amounts": info.Amounts,
	})
	e.logAction(s, p.UserID, "secretDrawn", map[string]interface{}{"text": info.Text})
	e.chatNarrate(s, p.UserID, info.Text)

	switch {
	case info.NumOfPlayersInvolved == 1:
		return e.resolveSecretSoloLocked(ctx, s, p)
	case info.NumOfPlayersInvolved == 2:
		return e.resolveSecretPairLocked(ctx, s)
	default:
		return e.resolveSecretTableLocked(ctx, s)
	}
}

// randomOtherPlayerLocked picks a random non-eliminated player other than p.
func (e *Engine) randomOtherPlayerLocked(g *models.Game, p *models.Player) *models.Player {
	var others []*models.Player
	for _, pl := range g.ActivePlayers() {
		if pl.UserID != p.UserID {
			others = append(others, pl)
		}
	}
	if len(others) == 0 {
		return nil
	}
	return others[e.rng.Intn(len(others))]
}

// resolveSecretSoloLocked handles the single-participant card: payouts apply
// immediately and the turn moves on; charges stay open for the payment window
// so the player may raise cash or pay early. Assumes the session lock is held.
func (e *Engine) resolveSecretSoloLocked(ctx context.Context, s *Session, p *models.Player) error {
	sec := s.Secret
	if sec == nil || len(sec.Amounts) == 0 {
		return e.landPassLocked(ctx, s, nil, p)
	}
	if sec.Amounts[0] > 0 {
		s.Secret = nil
		if _, err := e.transferWithBankLocked(ctx, s, p.UserID, sec.Amounts[0]); err != nil {
			return err
		}
		return e.landPassLocked(ctx, s, nil, p)
	}
	e.sched.Schedule(s.Game.ID, s.Game.TimeOfTurn, Command{Kind: CmdSecretDeadline})
	return nil
}

// resolveSecretDeadlineLocked force-settles an expired single-participant
// charge. The player had the whole window to raise cash; failing now means
// elimination when the balance cannot cover it.
func (e *Engine) resolveSecretDeadlineLocked(ctx context.Context, s *Session) error {
	sec := s.Secret
	if sec == nil {
		return e.passTurnToNextLocked(ctx, s)
	}
	if len(sec.Users) == 0 || len(sec.Amounts) == 0 {
		s.Secret = nil
		return e.passTurnToNextLocked(ctx, s)
	}
	userID := sec.Users[0]
	amount := sec.Amounts[0]
	s.Secret = nil
	eliminated, err := e.transferWithBankLocked(ctx, s, userID, amount)
	if err != nil {
		return err
	}
	if eliminated || s.Game.Status != models.GameStatusActive {
		return nil
	}
	return e.passTurnToNextLocked(ctx, s)
}

// resolveSecretPairLocked settles a two-participant card immediately. The
// owing side pays first; their insolvency eliminates them and the obligation
// dies before the counterparty is touched. Mirrored amounts are a peer
// transfer; independent signs are two serialized bank legs.
// Assumes the session lock is held.
func (e *Engine) resolveSecretPairLocked(ctx context.Context, s *Session) error {
	sec := s.Secret
	if sec == nil || len(sec.Users) != 2 || len(sec.Amounts) != 2 {
		s.Secret = nil
		return e.schedulePassIfTurnHeldLocked(s)
	}
	first, second := sec.Users[0], sec.Users[1]

	if sec.Amounts[0]+sec.Amounts[1] == 0 && sec.Amounts[0] != 0 {
		from, to := first, second
		amount := -sec.Amounts[0]
		if sec.Amounts[0] > 0 {
			from, to = second, first
			amount = sec.Amounts[0]
		}
		if _, err := e.payToUserForSecretLocked(ctx, s, from, to, amount); err != nil {
			return err
		}
		return e.schedulePassIfTurnHeldLocked(s)
	}

	// Independent bank legs, ower first.
	order := []int{0, 1}
	if sec.Amounts[1] < 0 && sec.Amounts[0] >= 0 {
		order = []int{1, 0}
	}
	users := []uuid.UUID{first, second}
	for _, i := range order {
		eliminated, err := e.transferWithBankLocked(ctx, s, users[i], sec.Amounts[i])
		if err != nil {
			return err
		}
		if eliminated {
			// The obligation dies with the eliminated player.
			s.Secret = nil
			if s.Game.Status != models.GameStatusActive {
				return nil
			}
			return e.schedulePassIfTurnHeldLocked(s)
		}
		if sec := s.Secret; sec != nil {
			if sec.Settle(users[i]) {
				s.Secret = nil
			}
		}
	}
	s.Secret = nil
	return e.schedulePassIfTurnHeldLocked(s)
}

// resolveSecretTableLocked settles an all-player card immediately, one
// counterparty at a time. Assumes the session lock is held.
func (e *Engine) resolveSecretTableLocked(ctx context.Context, s *Session) error {
	sec := s.Secret
	if sec == nil || len(sec.Users) < 2 {
		s.Secret = nil
		return e.schedulePassIfTurnHeldLocked(s)
	}
	lander := sec.Users[0]
	others := append([]uuid.UUID(nil), sec.Users[1:]...)

	for _, other := range others {
		if other == uuid.Nil {
			continue
		}
		switch len(sec.Amounts) {
		case 1:
			// Bank transfer applied to every other player.
			if _, err := e.transferWithBankLocked(ctx, s, other, sec.Amounts[0]); err != nil {
				return err
			}
		case 2:
			// Peer transfer between each other player and the lander.
			amount := sec.Amounts[1]
			var eliminated bool
			var err error
			if amount < 0 {
				eliminated, err = e.payToUserForSecretLocked(ctx, s, other, lander, -amount)
			} else {
				eliminated, err = e.payToUserForSecretLocked(ctx, s, lander, other, amount)
			}
			if err != nil {
				return err
			}
			if eliminated && amount >= 0 {
				// The lander went bankrupt mid-round; nobody else pays.
				s.Secret = nil
				return e.schedulePassIfTurnHeldLocked(s)
			}
		}
		if s.Game.Status != models.GameStatusActive {
			s.Secret = nil
			return nil
		}
	}
	s.Secret = nil
	return e.schedulePassIfTurnHeldLocked(s)
}

// schedulePassIfTurnHeldLocked arms the short pass-turn delay unless an
// elimination already handed the turn over. Assumes the session lock is held.
func (e *Engine) schedulePassIfTurnHeldLocked(s *Session) error {
	if s.Game.Status != models.GameStatusActive {
		return nil
	}
	if len(s.Game.Dices) == 0 {
		// The turn already moved to the next player.
		return nil
	}
	e.sched.Schedule(s.Game.ID, PassTurnDelay, Command{Kind: CmdPassTurn})
	return nil
}
