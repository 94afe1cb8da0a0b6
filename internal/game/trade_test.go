package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monopoly/server/internal/models"
)

func tradeFixture(t *testing.T) (*fixture, *models.Player, *models.Player) {
	t.Helper()
	f := newFixture(t, 2)
	offerer, recipient := f.players[0], f.players[1]
	f.field(5).OwnedBy = offerer.UserID
	f.field(8).OwnedBy = recipient.UserID
	return f, offerer, recipient
}

func TestOfferTradeValidation(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)

	t.Run("only the turn owner may offer", func(t *testing.T) {
		err := f.engine.OfferTrade(f.ctx(), f.game.ID, recipient.UserID, &models.Trade{
			ToUserID: offerer.UserID, OfferedFields: []int{8},
		})
		assert.True(t, IsValidation(err))
	})

	t.Run("empty offers are rejected", func(t *testing.T) {
		err := f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
			ToUserID: recipient.UserID,
		})
		assert.True(t, IsValidation(err))
	})

	t.Run("offered fields must be owned by the offerer", func(t *testing.T) {
		err := f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
			ToUserID: recipient.UserID, OfferedFields: []int{8},
		})
		assert.True(t, IsValidation(err))
	})

	t.Run("trading with yourself is rejected", func(t *testing.T) {
		err := f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
			ToUserID: offerer.UserID, OfferedFields: []int{5},
		})
		assert.True(t, IsValidation(err))
	})
}

func TestOfferTradeHandsTurnToRecipient(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)

	require.NoError(t, f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
		ToUserID:      recipient.UserID,
		OfferedFields: []int{5},
		WantedFields:  []int{8},
		OfferedMoney:  200,
	}))

	assert.Equal(t, recipient.UserID, f.game.TurnOfUserID)
	assert.Equal(t, 1, f.bc.gameEventCount(EventTradeOffered))
	assert.True(t, f.engine.Scheduler().HasPending(f.game.ID))

	// The offerer cannot roll while the offer is open.
	err := f.engine.RollDice(f.ctx(), f.game.ID, offerer.UserID)
	assert.True(t, IsValidation(err))
}

func TestAcceptTradeSwapsFieldsAndMoney(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)
	offBefore, recBefore := offerer.Money, recipient.Money

	require.NoError(t, f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
		ToUserID:      recipient.UserID,
		OfferedFields: []int{5},
		WantedFields:  []int{8},
		OfferedMoney:  200,
		WantedMoney:   50,
	}))
	require.NoError(t, f.engine.AcceptTrade(f.ctx(), f.game.ID, recipient.UserID))

	assert.Equal(t, recipient.UserID, f.field(5).OwnedBy)
	assert.Equal(t, offerer.UserID, f.field(8).OwnedBy)
	assert.Equal(t, offBefore-200+50, offerer.Money)
	assert.Equal(t, recBefore+200-50, recipient.Money)
	assert.Equal(t, 1, f.bc.gameEventCount(EventTradeAccepted))

	// The turn snaps back to the offerer with the clock still running.
	assert.Equal(t, offerer.UserID, f.game.TurnOfUserID)
	assert.Nil(t, f.session.Trade)
	assert.True(t, f.engine.Scheduler().HasPending(f.game.ID))
}

func TestOnlyRecipientMayAnswer(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)

	require.NoError(t, f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
		ToUserID:      recipient.UserID,
		OfferedFields: []int{5},
	}))

	assert.True(t, IsValidation(f.engine.AcceptTrade(f.ctx(), f.game.ID, offerer.UserID)))
	assert.True(t, IsValidation(f.engine.RefuseTrade(f.ctx(), f.game.ID, offerer.UserID)))
	assert.NotNil(t, f.session.Trade)
}

func TestRefuseTradeRestoresTurn(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)

	require.NoError(t, f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
		ToUserID:      recipient.UserID,
		OfferedFields: []int{5},
	}))
	require.NoError(t, f.engine.RefuseTrade(f.ctx(), f.game.ID, recipient.UserID))

	assert.Nil(t, f.session.Trade)
	assert.Equal(t, offerer.UserID, f.game.TurnOfUserID)
	assert.Equal(t, offerer.UserID, f.field(5).OwnedBy, "nothing changes hands")
	assert.Equal(t, 1, f.bc.gameEventCount(EventTradeRefused))
}

func TestUnansweredTradeAutoRefuses(t *testing.T) {
	f, offerer, recipient := tradeFixture(t)

	require.NoError(t, f.engine.OfferTrade(f.ctx(), f.game.ID, offerer.UserID, &models.Trade{
		ToUserID:      recipient.UserID,
		OfferedFields: []int{5},
		WantedMoney:   300,
	}))
	f.clock.Advance(TradeResponseTimeout)

	assert.Nil(t, f.session.Trade)
	assert.Equal(t, offerer.UserID, f.game.TurnOfUserID)
	assert.Equal(t, 1, f.bc.gameEventCount(EventTradeRefused))
	// The offerer still has the rest of the turn to roll.
	assert.True(t, f.engine.Scheduler().HasPending(f.game.ID))
	require.NoError(t, f.rollTo(5))
}
