package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// landOnUnownedField drives the turn owner onto field 6 (price 1000),
// opening an auction with the bank's floor bid.
func landOnUnownedField(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.rollTo(6))
	require.NotNil(t, f.session.Auction)
}

func TestAuctionOpensWithFloorBidAndPreRefusedLander(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)

	a := f.session.Auction
	assert.Equal(t, 6, a.FieldIndex)
	require.Len(t, a.Bidders, 1)
	assert.Equal(t, uuid.Nil, a.Bidders[0].UserID)
	assert.Equal(t, f.field(6).Price, a.Bidders[0].Bid)
	assert.True(t, a.Bidders[0].Accepted)
	assert.True(t, a.HasRefused(f.players[0].UserID))
	assert.Equal(t, 1, f.bc.gameEventCount(EventHasPutUpForAuction))
}

func TestRaisePriceValidation(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]

	// Stale frame: the claimed current bid does not match the leader.
	err := f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 900)
	assert.True(t, IsValidation(err))

	// Below the minimum increment.
	err = f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, 50, 1000)
	assert.True(t, IsValidation(err))

	// The lander was pre-refused and may not bid.
	err = f.engine.RaisePrice(f.ctx(), f.game.ID, f.players[0].UserID, MinRaise, 1000)
	assert.True(t, IsValidation(err))

	// Solvency covers the whole resulting bid.
	bidder.Money = 1000
	err = f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000)
	assert.True(t, IsValidation(err))
}

func TestRaiseConfirmsAfterRaceWindow(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))

	a := f.session.Auction
	require.Len(t, a.Bidders, 2)
	assert.False(t, a.Bidders[1].Accepted, "a staged raise is provisional until the window closes")
	assert.Equal(t, uuid.Nil, a.Leader().UserID, "the floor still leads during the window")

	f.clock.Advance(RaceWindow)
	assert.True(t, a.Bidders[1].Accepted)
	assert.Equal(t, bidder.UserID, a.Leader().UserID)
	assert.Equal(t, int64(1100), a.Leader().Bid)
	assert.Equal(t, 1, f.bc.gameEventCount(EventRaisedPrice))
	assert.True(t, f.engine.Scheduler().HasPending(f.game.ID), "response deadline armed")
}

func TestConcurrentRaisesLastWriterWins(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	first, second := f.players[1], f.players[2]

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, first.UserID, MinRaise, 1000))
	// Second raise arrives inside the race window, against the same frame.
	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, second.UserID, MinRaise, 1000))

	f.clock.Advance(RaceWindow)

	a := f.session.Auction
	require.NotNil(t, a)
	leader := a.Leader()
	assert.Equal(t, second.UserID, leader.UserID)
	assert.Equal(t, int64(1100), leader.Bid)
	assert.Equal(t, 1, f.bc.gameEventCount(EventRaisedPrice))

	// The losing bidder is told their raise was superseded.
	assert.Eventually(t, func() bool {
		f.bc.mu.Lock()
		defer f.bc.mu.Unlock()
		for _, ev := range f.bc.userEvents {
			if ev.target == first.UserID && ev.name == EventError {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestRefusalInsideRaceWindowDoesNotDropStagedRaise(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))
	// A refusal lands inside the race window, appending its mark after the
	// staged raise in the bidder log.
	require.NoError(t, f.engine.RefuseFromAuction(f.ctx(), f.game.ID, f.players[2].UserID))

	f.clock.Advance(RaceWindow)

	a := f.session.Auction
	require.NotNil(t, a)
	leader := a.Leader()
	require.NotNil(t, leader)
	assert.Equal(t, bidder.UserID, leader.UserID)
	assert.Equal(t, int64(1100), leader.Bid)
	assert.Equal(t, 1, f.bc.gameEventCount(EventRaisedPrice))
	assert.True(t, f.engine.Scheduler().HasPending(f.game.ID), "response deadline armed")

	// The deadline still settles the auction on its own.
	f.clock.Advance(AuctionResponseTimeout)
	assert.Nil(t, f.session.Auction)
	assert.Equal(t, bidder.UserID, f.field(6).OwnedBy)
}

func TestSettlementIsIdempotent(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))
	f.clock.Advance(RaceWindow)
	f.clock.Advance(AuctionResponseTimeout)

	require.Nil(t, f.session.Auction)
	money := bidder.Money
	turn := f.game.TurnOfUserID

	// A late duplicate of the deadline must be a no-op on the cleared auction.
	f.session.mu.Lock()
	err := f.engine.resolveAuctionDeadlineLocked(f.ctx(), f.session)
	f.session.mu.Unlock()
	require.NoError(t, err)

	assert.Equal(t, money, bidder.Money, "winner is not charged twice")
	assert.Equal(t, bidder.UserID, f.field(6).OwnedBy)
	assert.Equal(t, turn, f.game.TurnOfUserID)
	assert.Equal(t, 1, f.bc.gameEventCount(EventWonAuction))
}

func TestLeaderCannotRefuse(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))
	f.clock.Advance(RaceWindow)

	err := f.engine.RefuseFromAuction(f.ctx(), f.game.ID, bidder.UserID)
	assert.True(t, IsValidation(err))
}

func TestRefusalCascadeSettlesWithLeader(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)
	bidder := f.players[1]
	before := bidder.Money

	require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))
	f.clock.Advance(RaceWindow)

	// The last non-leader bows out; the auction settles immediately.
	require.NoError(t, f.engine.RefuseFromAuction(f.ctx(), f.game.ID, f.players[2].UserID))

	assert.Nil(t, f.session.Auction)
	assert.Equal(t, bidder.UserID, f.field(6).OwnedBy)
	assert.Equal(t, before-1100, bidder.Money)
	assert.Equal(t, 1, f.bc.gameEventCount(EventWonAuction))
	assert.Equal(t, bidder.UserID, f.game.TurnOfUserID, "turn moves to the next seat")
}

func TestAllRefuseWithoutBidsPassesUnsold(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)

	require.NoError(t, f.engine.RefuseFromAuction(f.ctx(), f.game.ID, f.players[1].UserID))
	require.NoError(t, f.engine.RefuseFromAuction(f.ctx(), f.game.ID, f.players[2].UserID))

	assert.Nil(t, f.session.Auction)
	assert.Equal(t, uuid.Nil, f.field(6).OwnedBy)
	assert.Equal(t, 0, f.bc.gameEventCount(EventWonAuction))
	assert.Equal(t, f.players[1].UserID, f.game.TurnOfUserID)
}

func TestAuctionDeadlineSettles(t *testing.T) {
	t.Run("with a real leader the field sells", func(t *testing.T) {
		f := newFixture(t, 3)
		landOnUnownedField(t, f)
		bidder := f.players[1]

		require.NoError(t, f.engine.RaisePrice(f.ctx(), f.game.ID, bidder.UserID, MinRaise, 1000))
		f.clock.Advance(RaceWindow)
		f.clock.Advance(AuctionResponseTimeout)

		assert.Nil(t, f.session.Auction)
		assert.Equal(t, bidder.UserID, f.field(6).OwnedBy)
	})

	t.Run("with only the floor bid nobody buys", func(t *testing.T) {
		f := newFixture(t, 3)
		landOnUnownedField(t, f)

		f.clock.Advance(AuctionResponseTimeout)

		assert.Nil(t, f.session.Auction)
		assert.Equal(t, uuid.Nil, f.field(6).OwnedBy)
		assert.Equal(t, f.players[1].UserID, f.game.TurnOfUserID)
	})
}

func TestRefusalLeavesZeroValuedMarkInBidderLog(t *testing.T) {
	f := newFixture(t, 3)
	landOnUnownedField(t, f)

	require.NoError(t, f.engine.RefuseFromAuction(f.ctx(), f.game.ID, f.players[1].UserID))
	a := f.session.Auction
	require.NotNil(t, a)
	last := a.Bidders[len(a.Bidders)-1]
	assert.Equal(t, f.players[1].UserID, last.UserID)
	assert.Zero(t, last.Bid)
	assert.False(t, last.Accepted)
	// The backward leader scan skips the refusal mark.
	assert.Equal(t, uuid.Nil, a.Leader().UserID)
}
