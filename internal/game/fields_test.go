package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"monopoly/server/internal/models"
)

func TestClassifierPredicates(t *testing.T) {
	me := &models.Player{UserID: uuid.New(), Money: 5000}
	other := &models.Player{UserID: uuid.New(), Money: 5000}
	g := &models.Game{Players: []*models.Player{me, other}}

	t.Run("owned by current user", func(t *testing.T) {
		f := &models.Field{Price: 1000, OwnedBy: me.UserID}
		assert.True(t, OwnedByCurrentUser(f, me))
		assert.False(t, OwnedByCurrentUser(f, other))
	})

	t.Run("owned by other not pledged", func(t *testing.T) {
		f := &models.Field{Price: 1000, OwnedBy: other.UserID}
		assert.True(t, OwnedByOtherNotPledged(f, me))
		f.IsPledged = true
		assert.False(t, OwnedByOtherNotPledged(f, me))
	})

	t.Run("bank-held field is not owned", func(t *testing.T) {
		assert.True(t, NotOwned(&models.Field{Price: 1000}))
		assert.False(t, NotOwned(&models.Field{Price: 1000, OwnedBy: me.UserID}))
		assert.False(t, NotOwned(&models.Field{}))
	})

	t.Run("skipable fields", func(t *testing.T) {
		assert.True(t, IsSkipable(&models.Field{Large: true}))
		assert.True(t, IsSkipable(&models.Field{Price: 1000, OwnedBy: other.UserID, IsPledged: true}))
		assert.False(t, IsSkipable(&models.Field{ToPay: 2000}))
		assert.False(t, IsSkipable(&models.Field{Secret: true}))
	})

	t.Run("affordable for someone else", func(t *testing.T) {
		f := &models.Field{Price: 4000}
		assert.True(t, AffordableForSomeoneElse(f, g, me))
		other.Money = 3000
		assert.False(t, AffordableForSomeoneElse(f, g, me))
		other.Money = 5000
		other.Lost = true
		assert.False(t, AffordableForSomeoneElse(f, g, me))
		other.Lost = false
	})
}

func TestRentDoublesOnUnimprovedMonopoly(t *testing.T) {
	f := newFixture(t, 2)
	owner := f.players[1]

	// "brown" group is fields 1 and 3.
	f1, f3 := f.field(1), f.field(3)
	f1.OwnedBy = owner.UserID
	f3.OwnedBy = owner.UserID

	all := []*models.Field{f1, f3}
	assert.Equal(t, 2*f1.RentAt(0), f.engine.rentForLocked(f1, all))

	// A pledged sibling breaks the monopoly.
	f3.IsPledged = true
	assert.Equal(t, f1.RentAt(0), f.engine.rentForLocked(f1, all))
	f3.IsPledged = false

	// Improvement switches to the branch tier, undoubled.
	f1.AmountOfBranches = 2
	assert.Equal(t, f1.RentAt(2), f.engine.rentForLocked(f1, all))
}

func TestLiquidityCountsUnpledgedHoldings(t *testing.T) {
	p := &models.Player{UserID: uuid.New(), Money: 100}
	mine := &models.Field{Price: 1000, OwnedBy: p.UserID}
	pledged := &models.Field{Price: 2000, OwnedBy: p.UserID, IsPledged: true}
	foreign := &models.Field{Price: 4000, OwnedBy: uuid.New()}

	got := liquidityOf(p, []*models.Field{mine, pledged, foreign})
	assert.Equal(t, int64(100+500), got)
}

func TestBoardTemplateShape(t *testing.T) {
	fields := BuildBoard(uuid.New())
	assert.Len(t, fields, BoardSize)
	for i, f := range fields {
		assert.Equal(t, i, f.Index)
		if f.Price > 0 {
			assert.NotEmpty(t, f.Income, "purchasable field %d needs a rent table", i)
		} else {
			assert.True(t, f.Large || f.Secret || f.ToPay > 0, "special field %d must do something or be a corner", i)
		}
	}
	// Corners sit on the four board edges.
	for _, idx := range []int{0, 10, 20, 30} {
		assert.True(t, fields[idx].Large)
	}
}
