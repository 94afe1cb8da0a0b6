package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monopoly/server/internal/models"
)

func TestTransferWithBankPayout(t *testing.T) {
	f := newFixture(t, 2)
	p := f.players[0]
	before := p.Money

	f.session.mu.Lock()
	eliminated, err := f.engine.transferWithBankLocked(f.ctx(), f.session, p.UserID, 700)
	f.session.mu.Unlock()

	require.NoError(t, err)
	assert.False(t, eliminated)
	assert.Equal(t, before+700, p.Money)
}

func TestTransferWithBankChargeWithinBalance(t *testing.T) {
	f := newFixture(t, 2)
	p := f.players[0]
	before := p.Money

	f.session.mu.Lock()
	eliminated, err := f.engine.transferWithBankLocked(f.ctx(), f.session, p.UserID, -700)
	f.session.mu.Unlock()

	require.NoError(t, err)
	assert.False(t, eliminated)
	assert.Equal(t, before-700, p.Money)
}

func TestTransferWithBankInsolvencyEliminates(t *testing.T) {
	f := newFixture(t, 3)
	p := f.players[1]
	p.Money = 300

	f.session.mu.Lock()
	eliminated, err := f.engine.transferWithBankLocked(f.ctx(), f.session, p.UserID, -500)
	f.session.mu.Unlock()

	require.NoError(t, err)
	assert.True(t, eliminated)
	assert.True(t, p.Lost)
	assert.Equal(t, int64(300), p.Money, "balance must never go negative")
	assert.Equal(t, models.GameStatusActive, f.game.Status)
}

func TestPayToUserForSecretSettlesBothSlots(t *testing.T) {
	f := newFixture(t, 2)
	payer, payee := f.players[0], f.players[1]
	payerBefore, payeeBefore := payer.Money, payee.Money

	f.session.Secret = &models.SecretInfo{
		Amounts:              []int64{-1500, 1500},
		Users:                []uuid.UUID{payer.UserID, payee.UserID},
		NumOfPlayersInvolved: 2,
	}

	f.session.mu.Lock()
	eliminated, err := f.engine.payToUserForSecretLocked(f.ctx(), f.session, payer.UserID, payee.UserID, 1500)
	f.session.mu.Unlock()

	require.NoError(t, err)
	assert.False(t, eliminated)
	assert.Equal(t, payerBefore-1500, payer.Money)
	assert.Equal(t, payeeBefore+1500, payee.Money)
	assert.Nil(t, f.session.Secret, "fully settled record is destroyed")
}

func TestPayToUserForSecretInsolventPayerNeverPays(t *testing.T) {
	f := newFixture(t, 3)
	payer, payee := f.players[1], f.players[0]
	payer.Money = 200
	payeeBefore := payee.Money

	f.session.Secret = &models.SecretInfo{
		Amounts:              []int64{1500, -1500},
		Users:                []uuid.UUID{payee.UserID, payer.UserID},
		NumOfPlayersInvolved: 2,
	}

	f.session.mu.Lock()
	eliminated, err := f.engine.payToUserForSecretLocked(f.ctx(), f.session, payer.UserID, payee.UserID, 1500)
	f.session.mu.Unlock()

	require.NoError(t, err)
	assert.True(t, eliminated)
	assert.True(t, payer.Lost)
	assert.Equal(t, int64(200), payer.Money)
	assert.Equal(t, payeeBefore, payee.Money, "the counterparty is never credited")
	assert.Nil(t, f.session.Secret, "the obligation dies with the payer")
}
