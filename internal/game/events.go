package game

// Event names pushed through the broadcaster. Game-wide events go to every
// subscriber of the game; EventError goes only to the user whose request was
// rejected.
const (
	EventRolledDice         = "rolledDice"
	EventHasPutUpForAuction = "hasPutUpForAuction"
	EventRaisedPrice        = "raisedPrice"
	EventRefusedFromAuction = "refusedFromAuction"
	EventWonAuction         = "wonAuction"
	EventPayedForField      = "payedForField"
	EventSecretDrawn        = "secretDrawn"
	EventTradeOffered       = "tradeOffered"
	EventTradeAccepted      = "tradeAccepted"
	EventTradeRefused       = "tradeRefused"
	EventPassTurnToNext     = "passTurnToNext"
	EventUpdatePlayers      = "updatePlayers"
	EventUpdateGameData     = "updateGameData"
	EventPlayerWon          = "playerWon"
	EventGameCreated        = "gameCreated"
	EventPlayerJoined       = "playerJoined"
	EventPlayerLeftLobby    = "playerLeftLobby"
	EventGameStarted        = "gameStarted"
	EventFieldPledged       = "fieldPledged"
	EventFieldRedeemed      = "fieldRedeemed"
	EventBranchBought       = "branchBought"
	EventBranchSold         = "branchSold"
	EventError              = "error"
)
