package game

import (
	"context"

	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

var seatColors = []string{"red", "blue", "green", "yellow"}

// CreateGame opens a new lobby with the creator seated first.
func (e *Engine) CreateGame(ctx context.Context, userID uuid.UUID) (*models.Game, error) {
	g := &models.Game{
		ID:              uuid.New(),
		Status:          models.GameStatusLobby,
		TimeOfTurn:      DefaultTimeOfTurn,
		PassStartBonus:  DefaultPassStartBonus,
		HousesQty:       DefaultHousesQty,
		HotelsQty:       DefaultHotelsQty,
		TurnsToUnpledge: DefaultTurnsToUnpledge,
		MaxPlayers:      DefaultMaxPlayers,
		ChatID:          uuid.New(),
		CreatedAt:       e.clock.Now(),
	}
	if err := e.games.Create(ctx, g); err != nil {
		return nil, err
	}
	if _, err := e.seatPlayer(ctx, g, userID); err != nil {
		return nil, err
	}
	e.broadcast.EmitToGame(g.ID, EventGameCreated, map[string]interface{}{
		"game": g,
	})
	e.log.WithField("game_id", g.ID).WithField("user_id", userID).Info("game created")
	return g, nil
}

// JoinGame seats the user in the lobby. Filling the last seat activates the
// game: the board is stamped, the first seat gets the turn and the roll
// deadline starts ticking.
func (e *Engine) JoinGame(ctx context.Context, gameID, userID uuid.UUID) (*models.Game, error) {
	g, err := e.games.Find(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != models.GameStatusLobby {
		return nil, &ValidationError{Message: "game is not open for joining"}
	}
	if g.PlayerByUserID(userID) != nil {
		return nil, &ValidationError{Message: "already seated in this game"}
	}
	if len(g.Players) >= g.MaxPlayers {
		return nil, &ValidationError{Message: "game is full"}
	}

	p, err := e.seatPlayer(ctx, g, userID)
	if err != nil {
		return nil, err
	}
	e.broadcast.EmitToGame(g.ID, EventPlayerJoined, map[string]interface{}{
		"player": p,
	})

	if len(g.Players) == g.MaxPlayers {
		if err := e.activateGame(ctx, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (e *Engine) seatPlayer(ctx context.Context, g *models.Game, userID uuid.UUID) (*models.Player, error) {
	p := &models.Player{
		ID:        uuid.New(),
		UserID:    userID,
		GameID:    g.ID,
		Money:     DefaultStartMoney,
		Color:     seatColors[len(g.Players)%len(seatColors)],
		JoinOrder: len(g.Players),
	}
	if err := e.players.Create(ctx, p); err != nil {
		return nil, err
	}
	g.Players = append(g.Players, p)
	return p, nil
}

// activateGame flips the lobby into a running game.
func (e *Engine) activateGame(ctx context.Context, g *models.Game) error {
	for _, f := range BuildBoard(g.ID) {
		if err := e.fields.Create(ctx, f); err != nil {
			return err
		}
	}
	g.Status = models.GameStatusActive
	g.TurnOfUserID = g.Players[0].UserID
	g.TurnEnds = e.clock.Now().Add(g.TimeOfTurn)
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	s := e.sessions.GetOrCreate(g)
	s.mu.Lock()
	e.logAction(s, g.Players[0].UserID, "gameStarted", nil)
	s.mu.Unlock()

	e.broadcast.EmitToGame(g.ID, EventGameStarted, map[string]interface{}{
		"game": g,
	})
	e.log.WithField("game_id", g.ID).Info("game started")
	e.sched.Schedule(g.ID, g.TimeOfTurn, Command{Kind: CmdRollDeadline})
	return nil
}

// LeaveLobby removes the user from a game that has not started. Leaving an
// empty lobby behind deletes nothing; the record simply stays joinable.
func (e *Engine) LeaveLobby(ctx context.Context, gameID, userID uuid.UUID) error {
	g, err := e.games.Find(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != models.GameStatusLobby {
		return &ValidationError{Message: "game already started"}
	}
	p := g.PlayerByUserID(userID)
	if p == nil {
		return &ValidationError{Message: "not seated in this game"}
	}
	if err := e.players.Delete(ctx, p.ID); err != nil {
		return err
	}
	kept := g.Players[:0]
	for _, other := range g.Players {
		if other.UserID == userID {
			continue
		}
		other.JoinOrder = len(kept)
		kept = append(kept, other)
	}
	g.Players = kept
	for _, other := range g.Players {
		if err := e.players.Update(ctx, other); err != nil {
			return err
		}
	}
	e.broadcast.EmitToGame(g.ID, EventPlayerLeftLobby, map[string]interface{}{
		"userId": userID,
	})
	return nil
}

// ListGames returns the games currently waiting in the lobby.
func (e *Engine) ListGames(ctx context.Context) ([]*models.Game, error) {
	return e.games.ListByStatus(ctx, models.GameStatusLobby)
}

// ResumeActiveGames rehydrates sessions for every active game after a
// restart and re-arms their roll deadlines. In-flight auctions, charges and
// trades do not survive a restart; the deadline pass keeps the games moving.
func (e *Engine) ResumeActiveGames(ctx context.Context) (int, error) {
	active, err := e.games.ListByStatus(ctx, models.GameStatusActive)
	if err != nil {
		return 0, err
	}
	for _, g := range active {
		s := e.sessions.GetOrCreate(g)
		s.mu.Lock()
		g.Dices = nil
		g.TurnEnds = e.clock.Now().Add(g.TimeOfTurn)
		if err := e.games.Update(ctx, g); err != nil {
			s.mu.Unlock()
			return 0, err
		}
		s.mu.Unlock()
		e.sched.Schedule(g.ID, g.TimeOfTurn, Command{Kind: CmdRollDeadline})
		e.log.WithField("game_id", g.ID).Info("resumed active game")
	}
	return len(active), nil
}
