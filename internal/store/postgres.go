package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"monopoly/server/internal/models"
)

// Postgres backs the stores with a pgx connection pool. It is selected by
// cmd/server when DATABASE_URL is configured.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS games (
    id                uuid PRIMARY KEY,
    status            text NOT NULL,
    turn_of_user_id   uuid,
    dices             integer[] NOT NULL DEFAULT '{}',
    turn_ends         timestamptz,
    time_of_turn_ms   bigint NOT NULL,
    pass_start_bonus  bigint NOT NULL,
    houses_qty        integer NOT NULL,
    hotels_qty        integer NOT NULL,
    turns_to_unpledge integer NOT NULL,
    max_players       integer NOT NULL,
    chat_id           uuid,
    created_at        timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS players (
    id                  uuid PRIMARY KEY,
    user_id             uuid NOT NULL,
    game_id             uuid NOT NULL REFERENCES games(id),
    current_field_index integer NOT NULL,
    money               bigint NOT NULL,
    lost                boolean NOT NULL DEFAULT false,
    color               text NOT NULL,
    join_order          integer NOT NULL
);
CREATE INDEX IF NOT EXISTS players_game_idx ON players(game_id);
CREATE TABLE IF NOT EXISTS fields (
    id                 uuid PRIMARY KEY,
    game_id            uuid NOT NULL REFERENCES games(id),
    index              integer NOT NULL,
    name               text NOT NULL,
    price              bigint NOT NULL,
    owned_by           uuid,
    amount_of_branches integer NOT NULL DEFAULT 0,
    branch_price       bigint NOT NULL DEFAULT 0,
    is_pledged         boolean NOT NULL DEFAULT false,
    turns_to_unpledge  integer NOT NULL DEFAULT 0,
    income             bigint[] NOT NULL DEFAULT '{}',
    to_pay             bigint NOT NULL DEFAULT 0,
    secret             boolean NOT NULL DEFAULT false,
    field_group        text NOT NULL DEFAULT '',
    large              boolean NOT NULL DEFAULT false,
    UNIQUE (game_id, index)
);`)
	if err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, g *models.Game) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO games (id, status, turn_of_user_id, dices, turn_ends, time_of_turn_ms,
                   pass_start_bonus, houses_qty, hotels_qty, turns_to_unpledge,
                   max_players, chat_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		g.ID, g.Status, nilIfZero(g.TurnOfUserID), intsToInt32(g.Dices), g.TurnEnds,
		g.TimeOfTurn.Milliseconds(), g.PassStartBonus, g.HousesQty, g.HotelsQty,
		g.TurnsToUnpledge, g.MaxPlayers, nilIfZero(g.ChatID), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert game: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g, err := s.scanGame(s.pool.QueryRow(ctx, `
SELECT id, status, turn_of_user_id, dices, turn_ends, time_of_turn_ms,
       pass_start_bonus, houses_qty, hotels_qty, turns_to_unpledge,
       max_players, chat_id, created_at
FROM games WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	players, err := s.Players().ListByGame(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Players = players
	return g, nil
}

func (s *Postgres) Update(ctx context.Context, g *models.Game) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE games SET status=$2, turn_of_user_id=$3, dices=$4, turn_ends=$5,
       time_of_turn_ms=$6, pass_start_bonus=$7, houses_qty=$8, hotels_qty=$9,
       turns_to_unpledge=$10, max_players=$11, chat_id=$12
WHERE id=$1`,
		g.ID, g.Status, nilIfZero(g.TurnOfUserID), intsToInt32(g.Dices), g.TurnEnds,
		g.TimeOfTurn.Milliseconds(), g.PassStartBonus, g.HousesQty, g.HotelsQty,
		g.TurnsToUnpledge, g.MaxPlayers, nilIfZero(g.ChatID))
	if err != nil {
		return fmt.Errorf("store: update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.GameStatus) ([]*models.Game, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, status, turn_of_user_id, dices, turn_ends, time_of_turn_ms,
       pass_start_bonus, houses_qty, hotels_qty, turns_to_unpledge,
       max_players, chat_id, created_at
FROM games WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("store: list games: %w", err)
	}
	defer rows.Close()
	var out []*models.Game
	for rows.Next() {
		g, err := s.scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Postgres) scanGame(row pgx.Row) (*models.Game, error) {
	var (
		g         models.Game
		turnOf    *uuid.UUID
		chatID    *uuid.UUID
		dices     []int32
		turnMs    int64
		turnEnds  *time.Time
	)
	err := row.Scan(&g.ID, &g.Status, &turnOf, &dices, &turnEnds, &turnMs,
		&g.PassStartBonus, &g.HousesQty, &g.HotelsQty, &g.TurnsToUnpledge,
		&g.MaxPlayers, &chatID, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan game: %w", err)
	}
	if turnOf != nil {
		g.TurnOfUserID = *turnOf
	}
	if chatID != nil {
		g.ChatID = *chatID
	}
	if turnEnds != nil {
		g.TurnEnds = *turnEnds
	}
	g.TimeOfTurn = time.Duration(turnMs) * time.Millisecond
	g.Dices = int32sToInts(dices)
	return &g, nil
}

// Players returns the PlayerStore view of the postgres backend.
func (s *Postgres) Players() PlayerStore { return &pgPlayers{pool: s.pool} }

// Fields returns the FieldStore view of the postgres backend.
func (s *Postgres) Fields() FieldStore { return &pgFields{pool: s.pool} }

type pgPlayers struct {
	pool *pgxpool.Pool
}

func (s *pgPlayers) Create(ctx context.Context, p *models.Player) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO players (id, user_id, game_id, current_field_index, money, lost, color, join_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.UserID, p.GameID, p.CurrentFieldIndex, p.Money, p.Lost, p.Color, p.JoinOrder)
	if err != nil {
		return fmt.Errorf("store: insert player: %w", err)
	}
	return nil
}

func (s *pgPlayers) Find(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	var p models.Player
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, game_id, current_field_index, money, lost, color, join_order
FROM players WHERE id = $1`, id).
		Scan(&p.ID, &p.UserID, &p.GameID, &p.CurrentFieldIndex, &p.Money, &p.Lost, &p.Color, &p.JoinOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find player: %w", err)
	}
	return &p, nil
}

func (s *pgPlayers) Update(ctx context.Context, p *models.Player) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE players SET current_field_index=$2, money=$3, lost=$4, color=$5
WHERE id=$1`, p.ID, p.CurrentFieldIndex, p.Money, p.Lost, p.Color)
	if err != nil {
		return fmt.Errorf("store: update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgPlayers) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete player: %w", err)
	}
	return nil
}

func (s *pgPlayers) IncrementMoney(ctx context.Context, id uuid.UUID, delta int64) (*models.Player, error) {
	var p models.Player
	err := s.pool.QueryRow(ctx, `
UPDATE players SET money = money + $2 WHERE id = $1
RETURNING id, user_id, game_id, current_field_index, money, lost, color, join_order`, id, delta).
		Scan(&p.ID, &p.UserID, &p.GameID, &p.CurrentFieldIndex, &p.Money, &p.Lost, &p.Color, &p.JoinOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: increment money: %w", err)
	}
	return &p, nil
}

func (s *pgPlayers) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Player, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, game_id, current_field_index, money, lost, color, join_order
FROM players WHERE game_id = $1 ORDER BY join_order`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: list players: %w", err)
	}
	defer rows.Close()
	var out []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.UserID, &p.GameID, &p.CurrentFieldIndex,
			&p.Money, &p.Lost, &p.Color, &p.JoinOrder); err != nil {
			return nil, fmt.Errorf("store: scan player: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

type pgFields struct {
	pool *pgxpool.Pool
}

func (s *pgFields) Create(ctx context.Context, f *models.Field) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO fields (id, game_id, index, name, price, owned_by, amount_of_branches,
                    branch_price, is_pledged, turns_to_unpledge, income, to_pay,
                    secret, field_group, large)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		f.ID, f.GameID, f.Index, f.Name, f.Price, nilIfZero(f.OwnedBy),
		f.AmountOfBranches, f.BranchPrice, f.IsPledged, f.TurnsToUnpledge,
		f.Income, f.ToPay, f.Secret, f.Group, f.Large)
	if err != nil {
		return fmt.Errorf("store: insert field: %w", err)
	}
	return nil
}

func (s *pgFields) FindByIndex(ctx context.Context, gameID uuid.UUID, index int) (*models.Field, error) {
	f, err := scanField(s.pool.QueryRow(ctx, `
SELECT id, game_id, index, name, price, owned_by, amount_of_branches, branch_price,
       is_pledged, turns_to_unpledge, income, to_pay, secret, field_group, large
FROM fields WHERE game_id = $1 AND index = $2`, gameID, index))
	return f, err
}

func (s *pgFields) Update(ctx context.Context, f *models.Field) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE fields SET owned_by=$2, amount_of_branches=$3, is_pledged=$4, turns_to_unpledge=$5
WHERE id=$1`, f.ID, nilIfZero(f.OwnedBy), f.AmountOfBranches, f.IsPledged, f.TurnsToUnpledge)
	if err != nil {
		return fmt.Errorf("store: update field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgFields) BulkUpdate(ctx context.Context, fields []*models.Field) error {
	batch := &pgx.Batch{}
	for _, f := range fields {
		batch.Queue(`
UPDATE fields SET owned_by=$2, amount_of_branches=$3, is_pledged=$4, turns_to_unpledge=$5
WHERE id=$1`, f.ID, nilIfZero(f.OwnedBy), f.AmountOfBranches, f.IsPledged, f.TurnsToUnpledge)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store: bulk update fields: %w", err)
	}
	return nil
}

func (s *pgFields) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*models.Field, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, game_id, index, name, price, owned_by, amount_of_branches, branch_price,
       is_pledged, turns_to_unpledge, income, to_pay, secret, field_group, large
FROM fields WHERE game_id = $1 ORDER BY index`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: list fields: %w", err)
	}
	defer rows.Close()
	var out []*models.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanField(row pgx.Row) (*models.Field, error) {
	var (
		f       models.Field
		ownedBy *uuid.UUID
	)
	err := row.Scan(&f.ID, &f.GameID, &f.Index, &f.Name, &f.Price, &ownedBy,
		&f.AmountOfBranches, &f.BranchPrice, &f.IsPledged, &f.TurnsToUnpledge,
		&f.Income, &f.ToPay, &f.Secret, &f.Group, &f.Large)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan field: %w", err)
	}
	if ownedBy != nil {
		f.OwnedBy = *ownedBy
	}
	return &f, nil
}

// nilIfZero maps uuid.Nil to SQL NULL.
func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func intsToInt32(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func int32sToInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
