// Package cache holds the redis-backed side channels of the engine: the
// append-only game action log consumed by the historian, and the chat
// notifier used to narrate secret and trade events into a game's chat feed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"monopoly/server/internal/models"
)

// GameActionRecord is one entry of the per-game action log.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"`
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Redis wraps the shared client.
type Redis struct {
	rdb *redis.Client
}

// New connects a redis client and verifies the connection.
func New(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// PublishGameAction appends the record to the game's action list and notifies
// subscribers on the corresponding channel.
func (r *Redis) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal action record: %w", err)
	}
	key := fmt.Sprintf("game:%s:actions", rec.GameID)
	if err := r.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("cache: push action record: %w", err)
	}
	return r.rdb.Publish(ctx, key, data).Err()
}

// PostMessage narrates a system line into the game chat identified by chatID.
// Implements the engine's ChatNotifier collaborator.
func (r *Redis) PostMessage(ctx context.Context, actingUserID uuid.UUID, chatID uuid.UUID, text string) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    actingUserID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal chat message: %w", err)
	}
	key := fmt.Sprintf("chat:%s:messages", chatID)
	if err := r.rdb.RPush(ctx, key, data).Err(); err != nil {
		return nil, fmt.Errorf("cache: push chat message: %w", err)
	}
	if err := r.rdb.Publish(ctx, key, data).Err(); err != nil {
		return nil, fmt.Errorf("cache: publish chat message: %w", err)
	}
	return msg, nil
}
