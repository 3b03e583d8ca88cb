package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	playerKeyPrefix         = "player:"
	sessionPlayersKeyPrefix = "session_players:"
)

var (
	// ErrPlayerNotFound is returned when a player is not found
	ErrPlayerNotFound = errors.New("player not found")

	// ErrPlayerAlreadyExists is returned when the user is already seated in the session
	ErrPlayerAlreadyExists = errors.New("player already exists")
)

// Config holds configuration for the Redis player repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed player repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

func playerKey(sessionID, userID string) string {
	return fmt.Sprintf("%s%s:%s", playerKeyPrefix, sessionID, userID)
}

func sessionPlayersKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionPlayersKeyPrefix, sessionID)
}

// CreatePlayer stores a player if the user is not already seated and adds them to the roster
func (r *redisRepository) CreatePlayer(ctx context.Context, input *CreatePlayerInput) error {
	if input == nil || input.Player == nil {
		return errors.New("input and player cannot be nil")
	}

	player := input.Player
	if player.SessionID == "" || player.UserID == "" {
		return errors.New("session ID and user ID cannot be empty")
	}

	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	// SETNX is the serialisation point for concurrent joins of the same user.
	// ZADD NX leaves an existing seat alone, so a rejected join changes nothing.
	var created *redis.BoolCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, playerKey(player.SessionID, player.UserID), playerJSON, 0)
		pipe.ZAddNX(ctx, sessionPlayersKey(player.SessionID), redis.Z{
			Score:  seatScore(player.JoinedAt),
			Member: player.UserID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	if !created.Val() {
		return ErrPlayerAlreadyExists
	}

	return nil
}

// seatScore keeps microseconds, which a float64 score represents exactly.
// Finer ties are broken by JoinedAt when the roster is read.
func seatScore(joinedAt time.Time) float64 {
	return float64(joinedAt.UnixMicro())
}

// GetPlayer retrieves a player from Redis
func (r *redisRepository) GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error) {
	if input == nil || input.SessionID == "" || input.UserID == "" {
		return nil, errors.New("input, session ID and user ID cannot be empty")
	}

	playerJSON, err := r.client.Get(ctx, playerKey(input.SessionID, input.UserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var player models.Player
	if err := json.Unmarshal([]byte(playerJSON), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

// UpdatePlayer overwrites a player that is still seated
func (r *redisRepository) UpdatePlayer(ctx context.Context, input *UpdatePlayerInput) error {
	if input == nil || input.Player == nil {
		return errors.New("input and player cannot be nil")
	}

	playerJSON, err := json.Marshal(input.Player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	updated, err := r.client.SetXX(ctx, playerKey(input.Player.SessionID, input.Player.UserID), playerJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if !updated {
		return ErrPlayerNotFound
	}

	return nil
}

// DeletePlayer removes a player and their seat
func (r *redisRepository) DeletePlayer(ctx context.Context, input *DeletePlayerInput) error {
	if input == nil || input.SessionID == "" || input.UserID == "" {
		return errors.New("input, session ID and user ID cannot be empty")
	}

	pipe := r.client.TxPipeline()
	delCmd := pipe.Del(ctx, playerKey(input.SessionID, input.UserID))
	pipe.ZRem(ctx, sessionPlayersKey(input.SessionID), input.UserID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	if delCmd.Val() == 0 {
		return ErrPlayerNotFound
	}

	return nil
}

// ListPlayersInSession retrieves the roster ordered by join time
func (r *redisRepository) ListPlayersInSession(ctx context.Context, input *ListPlayersInSessionInput) (*ListPlayersInSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	userIDs, err := r.client.ZRange(ctx, sessionPlayersKey(input.SessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user IDs for session: %w", err)
	}

	if len(userIDs) == 0 {
		return &ListPlayersInSessionOutput{
			Players: []*models.Player{},
		}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.Get(ctx, playerKey(input.SessionID, userID))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}

	players := make([]*models.Player, 0, len(userIDs))
	for i, cmd := range cmds {
		playerJSON, err := cmd.Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Player left between reading the roster and fetching the row
				continue
			}
			return nil, fmt.Errorf("failed to get player %s: %w", userIDs[i], err)
		}

		var player models.Player
		if err := json.Unmarshal([]byte(playerJSON), &player); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player %s: %w", userIDs[i], err)
		}

		players = append(players, &player)
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	return &ListPlayersInSessionOutput{
		Players: players,
	}, nil
}

// DeletePlayersInSession removes every player row and the roster index for a session
func (r *redisRepository) DeletePlayersInSession(ctx context.Context, input *DeletePlayersInSessionInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}

	rosterKey := sessionPlayersKey(input.SessionID)
	userIDs, err := r.client.ZRange(ctx, rosterKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get user IDs for session: %w", err)
	}

	keys := make([]string, 0, len(userIDs)+1)
	for _, userID := range userIDs {
		keys = append(keys, playerKey(input.SessionID, userID))
	}
	keys = append(keys, rosterKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete players: %w", err)
	}

	return nil
}
