package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	sessionMessagesKeyPrefix = "session_messages:"
)

// ErrMessageNotFound is returned when a session has no messages
var ErrMessageNotFound = errors.New("message not found")

// Config holds configuration for the Redis message repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed message repository
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

func sessionMessagesKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionMessagesKeyPrefix, sessionID)
}

// AppendMessage pushes a message onto the end of its session's log
func (r *redisRepository) AppendMessage(ctx context.Context, input *AppendMessageInput) error {
	if input == nil || input.Message == nil {
		return errors.New("input and message cannot be nil")
	}

	msg := input.Message
	if msg.ID == "" || msg.SessionID == "" {
		return errors.New("message ID and session ID cannot be empty")
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := r.client.RPush(ctx, sessionMessagesKey(msg.SessionID), msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListMessages reads the whole log and orders it by round, then turn order
func (r *redisRepository) ListMessages(ctx context.Context, input *ListMessagesInput) (*ListMessagesOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	entries, err := r.client.LRange(ctx, sessionMessagesKey(input.SessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(entries))
	for _, entry := range entries {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, &msg)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Round != messages[j].Round {
			return messages[i].Round < messages[j].Round
		}
		return messages[i].TurnOrder < messages[j].TurnOrder
	})

	return &ListMessagesOutput{
		Messages: messages,
	}, nil
}

// GetLastMessage reads the tail of the session's log
func (r *redisRepository) GetLastMessage(ctx context.Context, input *GetLastMessageInput) (*models.Message, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	entry, err := r.client.LIndex(ctx, sessionMessagesKey(input.SessionID), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}

	var msg models.Message
	if err := json.Unmarshal([]byte(entry), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}
