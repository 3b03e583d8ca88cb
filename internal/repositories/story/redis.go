package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/KirkDiggler/threadly/internal/common/uuid"
	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	storyKeyPrefix = "story:"
)

var (
	// ErrStoryNotFound is returned when a session has no story
	ErrStoryNotFound = errors.New("story not found")

	// ErrStoryAlreadyExists is returned when a session already has a story
	ErrStoryAlreadyExists = errors.New("story already exists")
)

// Config holds configuration for the Redis story repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// UUIDGenerator generates story IDs; defaults to random v4 UUIDs
	UUIDGenerator uuid.Generator

	// Clock stamps CreatedAt; defaults to the system clock
	Clock clock.Clock
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client        *redis.Client
	uuidGenerator uuid.Generator
	clock         clock.Clock
}

// NewRedis creates a new Redis-backed story repository
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

	repo := &redisRepository{
		client:        cfg.RedisClient,
		uuidGenerator: cfg.UUIDGenerator,
		clock:         cfg.Clock,
	}
	if repo.uuidGenerator == nil {
		repo.uuidGenerator = uuid.New()
	}
	if repo.clock == nil {
		repo.clock = clock.New()
	}

	return repo, nil
}

func storyKey(sessionID string) string {
	return fmt.Sprintf("%s%s", storyKeyPrefix, sessionID)
}

// CreateStory stores the story unless the session already has one
func (r *redisRepository) CreateStory(ctx context.Context, input *CreateStoryInput) (*CreateStoryOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	story := &models.Story{
		ID:        r.uuidGenerator.NewUUID(),
		SessionID: input.SessionID,
		Content:   input.Content,
		CreatedAt: r.clock.Now(),
	}

	storyJSON, err := json.Marshal(story)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal story: %w", err)
	}

	created, err := r.client.SetNX(ctx, storyKey(input.SessionID), storyJSON, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	if !created {
		return nil, ErrStoryAlreadyExists
	}

	return &CreateStoryOutput{
		Story: story,
	}, nil
}

// GetStory retrieves the story of a session
func (r *redisRepository) GetStory(ctx context.Context, input *GetStoryInput) (*models.Story, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	storyJSON, err := r.client.Get(ctx, storyKey(input.SessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	var story models.Story
	if err := json.Unmarshal([]byte(storyJSON), &story); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}

	return &story, nil
}
