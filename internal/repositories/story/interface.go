package story

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/threadly/internal/repositories/story Repository

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/models"
)

// Repository defines the interface for generated story persistence
type Repository interface {
	// CreateStory stores a session's story with a generated ID. A session has at most one.
	CreateStory(ctx context.Context, input *CreateStoryInput) (*CreateStoryOutput, error)

	// GetStory retrieves the story of a session
	GetStory(ctx context.Context, input *GetStoryInput) (*models.Story, error)
}
