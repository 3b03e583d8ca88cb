package story

import "github.com/KirkDiggler/threadly/internal/models"

// CreateStoryInput contains parameters for storing a story
type CreateStoryInput struct {
	SessionID string
	Content   string
}

// CreateStoryOutput contains the stored story
type CreateStoryOutput struct {
	Story *models.Story
}

// GetStoryInput contains parameters for retrieving a session's story
type GetStoryInput struct {
	SessionID string
}
