package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/threadly/internal/repositories/session Repository

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/models"
)

// Repository defines the interface for session persistence
type Repository interface {
	// CreateSession persists a new session
	CreateSession(ctx context.Context, input *CreateSessionInput) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// UpdateSession overwrites an existing session
	UpdateSession(ctx context.Context, input *UpdateSessionInput) error

	// DeleteSession removes a session
	DeleteSession(ctx context.Context, input *DeleteSessionInput) error

	// ListSessions retrieves all sessions, newest first
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
}
