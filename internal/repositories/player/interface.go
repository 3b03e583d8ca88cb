package player

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/threadly/internal/repositories/player Repository

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/models"
)

// Repository defines the interface for player data persistence
type Repository interface {
	// CreatePlayer seats a user in a session, failing if they are already seated
	CreatePlayer(ctx context.Context, input *CreatePlayerInput) error

	// GetPlayer retrieves a player by session and user
	GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error)

	// UpdatePlayer overwrites an existing player
	UpdatePlayer(ctx context.Context, input *UpdatePlayerInput) error

	// DeletePlayer removes a player from a session
	DeletePlayer(ctx context.Context, input *DeletePlayerInput) error

	// ListPlayersInSession retrieves a session's roster in seating order
	ListPlayersInSession(ctx context.Context, input *ListPlayersInSessionInput) (*ListPlayersInSessionOutput, error)

	// DeletePlayersInSession removes a session's whole roster
	DeletePlayersInSession(ctx context.Context, input *DeletePlayersInSessionInput) error
}
