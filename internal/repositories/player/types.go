package player

import "github.com/KirkDiggler/threadly/internal/models"

// CreatePlayerInput contains parameters for seating a player
type CreatePlayerInput struct {
	Player *models.Player
}

// GetPlayerInput contains parameters for retrieving a player
type GetPlayerInput struct {
	SessionID string
	UserID    string
}

// UpdatePlayerInput contains parameters for updating a player
type UpdatePlayerInput struct {
	Player *models.Player
}

// DeletePlayerInput contains parameters for removing a player
type DeletePlayerInput struct {
	SessionID string
	UserID    string
}

// ListPlayersInSessionInput contains parameters for retrieving a roster
type ListPlayersInSessionInput struct {
	SessionID string
}

// ListPlayersInSessionOutput contains a roster ordered by join time
type ListPlayersInSessionOutput struct {
	Players []*models.Player
}

// DeletePlayersInSessionInput contains parameters for clearing a roster
type DeletePlayersInSessionInput struct {
	SessionID string
}
