package session

import "github.com/KirkDiggler/threadly/internal/models"

type CreateSessionInput struct {
	Session *models.Session
}

type GetSessionInput struct {
	SessionID string
}

type UpdateSessionInput struct {
	Session *models.Session
}

type DeleteSessionInput struct {
	SessionID string
}

type ListSessionsInput struct {
}

type ListSessionsOutput struct {
	Sessions []*models.Session
}
