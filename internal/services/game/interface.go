package game

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/threadly/internal/services/game Service

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/generation"
)

// Service defines the interface for storytelling session operations
type Service interface {
	// CreateSession opens a new session hosted by the caller
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession seats a user in a waiting session
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// SetReady flips a player's readiness
	SetReady(ctx context.Context, input *SetReadyInput) (*SetReadyOutput, error)

	// LeaveSession removes a player, deleting or finishing the session when needed
	LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error)

	// CanStart checks whether the host may start the game
	CanStart(ctx context.Context, input *CanStartInput) (*CanStartOutput, error)

	// StartGame moves a session from waiting to started with the host holding the first turn
	StartGame(ctx context.Context, input *StartGameInput) (*StartGameOutput, error)

	// SubmitMessage records the turn holder's message and passes the turn on
	SubmitMessage(ctx context.Context, input *SubmitMessageInput) (*SubmitMessageOutput, error)

	// NextTurn advances the turn along the seating order
	NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error)

	// IsPlayerTurn reports whether the user holds the turn
	IsPlayerTurn(ctx context.Context, input *IsPlayerTurnInput) (*IsPlayerTurnOutput, error)

	// GetSession returns a session and its roster
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)

	// ListSessions returns every session with its roster, newest first
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
}

// EventPublisher is the part of the event bus the service writes to
type EventPublisher interface {
	Publish(sessionID, target string, event events.GameEvent)
	PublishSession(event events.SessionEvent)
}

// GenerationLocker hands out the single generation slot of a session
type GenerationLocker interface {
	TryAcquire(sessionID string) (*generation.Guard, bool)
}

// StoryLauncher starts story generation in the background. The launcher
// owns the guard from then on.
type StoryLauncher interface {
	Launch(sessionID string, guard *generation.Guard)
}
