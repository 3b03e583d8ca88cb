package game

import "github.com/KirkDiggler/threadly/internal/models"

// CreateSessionInput contains parameters for creating a session
type CreateSessionInput struct {
	Theme      string
	HostUserID string
	MaxRounds  int
}

// CreateSessionOutput contains the created session
type CreateSessionOutput struct {
	Session *models.Session
	Host    *models.Player
}

// JoinSessionInput contains parameters for joining a session
type JoinSessionInput struct {
	SessionID string
	UserID    string
}

// JoinSessionOutput contains the new player
type JoinSessionOutput struct {
	Player *models.Player
}

// SetReadyInput contains parameters for toggling readiness
type SetReadyInput struct {
	SessionID string
	UserID    string
	Ready     bool
}

// SetReadyOutput contains the updated player
type SetReadyOutput struct {
	Player *models.Player
}

// LeaveSessionInput contains parameters for leaving a session
type LeaveSessionInput struct {
	SessionID string
	UserID    string
}

// LeaveSessionOutput describes what happened to the session
type LeaveSessionOutput struct {
	// SessionDeleted is true if the departure removed the session
	SessionDeleted bool

	// Session is the session after the departure, nil if it was deleted
	Session *models.Session
}

// CanStartInput contains parameters for the start check
type CanStartInput struct {
	SessionID  string
	HostUserID string
}

// CanStartOutput is returned when the game may start
type CanStartOutput struct {
	PlayerCount int
}

// StartGameInput contains parameters for starting a game
type StartGameInput struct {
	SessionID  string
	HostUserID string
}

// StartGameOutput contains the started session
type StartGameOutput struct {
	Session *models.Session
}

// SubmitMessageInput contains parameters for submitting a turn
type SubmitMessageInput struct {
	SessionID string
	UserID    string
	Content   string
}

// SubmitMessageOutput contains the recorded message and the session after the turn passed
type SubmitMessageOutput struct {
	Message *models.Message
	Session *models.Session
}

// NextTurnInput contains parameters for advancing the turn
type NextTurnInput struct {
	SessionID string

	// LastMessageContent is forwarded to the next turn holder
	LastMessageContent string
}

// NextTurnOutput contains the session after the turn advanced
type NextTurnOutput struct {
	Session *models.Session
}

// IsPlayerTurnInput contains parameters for the turn check
type IsPlayerTurnInput struct {
	SessionID string
	UserID    string
}

// IsPlayerTurnOutput contains the result of the turn check
type IsPlayerTurnOutput struct {
	IsTurn bool
}

// GetSessionInput contains parameters for reading a session
type GetSessionInput struct {
	SessionID string
}

// GetSessionOutput contains a session and its roster
type GetSessionOutput struct {
	Session *models.SessionWithUsers
}

// ListSessionsInput contains parameters for listing sessions
type ListSessionsInput struct {
}

// ListSessionsOutput contains every session with its roster, newest first
type ListSessionsOutput struct {
	Sessions []*models.SessionWithUsers
}
