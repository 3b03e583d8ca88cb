package game

import "errors"

// GameError is a custom error type for rule violations a caller can fix
type GameError string

// Error implements the error interface
func (e GameError) Error() string {
	return string(e)
}

// Rule violations
const (
	ErrNotEnoughRounds  GameError = "a session needs at least 2 rounds"
	ErrNotEnoughPlayers GameError = "not enough players"
	ErrSessionNotReady  GameError = "not every player is ready"
	ErrAlreadyStarted   GameError = "session already started"
	ErrAlreadyJoined    GameError = "user already joined this session"
	ErrAlreadyFinished  GameError = "session already finished"
	ErrNotHost          GameError = "only the host can do this"
	ErrInvalidTurn      GameError = "it is not this user's turn"
	ErrPlayerNotFound   GameError = "player not found"
	ErrUserNotInSession GameError = "user is not in this session"
	ErrSessionNotFound  GameError = "session not found"
)

// Configuration errors
const (
	ErrNilConfig        GameError = "config cannot be nil"
	ErrNilSessionRepo   GameError = "session repository cannot be nil"
	ErrNilPlayerRepo    GameError = "player repository cannot be nil"
	ErrNilMessageRepo   GameError = "message repository cannot be nil"
	ErrNilEvents        GameError = "event publisher cannot be nil"
	ErrNilGeneration    GameError = "generation locker cannot be nil"
	ErrNilStoryteller   GameError = "story launcher cannot be nil"
	ErrNilClock         GameError = "clock cannot be nil"
	ErrNilUUIDGenerator GameError = "UUID generator cannot be nil"
)

// ErrStorage wraps every failure of the underlying repositories
var ErrStorage = errors.New("storage failure")

// MinRounds is the smallest MaxRounds a session accepts
const MinRounds = 2

// MinPlayers is the smallest roster a game can start or continue with
const MinPlayers = 2
