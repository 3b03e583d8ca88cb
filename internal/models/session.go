package models

import (
	"time"
)

// SessionStatus represents the lifecycle stage of a storytelling session
type SessionStatus string

const (
	// SessionStatusWaiting indicates players are still joining and readying up
	SessionStatusWaiting SessionStatus = "waiting"

	// SessionStatusStarted indicates players are taking turns
	SessionStatusStarted SessionStatus = "started"

	// SessionStatusWaitingForStoryGeneration indicates all rounds are done and the story is being generated
	SessionStatusWaitingForStoryGeneration SessionStatus = "waiting_for_story_generation"

	// SessionStatusFinished indicates the session is over
	SessionStatusFinished SessionStatus = "finished"
)

// IsWaiting returns true if the session is accepting players
func (s SessionStatus) IsWaiting() bool {
	return s == SessionStatusWaiting
}

// IsStarted returns true if turns are being taken
func (s SessionStatus) IsStarted() bool {
	return s == SessionStatusStarted
}

// IsFinished returns true if the session is over
func (s SessionStatus) IsFinished() bool {
	return s == SessionStatusFinished
}

// Session represents a storytelling room
type Session struct {
	// ID is the unique identifier for the session
	ID string `json:"id"`

	// Theme is the free text prompt players write around
	Theme string `json:"theme"`

	// Status is the current state of the session
	Status SessionStatus `json:"status"`

	// CurrentTurnUserID is the user whose turn it is, empty when nobody holds the turn
	CurrentTurnUserID string `json:"current_turn_user_id,omitempty"`

	// MaxRounds is the number of full passes of the seating order
	MaxRounds int `json:"max_rounds"`

	// CurrentRound is 0 before the game starts and MaxRounds+1 once every round is done
	CurrentRound int `json:"current_round"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"created_at"`
}

// HasTurnHolder returns true if some player currently holds the turn
func (s *Session) HasTurnHolder() bool {
	return s.CurrentTurnUserID != ""
}

// SessionWithUsers is a session together with its roster in seating order
type SessionWithUsers struct {
	Session *Session         `json:"session"`
	Users   []*UserInSession `json:"users"`
}
