package models

import (
	"time"
)

// Message is a single turn submitted by a player
type Message struct {
	// ID is the unique identifier for the message
	ID string `json:"id"`

	// SessionID is the session the message belongs to
	SessionID string `json:"session_id"`

	// UserID is the author
	UserID string `json:"user_id"`

	// Content is the submitted text
	Content string `json:"content"`

	// Round is the round the message was submitted in
	Round int `json:"round"`

	// TurnOrder is the author's seating index at submission time
	TurnOrder int `json:"turn_order"`

	// CreatedAt is when the message was recorded
	CreatedAt time.Time `json:"created_at"`
}
