package models

import (
	"time"
)

// Story is the generated text for a finished session
type Story struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
