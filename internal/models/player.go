package models

import (
	"time"
)

// Player represents a user's seat in a session
type Player struct {
	// SessionID is the session the player sits in
	SessionID string `json:"session_id"`

	// UserID is the verified identity of the user
	UserID string `json:"user_id"`

	// IsReady indicates the player is ready for the game to start
	IsReady bool `json:"is_ready"`

	// IsHost indicates the player created the session
	IsHost bool `json:"is_host"`

	// JoinedAt defines the seating order
	JoinedAt time.Time `json:"joined_at"`
}

// UserInSession is the roster entry shown to observers
type UserInSession struct {
	UserID  string `json:"user_id"`
	IsReady bool   `json:"is_ready"`
	IsHost  bool   `json:"is_host"`
}

// ToUserInSession converts a player to its roster entry
func (p *Player) ToUserInSession() *UserInSession {
	return &UserInSession{
		UserID:  p.UserID,
		IsReady: p.IsReady,
		IsHost:  p.IsHost,
	}
}

// Roster converts players (already in seating order) to roster entries
func Roster(players []*Player) []*UserInSession {
	users := make([]*UserInSession, 0, len(players))
	for _, p := range players {
		users = append(users, p.ToUserInSession())
	}
	return users
}
