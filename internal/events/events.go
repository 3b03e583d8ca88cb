package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/KirkDiggler/threadly/internal/models"
)

// Event is implemented by every variant of GameEvent and SessionEvent
type Event interface {
	eventType() string
}

// GameEvent is published to the participants of one session.
// The set of variants is closed: only types in this package implement it.
type GameEvent interface {
	Event
	gameEvent()
}

// SessionEvent is published to everyone watching the session list
type SessionEvent interface {
	Event
	sessionEvent()
}

// GameStarted is sent when the host starts the game
type GameStarted struct{}

// NewTurn names the player whose turn it now is
type NewTurn struct {
	UserID string `json:"user_id"`
}

// PlayerLeft is sent when a player leaves a session that survives
type PlayerLeft struct {
	UserID string `json:"user_id"`
}

// GameFinished is sent when the session reaches its terminal state
type GameFinished struct{}

// PlayerJoined is sent when a user takes a seat
type PlayerJoined struct {
	UserID string `json:"user_id"`
}

// PlayerReady is sent when a player toggles readiness
type PlayerReady struct {
	UserID string `json:"user_id"`
	Ready  bool   `json:"ready"`
}

// LastPlayerMessage carries the previous turn's content to the new turn holder only
type LastPlayerMessage struct {
	Content string `json:"content"`
}

// Error reports a problem to a single subscriber
type Error struct {
	Message string `json:"message"`
}

// SessionDeleted is sent when the session is removed
type SessionDeleted struct{}

// WaitingForStoryGeneration is sent once the last round completes
type WaitingForStoryGeneration struct{}

// StoryChunk is one streamed fragment of the story. Seq starts at 1.
type StoryChunk struct {
	Seq   uint64 `json:"seq"`
	Chunk string `json:"chunk"`
}

// StoryComplete ends a generation, either with the stored story or a failure text
type StoryComplete struct {
	StoryID  string `json:"story_id"`
	FullText string `json:"full_text"`
}

// SessionCreated announces a new joinable session
type SessionCreated struct {
	SessionID string                  `json:"session_id"`
	Theme     string                  `json:"theme"`
	MaxRounds int                     `json:"max_rounds"`
	Users     []*models.UserInSession `json:"users"`
}

// SessionPlayersUpdated carries a session's roster after a join or leave
type SessionPlayersUpdated struct {
	SessionID string                  `json:"session_id"`
	Users     []*models.UserInSession `json:"users"`
}

// SessionStarted announces that a session is no longer joinable
type SessionStarted struct {
	SessionID string `json:"session_id"`
}

// SessionRemoved announces that a session was deleted
type SessionRemoved struct {
	SessionID string `json:"session_id"`
}

func (GameStarted) eventType() string               { return "game_started" }
func (NewTurn) eventType() string                   { return "new_turn" }
func (PlayerLeft) eventType() string                { return "player_left" }
func (GameFinished) eventType() string              { return "game_finished" }
func (PlayerJoined) eventType() string              { return "player_joined" }
func (PlayerReady) eventType() string               { return "player_ready" }
func (LastPlayerMessage) eventType() string         { return "last_player_message" }
func (Error) eventType() string                     { return "error" }
func (SessionDeleted) eventType() string            { return "session_deleted" }
func (WaitingForStoryGeneration) eventType() string { return "waiting_for_story_generation" }
func (StoryChunk) eventType() string                { return "story_chunk" }
func (StoryComplete) eventType() string             { return "story_complete" }
func (SessionCreated) eventType() string            { return "created" }
func (SessionPlayersUpdated) eventType() string     { return "update_players" }
func (SessionStarted) eventType() string            { return "started" }
func (SessionRemoved) eventType() string            { return "deleted" }

func (GameStarted) gameEvent()               {}
func (NewTurn) gameEvent()                   {}
func (PlayerLeft) gameEvent()                {}
func (GameFinished) gameEvent()              {}
func (PlayerJoined) gameEvent()              {}
func (PlayerReady) gameEvent()               {}
func (LastPlayerMessage) gameEvent()         {}
func (Error) gameEvent()                     {}
func (SessionDeleted) gameEvent()            {}
func (WaitingForStoryGeneration) gameEvent() {}
func (StoryChunk) gameEvent()                {}
func (StoryComplete) gameEvent()             {}

func (SessionCreated) sessionEvent()        {}
func (SessionPlayersUpdated) sessionEvent() {}
func (SessionStarted) sessionEvent()        {}
func (SessionRemoved) sessionEvent()        {}

// Type returns the wire name of an event
func Type(event Event) string {
	return event.eventType()
}

// Encode renders an event as a JSON object with a "type" discriminator
// followed by the variant's fields.
func Encode(event Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("cannot encode nil event")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.eventType(), err)
	}

	typeField, err := json.Marshal(event.eventType())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event type: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typeField)
	if body := bytes.TrimSpace(payload[1 : len(payload)-1]); len(body) > 0 {
		buf.WriteByte(',')
		buf.Write(body)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// DecodeGameEvent parses the output of Encode back into a GameEvent
func DecodeGameEvent(data []byte) (GameEvent, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	var event GameEvent
	switch kind {
	case "game_started":
		event = &GameStarted{}
	case "new_turn":
		event = &NewTurn{}
	case "player_left":
		event = &PlayerLeft{}
	case "game_finished":
		event = &GameFinished{}
	case "player_joined":
		event = &PlayerJoined{}
	case "player_ready":
		event = &PlayerReady{}
	case "last_player_message":
		event = &LastPlayerMessage{}
	case "error":
		event = &Error{}
	case "session_deleted":
		event = &SessionDeleted{}
	case "waiting_for_story_generation":
		event = &WaitingForStoryGeneration{}
	case "story_chunk":
		event = &StoryChunk{}
	case "story_complete":
		event = &StoryComplete{}
	default:
		return nil, fmt.Errorf("unknown game event type %q", kind)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", kind, err)
	}

	return deref(event).(GameEvent), nil
}

// DecodeSessionEvent parses the output of Encode back into a SessionEvent
func DecodeSessionEvent(data []byte) (SessionEvent, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	var event SessionEvent
	switch kind {
	case "created":
		event = &SessionCreated{}
	case "update_players":
		event = &SessionPlayersUpdated{}
	case "started":
		event = &SessionStarted{}
	case "deleted":
		event = &SessionRemoved{}
	default:
		return nil, fmt.Errorf("unknown session event type %q", kind)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", kind, err)
	}

	return deref(event).(SessionEvent), nil
}

func peekType(data []byte) (string, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if envelope.Type == "" {
		return "", fmt.Errorf("event has no type")
	}
	return envelope.Type, nil
}

// deref turns the pointer used for unmarshalling back into the value variant
// so decoded events compare equal to the ones that were published.
func deref(event Event) Event {
	switch e := event.(type) {
	case *GameStarted:
		return *e
	case *NewTurn:
		return *e
	case *PlayerLeft:
		return *e
	case *GameFinished:
		return *e
	case *PlayerJoined:
		return *e
	case *PlayerReady:
		return *e
	case *LastPlayerMessage:
		return *e
	case *Error:
		return *e
	case *SessionDeleted:
		return *e
	case *WaitingForStoryGeneration:
		return *e
	case *StoryChunk:
		return *e
	case *StoryComplete:
		return *e
	case *SessionCreated:
		return *e
	case *SessionPlayersUpdated:
		return *e
	case *SessionStarted:
		return *e
	case *SessionRemoved:
		return *e
	}
	return event
}
