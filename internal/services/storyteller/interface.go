package storyteller

//go:generate mockgen -package=mocks -destination=mocks/mock_streamer.go github.com/KirkDiggler/threadly/internal/services/storyteller Streamer

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/generation"
)

// Streamer produces a story as a sequence of text chunks
type Streamer interface {
	StreamGenerate(ctx context.Context, req *generation.ChatRequest, onChunk generation.ChunkHandler) error
}

// Publisher is the part of the event bus the storyteller writes to
type Publisher interface {
	Publish(sessionID, target string, event events.GameEvent)
}
