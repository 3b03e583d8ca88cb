package message

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/threadly/internal/repositories/message Repository

import (
	"context"

	"github.com/KirkDiggler/threadly/internal/models"
)

// Repository defines the interface for the append-only message log
type Repository interface {
	// AppendMessage records a submitted turn
	AppendMessage(ctx context.Context, input *AppendMessageInput) error

	// ListMessages retrieves a session's messages ordered by round, then turn order
	ListMessages(ctx context.Context, input *ListMessagesInput) (*ListMessagesOutput, error)

	// GetLastMessage retrieves the most recently appended message of a session
	GetLastMessage(ctx context.Context, input *GetLastMessageInput) (*models.Message, error)
}
