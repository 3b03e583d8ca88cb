package message

import "github.com/KirkDiggler/threadly/internal/models"

// AppendMessageInput contains parameters for recording a message
type AppendMessageInput struct {
	Message *models.Message
}

// ListMessagesInput contains parameters for reading a session's messages
type ListMessagesInput struct {
	SessionID string
}

// ListMessagesOutput contains a session's messages in story order
type ListMessagesOutput struct {
	Messages []*models.Message
}

// GetLastMessageInput contains parameters for reading the latest message
type GetLastMessageInput struct {
	SessionID string
}
