package api

import (
	"errors"
	"net/http"

	"github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	var gameErr game.GameError
	if errors.As(err, &gameErr) {
		switch gameErr {
		case game.ErrSessionNotFound, game.ErrPlayerNotFound:
			return http.StatusNotFound
		case game.ErrNotHost, game.ErrInvalidTurn, game.ErrUserNotInSession:
			return http.StatusForbidden
		default:
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

// writeError records err on the context and writes the error body. Internal
// failures are not described to the client.
func writeError(c *gin.Context, err error) {
	abortWithError(c, statusFor(err), err)
}

func abortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}

	c.AbortWithStatusJSON(status, errorBody{
		Error: errorDetail{
			Message:   message,
			RequestID: c.Writer.Header().Get(requestIDHeader),
		},
	})
}
