package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamGame relays one session's events to the caller
func (h *Handler) streamGame(c *gin.Context) {
	sessionID := c.Param("id")
	user := userID(c)

	if _, err := h.gameService.GetSession(c.Request.Context(), &game.GetSessionInput{
		SessionID: sessionID,
	}); err != nil {
		writeError(c, err)
		return
	}

	// Subscribe before the upgrade so nothing published after the handshake is lost
	receiver := h.events.Subscribe(sessionID, user)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		receiver.Close()
		h.logger.Warn("failed to upgrade game stream", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	logger := h.logger.With(zap.String("session_id", sessionID), zap.String("user_id", user))
	logger.Info("game stream opened")
	pump(c.Request.Context(), conn, receiver, logger)
	logger.Info("game stream closed")
}

// streamSessions relays session list changes to the caller
func (h *Handler) streamSessions(c *gin.Context) {
	user := userID(c)
	receiver := h.events.SubscribeSessions(user)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		receiver.Close()
		h.logger.Warn("failed to upgrade session stream", zap.Error(err))
		return
	}

	logger := h.logger.With(zap.String("user_id", user))
	logger.Info("session stream opened")
	pump(c.Request.Context(), conn, receiver, logger)
	logger.Info("session stream closed")
}

// pump writes every received event to conn until either side goes away.
// Lagging subscribers skip what they missed and keep streaming.
func pump[T events.Event](ctx context.Context, conn *websocket.Conn, receiver *events.Receiver[T], logger *zap.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer receiver.Close()
	defer conn.Close()

	go readPump(conn, cancel, logger)
	go pingPump(ctx, conn, cancel)

	for {
		event, err := receiver.Recv(ctx)
		if err != nil {
			var lagged *events.LaggedError
			if errors.As(err, &lagged) {
				logger.Warn("stream lagged", zap.Uint64("missed", lagged.Missed))
				continue
			}
			if errors.Is(err, events.ErrReceiverClosed) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
			}
			return
		}

		data, err := events.Encode(event)
		if err != nil {
			logger.Error("failed to encode event", zap.String("type", events.Type(event)), zap.Error(err))
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("failed to write event", zap.Error(err))
			return
		}
	}
}

// readPump discards client messages and cancels the stream once the client leaves
func readPump(conn *websocket.Conn, cancel context.CancelFunc, logger *zap.Logger) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("stream read error", zap.Error(err))
			}
			return
		}
	}
}

func pingPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cancel()
				return
			}
		}
	}
}
