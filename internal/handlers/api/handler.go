package api

import (
	"errors"
	"net/http"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Subscriber is the part of the event bus the streams read from
type Subscriber interface {
	Subscribe(sessionID, subscriberID string) *events.Receiver[events.GameEvent]
	SubscribeSessions(subscriberID string) *events.Receiver[events.SessionEvent]
}

// Config holds the dependencies of the HTTP handler
type Config struct {
	GameService game.Service
	Events      Subscriber

	// JWTSecret verifies HS256 identity tokens
	JWTSecret []byte

	Logger *zap.Logger
}

// Handler serves the REST and WebSocket API
type Handler struct {
	gameService game.Service
	events      Subscriber
	auth        *Authenticator
	logger      *zap.Logger
}

// New creates a handler
func New(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.GameService == nil {
		return nil, errors.New("game service cannot be nil")
	}

	if cfg.Events == nil {
		return nil, errors.New("event subscriber cannot be nil")
	}

	auth, err := NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		gameService: cfg.GameService,
		events:      cfg.Events,
		auth:        auth,
		logger:      logger.Named("api"),
	}, nil
}

// Router builds the gin engine with every route registered
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), ZapLogger(h.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := r.Group("/sessions", h.auth.RequireUser())
	sessions.POST("", h.createSession)
	sessions.GET("", h.listSessions)
	sessions.POST("/join", h.joinSession)
	sessions.DELETE("/leave", h.leaveSession)
	sessions.POST("/ready", h.setReady)
	sessions.POST("/start", h.startGame)
	sessions.POST("/message", h.submitMessage)
	sessions.GET("/:id", h.getSession)

	ws := r.Group("/ws", h.auth.RequireUser())
	ws.GET("/sessions", h.streamSessions)
	ws.GET("/sessions/:id", h.streamGame)

	return r
}
