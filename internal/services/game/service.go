package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/KirkDiggler/threadly/internal/common/uuid"
	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/models"
	messageRepo "github.com/KirkDiggler/threadly/internal/repositories/message"
	playerRepo "github.com/KirkDiggler/threadly/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/threadly/internal/repositories/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// listConcurrency bounds the roster reads issued by ListSessions
const listConcurrency = 8

// Config holds the dependencies of the game service
type Config struct {
	// SessionRepo persists sessions
	SessionRepo sessionRepo.Repository

	// PlayerRepo persists rosters
	PlayerRepo playerRepo.Repository

	// MessageRepo persists submitted turns
	MessageRepo messageRepo.Repository

	// Events receives every game and session-list event
	Events EventPublisher

	// Generation grants the per-session story generation slot
	Generation GenerationLocker

	// Storyteller runs story generation once the slot is granted
	Storyteller StoryLauncher

	// Clock stamps creation and join times
	Clock clock.Clock

	// UUIDGenerator generates session and message IDs
	UUIDGenerator uuid.Generator

	// Logger defaults to a no-op logger
	Logger *zap.Logger
}

type service struct {
	sessionRepo   sessionRepo.Repository
	playerRepo    playerRepo.Repository
	messageRepo   messageRepo.Repository
	events        EventPublisher
	generation    GenerationLocker
	storyteller   StoryLauncher
	clock         clock.Clock
	uuidGenerator uuid.Generator
	logger        *zap.Logger

	// locks makes each operation on a session atomic within this process
	locks *sessionLocks
}

// New creates a new game service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.SessionRepo == nil {
		return nil, ErrNilSessionRepo
	}

	if cfg.PlayerRepo == nil {
		return nil, ErrNilPlayerRepo
	}

	if cfg.MessageRepo == nil {
		return nil, ErrNilMessageRepo
	}

	if cfg.Events == nil {
		return nil, ErrNilEvents
	}

	if cfg.Generation == nil {
		return nil, ErrNilGeneration
	}

	if cfg.Storyteller == nil {
		return nil, ErrNilStoryteller
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		sessionRepo:   cfg.SessionRepo,
		playerRepo:    cfg.PlayerRepo,
		messageRepo:   cfg.MessageRepo,
		events:        cfg.Events,
		generation:    cfg.Generation,
		storyteller:   cfg.Storyteller,
		clock:         cfg.Clock,
		uuidGenerator: cfg.UUIDGenerator,
		logger:        logger.Named("game"),
		locks:         newSessionLocks(),
	}, nil
}

// storageError tags a repository failure so callers can tell it from a rule violation
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func (s *service) getSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storageError("failed to get session", err)
	}

	return session, nil
}

func (s *service) updateSession(ctx context.Context, session *models.Session) error {
	err := s.sessionRepo.UpdateSession(ctx, &sessionRepo.UpdateSessionInput{
		Session: session,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return storageError("failed to update session", err)
	}

	return nil
}

// listPlayers returns the roster in seating order
func (s *service) listPlayers(ctx context.Context, sessionID string) ([]*models.Player, error) {
	out, err := s.playerRepo.ListPlayersInSession(ctx, &playerRepo.ListPlayersInSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		return nil, storageError("failed to list players", err)
	}

	return out.Players, nil
}

func seatOf(players []*models.Player, userID string) int {
	for i, p := range players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// CreateSession opens a new session hosted by the caller
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.HostUserID == "" {
		return nil, errors.New("host user ID is required")
	}

	if input.MaxRounds < MinRounds {
		return nil, ErrNotEnoughRounds
	}

	now := s.clock.Now()
	session := &models.Session{
		ID:        s.uuidGenerator.NewUUID(),
		Theme:     input.Theme,
		Status:    models.SessionStatusWaiting,
		MaxRounds: input.MaxRounds,
		CreatedAt: now,
	}

	err := s.sessionRepo.CreateSession(ctx, &sessionRepo.CreateSessionInput{
		Session: session,
	})
	if err != nil {
		return nil, storageError("failed to create session", err)
	}

	host := &models.Player{
		SessionID: session.ID,
		UserID:    input.HostUserID,
		IsHost:    true,
		JoinedAt:  now,
	}

	err = s.playerRepo.CreatePlayer(ctx, &playerRepo.CreatePlayerInput{
		Player: host,
	})
	if err != nil {
		// Don't leave a session without a host behind
		if delErr := s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{SessionID: session.ID}); delErr != nil {
			s.logger.Warn("failed to remove session after host seat failed",
				zap.String("session_id", session.ID),
				zap.Error(delErr))
		}
		return nil, storageError("failed to seat host", err)
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("host_user_id", host.UserID),
		zap.Int("max_rounds", session.MaxRounds))

	s.events.PublishSession(events.SessionCreated{
		SessionID: session.ID,
		Theme:     session.Theme,
		MaxRounds: session.MaxRounds,
		Users:     models.Roster([]*models.Player{host}),
	})

	return &CreateSessionOutput{
		Session: session,
		Host:    host,
	}, nil
}

// JoinSession seats a user in a waiting session
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.SessionID == "" || input.UserID == "" {
		return nil, errors.New("session ID and user ID are required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if !session.Status.IsWaiting() {
		return nil, ErrAlreadyStarted
	}

	player := &models.Player{
		SessionID: session.ID,
		UserID:    input.UserID,
		JoinedAt:  s.clock.Now(),
	}

	err = s.playerRepo.CreatePlayer(ctx, &playerRepo.CreatePlayerInput{
		Player: player,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerAlreadyExists) {
			return nil, ErrAlreadyJoined
		}
		return nil, storageError("failed to seat player", err)
	}

	players, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined",
		zap.String("session_id", session.ID),
		zap.String("user_id", player.UserID),
		zap.Int("players", len(players)))

	s.events.Publish(session.ID, events.Everyone, events.PlayerJoined{UserID: player.UserID})
	s.events.PublishSession(events.SessionPlayersUpdated{
		SessionID: session.ID,
		Users:     models.Roster(players),
	})

	return &JoinSessionOutput{
		Player: player,
	}, nil
}

// SetReady flips a player's readiness
func (s *service) SetReady(ctx context.Context, input *SetReadyInput) (*SetReadyOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.SessionID == "" || input.UserID == "" {
		return nil, errors.New("session ID and user ID are required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	player, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
		SessionID: input.SessionID,
		UserID:    input.UserID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, storageError("failed to get player", err)
	}

	player.IsReady = input.Ready

	err = s.playerRepo.UpdatePlayer(ctx, &playerRepo.UpdatePlayerInput{
		Player: player,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, storageError("failed to update player", err)
	}

	s.events.Publish(input.SessionID, events.Everyone, events.PlayerReady{
		UserID: player.UserID,
		Ready:  player.IsReady,
	})

	return &SetReadyOutput{
		Player: player,
	}, nil
}

// LeaveSession removes a player. The session is deleted when nobody is left
// or the host walks out before the start. A started game left with too few
// players finishes, and a departing turn holder passes the turn on.
func (s *service) LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.SessionID == "" || input.UserID == "" {
		return nil, errors.New("session ID and user ID are required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	leaving, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
		SessionID: input.SessionID,
		UserID:    input.UserID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrUserNotInSession
		}
		return nil, storageError("failed to get player", err)
	}

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if session.Status.IsFinished() {
		return nil, ErrAlreadyFinished
	}

	before, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	oldSeat := seatOf(before, leaving.UserID)

	err = s.playerRepo.DeletePlayer(ctx, &playerRepo.DeletePlayerInput{
		SessionID: session.ID,
		UserID:    leaving.UserID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrUserNotInSession
		}
		return nil, storageError("failed to remove player", err)
	}

	remaining := make([]*models.Player, 0, len(before))
	for _, p := range before {
		if p.UserID != leaving.UserID {
			remaining = append(remaining, p)
		}
	}

	s.logger.Info("player left",
		zap.String("session_id", session.ID),
		zap.String("user_id", leaving.UserID),
		zap.Int("remaining", len(remaining)))

	if len(remaining) == 0 || (leaving.IsHost && session.Status.IsWaiting()) {
		if err := s.deleteSession(ctx, session.ID); err != nil {
			return nil, err
		}
		return &LeaveSessionOutput{
			SessionDeleted: true,
		}, nil
	}

	s.events.Publish(session.ID, events.Everyone, events.PlayerLeft{UserID: leaving.UserID})
	s.events.PublishSession(events.SessionPlayersUpdated{
		SessionID: session.ID,
		Users:     models.Roster(remaining),
	})

	if !session.Status.IsStarted() {
		return &LeaveSessionOutput{
			Session: session,
		}, nil
	}

	if len(remaining) < MinPlayers {
		session.Status = models.SessionStatusFinished
		session.CurrentTurnUserID = ""
		if err := s.updateSession(ctx, session); err != nil {
			return nil, err
		}

		s.logger.Info("session finished early, too few players",
			zap.String("session_id", session.ID))
		s.events.Publish(session.ID, events.Everyone, events.GameFinished{})

		return &LeaveSessionOutput{
			Session: session,
		}, nil
	}

	if session.CurrentTurnUserID == leaving.UserID {
		content, err := s.lastMessageContent(ctx, session.ID)
		if err != nil {
			return nil, err
		}

		// The successor now sits where the departed player sat
		session, err = s.advanceTurn(ctx, session, remaining, oldSeat-1, content)
		if err != nil {
			return nil, err
		}
	}

	return &LeaveSessionOutput{
		Session: session,
	}, nil
}

func (s *service) deleteSession(ctx context.Context, sessionID string) error {
	err := s.playerRepo.DeletePlayersInSession(ctx, &playerRepo.DeletePlayersInSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		return storageError("failed to clear roster", err)
	}

	err = s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
		SessionID: sessionID,
	})
	if err != nil && !errors.Is(err, sessionRepo.ErrSessionNotFound) {
		return storageError("failed to delete session", err)
	}

	s.logger.Info("session deleted", zap.String("session_id", sessionID))

	s.events.Publish(sessionID, events.Everyone, events.SessionDeleted{})
	s.events.PublishSession(events.SessionRemoved{SessionID: sessionID})

	return nil
}

func (s *service) lastMessageContent(ctx context.Context, sessionID string) (string, error) {
	last, err := s.messageRepo.GetLastMessage(ctx, &messageRepo.GetLastMessageInput{
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, messageRepo.ErrMessageNotFound) {
			return "", nil
		}
		return "", storageError("failed to get last message", err)
	}

	return last.Content, nil
}

// GetSession returns a session and its roster
func (s *service) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	players, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &GetSessionOutput{
		Session: &models.SessionWithUsers{
			Session: session,
			Users:   models.Roster(players),
		},
	}, nil
}

// ListSessions returns every session with its roster, newest first
func (s *service) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	out, err := s.sessionRepo.ListSessions(ctx, &sessionRepo.ListSessionsInput{})
	if err != nil {
		return nil, storageError("failed to list sessions", err)
	}

	result := make([]*models.SessionWithUsers, len(out.Sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, session := range out.Sessions {
		i, session := i, session
		g.Go(func() error {
			players, err := s.listPlayers(gctx, session.ID)
			if err != nil {
				return err
			}
			result[i] = &models.SessionWithUsers{
				Session: session,
				Users:   models.Roster(players),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ListSessionsOutput{
		Sessions: result,
	}, nil
}
