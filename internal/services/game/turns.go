package game

import (
	"context"
	"errors"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/models"
	messageRepo "github.com/KirkDiggler/threadly/internal/repositories/message"
	playerRepo "github.com/KirkDiggler/threadly/internal/repositories/player"
	"go.uber.org/zap"
)

// CanStart checks whether the host may start the game. It changes nothing.
func (s *service) CanStart(ctx context.Context, input *CanStartInput) (*CanStartOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if !session.Status.IsWaiting() {
		return nil, ErrAlreadyStarted
	}

	players, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if len(players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	for _, p := range players {
		if !p.IsReady {
			return nil, ErrSessionNotReady
		}
	}

	seat := seatOf(players, input.HostUserID)
	if seat < 0 {
		return nil, ErrPlayerNotFound
	}

	if !players[seat].IsHost {
		return nil, ErrNotHost
	}

	return &CanStartOutput{
		PlayerCount: len(players),
	}, nil
}

// StartGame moves a session from waiting to started. The host takes the first turn.
func (s *service) StartGame(ctx context.Context, input *StartGameInput) (*StartGameOutput, error) {
	if input == nil || input.SessionID == "" || input.HostUserID == "" {
		return nil, errors.New("session ID and host user ID are required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	_, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
		SessionID: input.SessionID,
		UserID:    input.HostUserID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrUserNotInSession
		}
		return nil, storageError("failed to get player", err)
	}

	if _, err := s.CanStart(ctx, &CanStartInput{
		SessionID:  input.SessionID,
		HostUserID: input.HostUserID,
	}); err != nil {
		return nil, err
	}

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionStatusStarted
	session.CurrentRound = 1
	session.CurrentTurnUserID = input.HostUserID

	if err := s.updateSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("game started",
		zap.String("session_id", session.ID),
		zap.String("first_turn", session.CurrentTurnUserID))

	s.events.PublishSession(events.SessionStarted{SessionID: session.ID})
	s.events.Publish(session.ID, events.Everyone, events.GameStarted{})
	s.events.Publish(session.ID, events.Everyone, events.NewTurn{UserID: session.CurrentTurnUserID})

	return &StartGameOutput{
		Session: session,
	}, nil
}

// SubmitMessage records the turn holder's message and passes the turn on
func (s *service) SubmitMessage(ctx context.Context, input *SubmitMessageInput) (*SubmitMessageOutput, error) {
	if input == nil || input.SessionID == "" || input.UserID == "" {
		return nil, errors.New("session ID and user ID are required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if !session.Status.IsStarted() || session.CurrentTurnUserID != input.UserID {
		return nil, ErrInvalidTurn
	}

	players, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	seat := seatOf(players, input.UserID)
	if seat < 0 {
		return nil, ErrInvalidTurn
	}

	msg := &models.Message{
		ID:        s.uuidGenerator.NewUUID(),
		SessionID: session.ID,
		UserID:    input.UserID,
		Content:   input.Content,
		Round:     session.CurrentRound,
		TurnOrder: seat,
		CreatedAt: s.clock.Now(),
	}

	err = s.messageRepo.AppendMessage(ctx, &messageRepo.AppendMessageInput{
		Message: msg,
	})
	if err != nil {
		return nil, storageError("failed to append message", err)
	}

	next, err := s.nextTurn(ctx, &NextTurnInput{
		SessionID:          session.ID,
		LastMessageContent: msg.Content,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitMessageOutput{
		Message: msg,
		Session: next.Session,
	}, nil
}

// NextTurn advances the turn one seat along the seating order. Passing the
// last seat starts a new round, and passing the last round hands the
// session over to story generation.
func (s *service) NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("session ID is required")
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	return s.nextTurn(ctx, input)
}

// nextTurn expects the caller to hold the session lock
func (s *service) nextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error) {
	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if !session.Status.IsStarted() {
		return nil, ErrInvalidTurn
	}

	players, err := s.listPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if len(players) == 0 {
		return nil, ErrNotEnoughPlayers
	}

	// An absent holder counts as sitting just before seat 0
	session, err = s.advanceTurn(ctx, session, players, seatOf(players, session.CurrentTurnUserID), input.LastMessageContent)
	if err != nil {
		return nil, err
	}

	return &NextTurnOutput{
		Session: session,
	}, nil
}

// advanceTurn moves the turn to the seat after fromSeat, persists the
// session and announces the outcome.
func (s *service) advanceTurn(ctx context.Context, session *models.Session, players []*models.Player, fromSeat int, content string) (*models.Session, error) {
	next := fromSeat + 1
	if next >= len(players) {
		next = 0
		session.CurrentRound++
	}

	if session.CurrentRound > session.MaxRounds {
		session.Status = models.SessionStatusWaitingForStoryGeneration
		session.CurrentTurnUserID = ""
	} else {
		session.CurrentTurnUserID = players[next].UserID
	}

	if err := s.updateSession(ctx, session); err != nil {
		return nil, err
	}

	if session.Status.IsStarted() {
		s.logger.Debug("turn advanced",
			zap.String("session_id", session.ID),
			zap.String("user_id", session.CurrentTurnUserID),
			zap.Int("round", session.CurrentRound))

		s.events.Publish(session.ID, events.Everyone, events.NewTurn{UserID: session.CurrentTurnUserID})
		s.events.Publish(session.ID, session.CurrentTurnUserID, events.LastPlayerMessage{Content: content})
		return session, nil
	}

	s.logger.Info("all rounds played, waiting for story",
		zap.String("session_id", session.ID),
		zap.Int("rounds", session.MaxRounds))

	s.events.Publish(session.ID, events.Everyone, events.WaitingForStoryGeneration{})
	s.requestGeneration(session.ID)

	return session, nil
}

// requestGeneration launches the storyteller unless a generation for the
// session is already running.
func (s *service) requestGeneration(sessionID string) {
	guard, ok := s.generation.TryAcquire(sessionID)
	if !ok {
		s.logger.Debug("story generation already running", zap.String("session_id", sessionID))
		return
	}

	s.storyteller.Launch(sessionID, guard)
}

// IsPlayerTurn reports whether the user holds the turn
func (s *service) IsPlayerTurn(ctx context.Context, input *IsPlayerTurnInput) (*IsPlayerTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.getSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	return &IsPlayerTurnOutput{
		IsTurn: session.HasTurnHolder() && session.CurrentTurnUserID == input.UserID,
	}, nil
}
