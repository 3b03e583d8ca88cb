package game

import (
	"context"
	"errors"
	"testing"
	"time"

	clockMocks "github.com/KirkDiggler/threadly/internal/common/clock/mocks"
	uuidMocks "github.com/KirkDiggler/threadly/internal/common/uuid/mocks"
	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/generation"
	"github.com/KirkDiggler/threadly/internal/models"
	messageRepo "github.com/KirkDiggler/threadly/internal/repositories/message"
	messageMocks "github.com/KirkDiggler/threadly/internal/repositories/message/mocks"
	playerRepo "github.com/KirkDiggler/threadly/internal/repositories/player"
	playerMocks "github.com/KirkDiggler/threadly/internal/repositories/player/mocks"
	sessionRepo "github.com/KirkDiggler/threadly/internal/repositories/session"
	sessionMocks "github.com/KirkDiggler/threadly/internal/repositories/session/mocks"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type StorageFailureTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockSessionRepo *sessionMocks.MockRepository
	mockPlayerRepo  *playerMocks.MockRepository
	mockMessageRepo *messageMocks.MockRepository
	mockClock       *clockMocks.MockClock
	mockUUID        *uuidMocks.MockGenerator
	bus             *events.Bus
	service         Service
	ctx             context.Context

	testTime      time.Time
	testSessionID string
	dbErr         error
}

func (s *StorageFailureTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockSessionRepo = sessionMocks.NewMockRepository(s.mockCtrl)
	s.mockPlayerRepo = playerMocks.NewMockRepository(s.mockCtrl)
	s.mockMessageRepo = messageMocks.NewMockRepository(s.mockCtrl)
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)
	s.mockUUID = uuidMocks.NewMockGenerator(s.mockCtrl)
	s.bus = events.New(nil)
	s.ctx = context.Background()

	s.testTime = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.testSessionID = "test-session-id"
	s.dbErr = errors.New("connection refused")

	s.mockClock.EXPECT().Now().Return(s.testTime).AnyTimes()

	service, err := New(&Config{
		SessionRepo:   s.mockSessionRepo,
		PlayerRepo:    s.mockPlayerRepo,
		MessageRepo:   s.mockMessageRepo,
		Events:        s.bus,
		Generation:    generation.NewLocker(),
		Storyteller:   &recordingLauncher{launches: map[string][]*generation.Guard{}},
		Clock:         s.mockClock,
		UUIDGenerator: s.mockUUID,
	})
	s.Require().NoError(err)
	s.service = service
}

func (s *StorageFailureTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestStorageFailureTestSuite(t *testing.T) {
	suite.Run(t, new(StorageFailureTestSuite))
}

func (s *StorageFailureTestSuite) assertStorageError(err error) {
	s.Require().Error(err)
	s.ErrorIs(err, ErrStorage)
	s.ErrorIs(err, s.dbErr)

	var gameErr GameError
	s.False(errors.As(err, &gameErr), "storage failures are not rule violations")
}

func (s *StorageFailureTestSuite) startedSession() *models.Session {
	return &models.Session{
		ID:                s.testSessionID,
		Status:            models.SessionStatusStarted,
		CurrentTurnUserID: "alice",
		MaxRounds:         2,
		CurrentRound:      1,
		CreatedAt:         s.testTime,
	}
}

func (s *StorageFailureTestSuite) TestCreateSession_CreateFails() {
	s.mockUUID.EXPECT().NewUUID().Return(s.testSessionID)
	s.mockSessionRepo.EXPECT().CreateSession(s.ctx, gomock.Any()).Return(s.dbErr)

	_, err := s.service.CreateSession(s.ctx, &CreateSessionInput{Theme: "t", HostUserID: "alice", MaxRounds: 2})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestCreateSession_HostSeatFailsRemovesSession() {
	s.mockUUID.EXPECT().NewUUID().Return(s.testSessionID)
	s.mockSessionRepo.EXPECT().CreateSession(s.ctx, gomock.Any()).Return(nil)
	s.mockPlayerRepo.EXPECT().CreatePlayer(s.ctx, gomock.Any()).Return(s.dbErr)
	s.mockSessionRepo.EXPECT().DeleteSession(s.ctx, &sessionRepo.DeleteSessionInput{SessionID: s.testSessionID}).Return(nil)

	_, err := s.service.CreateSession(s.ctx, &CreateSessionInput{Theme: "t", HostUserID: "alice", MaxRounds: 2})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestJoinSession_GetSessionFails() {
	s.mockSessionRepo.EXPECT().
		GetSession(s.ctx, &sessionRepo.GetSessionInput{SessionID: s.testSessionID}).
		Return(nil, s.dbErr)

	_, err := s.service.JoinSession(s.ctx, &JoinSessionInput{SessionID: s.testSessionID, UserID: "bob"})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestJoinSession_CreatePlayerFails() {
	s.mockSessionRepo.EXPECT().GetSession(s.ctx, gomock.Any()).Return(&models.Session{
		ID:     s.testSessionID,
		Status: models.SessionStatusWaiting,
	}, nil)
	s.mockPlayerRepo.EXPECT().CreatePlayer(s.ctx, gomock.Any()).Return(s.dbErr)

	_, err := s.service.JoinSession(s.ctx, &JoinSessionInput{SessionID: s.testSessionID, UserID: "bob"})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestSetReady_UpdateFails() {
	s.mockPlayerRepo.EXPECT().GetPlayer(s.ctx, gomock.Any()).Return(&models.Player{
		SessionID: s.testSessionID,
		UserID:    "bob",
	}, nil)
	s.mockPlayerRepo.EXPECT().UpdatePlayer(s.ctx, gomock.Any()).Return(s.dbErr)

	_, err := s.service.SetReady(s.ctx, &SetReadyInput{SessionID: s.testSessionID, UserID: "bob", Ready: true})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestSubmitMessage_AppendFails() {
	s.mockSessionRepo.EXPECT().GetSession(s.ctx, gomock.Any()).Return(s.startedSession(), nil)
	s.mockPlayerRepo.EXPECT().ListPlayersInSession(s.ctx, gomock.Any()).Return(&playerRepo.ListPlayersInSessionOutput{
		Players: []*models.Player{
			{SessionID: s.testSessionID, UserID: "alice", IsHost: true},
			{SessionID: s.testSessionID, UserID: "bob"},
		},
	}, nil)
	s.mockUUID.EXPECT().NewUUID().Return("message-id")
	s.mockMessageRepo.EXPECT().AppendMessage(s.ctx, gomock.Any()).Return(s.dbErr)

	_, err := s.service.SubmitMessage(s.ctx, &SubmitMessageInput{SessionID: s.testSessionID, UserID: "alice", Content: "a1"})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestNextTurn_UpdateFails() {
	s.mockSessionRepo.EXPECT().GetSession(s.ctx, gomock.Any()).Return(s.startedSession(), nil)
	s.mockPlayerRepo.EXPECT().ListPlayersInSession(s.ctx, gomock.Any()).Return(&playerRepo.ListPlayersInSessionOutput{
		Players: []*models.Player{
			{SessionID: s.testSessionID, UserID: "alice", IsHost: true},
			{SessionID: s.testSessionID, UserID: "bob"},
		},
	}, nil)
	s.mockSessionRepo.EXPECT().UpdateSession(s.ctx, gomock.Any()).Return(s.dbErr)

	r := s.bus.Subscribe(s.testSessionID, "bob")

	_, err := s.service.NextTurn(s.ctx, &NextTurnInput{SessionID: s.testSessionID})
	s.assertStorageError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = r.Recv(ctx)
	s.ErrorIs(err, context.DeadlineExceeded, "nothing is announced when the turn was not saved")
}

func (s *StorageFailureTestSuite) TestLeaveSession_LastMessageFails() {
	s.mockPlayerRepo.EXPECT().GetPlayer(s.ctx, gomock.Any()).Return(&models.Player{
		SessionID: s.testSessionID,
		UserID:    "alice",
		IsHost:    true,
	}, nil)
	s.mockSessionRepo.EXPECT().GetSession(s.ctx, gomock.Any()).Return(s.startedSession(), nil)
	s.mockPlayerRepo.EXPECT().ListPlayersInSession(s.ctx, gomock.Any()).Return(&playerRepo.ListPlayersInSessionOutput{
		Players: []*models.Player{
			{SessionID: s.testSessionID, UserID: "alice", IsHost: true},
			{SessionID: s.testSessionID, UserID: "bob"},
			{SessionID: s.testSessionID, UserID: "carol"},
		},
	}, nil)
	s.mockPlayerRepo.EXPECT().DeletePlayer(s.ctx, &playerRepo.DeletePlayerInput{SessionID: s.testSessionID, UserID: "alice"}).Return(nil)
	s.mockMessageRepo.EXPECT().GetLastMessage(s.ctx, &messageRepo.GetLastMessageInput{SessionID: s.testSessionID}).Return(nil, s.dbErr)

	_, err := s.service.LeaveSession(s.ctx, &LeaveSessionInput{SessionID: s.testSessionID, UserID: "alice"})
	s.assertStorageError(err)
}

func (s *StorageFailureTestSuite) TestLeaveSession_SessionVanished() {
	s.mockPlayerRepo.EXPECT().GetPlayer(s.ctx, gomock.Any()).Return(&models.Player{
		SessionID: s.testSessionID,
		UserID:    "alice",
	}, nil)
	s.mockSessionRepo.EXPECT().GetSession(s.ctx, gomock.Any()).Return(nil, sessionRepo.ErrSessionNotFound)

	_, err := s.service.LeaveSession(s.ctx, &LeaveSessionInput{SessionID: s.testSessionID, UserID: "alice"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *StorageFailureTestSuite) TestListSessions_RosterFails() {
	s.mockSessionRepo.EXPECT().ListSessions(s.ctx, gomock.Any()).Return(&sessionRepo.ListSessionsOutput{
		Sessions: []*models.Session{
			{ID: "one", Status: models.SessionStatusWaiting},
			{ID: "two", Status: models.SessionStatusWaiting},
		},
	}, nil)
	s.mockPlayerRepo.EXPECT().
		ListPlayersInSession(gomock.Any(), &playerRepo.ListPlayersInSessionInput{SessionID: "one"}).
		Return(&playerRepo.ListPlayersInSessionOutput{}, nil).
		AnyTimes()
	s.mockPlayerRepo.EXPECT().
		ListPlayersInSession(gomock.Any(), &playerRepo.ListPlayersInSessionInput{SessionID: "two"}).
		Return(nil, s.dbErr)

	_, err := s.service.ListSessions(s.ctx, &ListSessionsInput{})
	s.assertStorageError(err)
}
