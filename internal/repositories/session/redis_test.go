package session

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	repo    Repository
	testNow time.Time
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) newSession(id string, createdAt time.Time) *models.Session {
	return &models.Session{
		ID:        id,
		Theme:     "haunted lighthouse",
		Status:    models.SessionStatusWaiting,
		MaxRounds: 3,
		CreatedAt: createdAt,
	}
}

func (s *RedisRepositoryTestSuite) TestCreateAndGetSession() {
	ctx := context.Background()
	session := s.newSession("session-1", s.testNow)

	err := s.repo.CreateSession(ctx, &CreateSessionInput{Session: session})
	s.Require().NoError(err)

	got, err := s.repo.GetSession(ctx, &GetSessionInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Equal(session.Theme, got.Theme)
	s.Equal(models.SessionStatusWaiting, got.Status)
	s.Equal(3, got.MaxRounds)
	s.Equal(0, got.CurrentRound)
	s.Empty(got.CurrentTurnUserID)
	s.True(session.CreatedAt.Equal(got.CreatedAt))
}

func (s *RedisRepositoryTestSuite) TestCreateSession_AlreadyExists() {
	ctx := context.Background()
	session := s.newSession("session-1", s.testNow)

	s.Require().NoError(s.repo.CreateSession(ctx, &CreateSessionInput{Session: session}))

	err := s.repo.CreateSession(ctx, &CreateSessionInput{Session: session})
	s.ErrorIs(err, ErrSessionAlreadyExists)
}

func (s *RedisRepositoryTestSuite) TestCreateSession_InvalidInput() {
	ctx := context.Background()

	s.Error(s.repo.CreateSession(ctx, nil))
	s.Error(s.repo.CreateSession(ctx, &CreateSessionInput{}))
	s.Error(s.repo.CreateSession(ctx, &CreateSessionInput{Session: &models.Session{}}))
}

func (s *RedisRepositoryTestSuite) TestGetSession_NotFound() {
	_, err := s.repo.GetSession(context.Background(), &GetSessionInput{SessionID: "missing"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *RedisRepositoryTestSuite) TestUpdateSession() {
	ctx := context.Background()
	session := s.newSession("session-1", s.testNow)
	s.Require().NoError(s.repo.CreateSession(ctx, &CreateSessionInput{Session: session}))

	session.Status = models.SessionStatusStarted
	session.CurrentRound = 1
	session.CurrentTurnUserID = "host"
	s.Require().NoError(s.repo.UpdateSession(ctx, &UpdateSessionInput{Session: session}))

	got, err := s.repo.GetSession(ctx, &GetSessionInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusStarted, got.Status)
	s.Equal(1, got.CurrentRound)
	s.Equal("host", got.CurrentTurnUserID)
}

func (s *RedisRepositoryTestSuite) TestUpdateSession_NotFound() {
	err := s.repo.UpdateSession(context.Background(), &UpdateSessionInput{
		Session: s.newSession("missing", s.testNow),
	})
	s.ErrorIs(err, ErrSessionNotFound)

	exists := s.mr.Exists(sessionKey("missing"))
	s.False(exists, "update must not recreate a deleted session")
}

func (s *RedisRepositoryTestSuite) TestDeleteSession() {
	ctx := context.Background()
	s.Require().NoError(s.repo.CreateSession(ctx, &CreateSessionInput{
		Session: s.newSession("session-1", s.testNow),
	}))

	s.Require().NoError(s.repo.DeleteSession(ctx, &DeleteSessionInput{SessionID: "session-1"}))

	_, err := s.repo.GetSession(ctx, &GetSessionInput{SessionID: "session-1"})
	s.ErrorIs(err, ErrSessionNotFound)

	out, err := s.repo.ListSessions(ctx, &ListSessionsInput{})
	s.Require().NoError(err)
	s.Empty(out.Sessions)

	err = s.repo.DeleteSession(ctx, &DeleteSessionInput{SessionID: "session-1"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *RedisRepositoryTestSuite) TestListSessions_NewestFirst() {
	ctx := context.Background()
	for i, id := range []string{"oldest", "middle", "newest"} {
		s.Require().NoError(s.repo.CreateSession(ctx, &CreateSessionInput{
			Session: s.newSession(id, s.testNow.Add(time.Duration(i)*time.Minute)),
		}))
	}

	out, err := s.repo.ListSessions(ctx, &ListSessionsInput{})
	s.Require().NoError(err)
	s.Require().Len(out.Sessions, 3)
	s.Equal("newest", out.Sessions[0].ID)
	s.Equal("middle", out.Sessions[1].ID)
	s.Equal("oldest", out.Sessions[2].ID)
}

func (s *RedisRepositoryTestSuite) TestListSessions_SkipsDanglingIndexEntries() {
	ctx := context.Background()
	s.Require().NoError(s.repo.CreateSession(ctx, &CreateSessionInput{
		Session: s.newSession("kept", s.testNow),
	}))
	s.Require().NoError(s.client.ZAdd(ctx, sessionsIndexKey, redis.Z{
		Score:  float64(s.testNow.Add(time.Hour).UnixNano()),
		Member: "dangling",
	}).Err())

	out, err := s.repo.ListSessions(ctx, &ListSessionsInput{})
	s.Require().NoError(err)
	s.Require().Len(out.Sessions, 1)
	s.Equal("kept", out.Sessions[0].ID)
}
