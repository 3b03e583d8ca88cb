package message

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

func (s *RedisRepositoryTestSuite) appendMessage(id string, round, turnOrder int, content string) {
	err := s.repo.AppendMessage(context.Background(), &AppendMessageInput{
		Message: &models.Message{
			ID:        id,
			SessionID: "session-1",
			UserID:    "user-" + id,
			Content:   content,
			Round:     round,
			TurnOrder: turnOrder,
			CreatedAt: s.testNow,
		},
	})
	s.Require().NoError(err)
}

func (s *RedisRepositoryTestSuite) TestAppendAndListMessages() {
	s.appendMessage("m1", 1, 0, "It was a dark night.")
	s.appendMessage("m2", 1, 1, "A door creaked.")
	s.appendMessage("m3", 2, 0, "Nobody answered.")

	out, err := s.repo.ListMessages(context.Background(), &ListMessagesInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Require().Len(out.Messages, 3)
	s.Equal("It was a dark night.", out.Messages[0].Content)
	s.Equal("A door creaked.", out.Messages[1].Content)
	s.Equal("Nobody answered.", out.Messages[2].Content)
}

func (s *RedisRepositoryTestSuite) TestListMessages_OrdersByRoundThenTurn() {
	s.appendMessage("late", 2, 0, "third")
	s.appendMessage("second", 1, 1, "second")
	s.appendMessage("first", 1, 0, "first")

	out, err := s.repo.ListMessages(context.Background(), &ListMessagesInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Require().Len(out.Messages, 3)
	s.Equal("first", out.Messages[0].ID)
	s.Equal("second", out.Messages[1].ID)
	s.Equal("late", out.Messages[2].ID)
}

func (s *RedisRepositoryTestSuite) TestListMessages_Empty() {
	out, err := s.repo.ListMessages(context.Background(), &ListMessagesInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Empty(out.Messages)
}

func (s *RedisRepositoryTestSuite) TestGetLastMessage() {
	s.appendMessage("m1", 1, 0, "first")
	s.appendMessage("m2", 1, 1, "second")

	last, err := s.repo.GetLastMessage(context.Background(), &GetLastMessageInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Equal("m2", last.ID)
	s.Equal("second", last.Content)
}

func (s *RedisRepositoryTestSuite) TestGetLastMessage_NotFound() {
	_, err := s.repo.GetLastMessage(context.Background(), &GetLastMessageInput{SessionID: "session-1"})
	s.ErrorIs(err, ErrMessageNotFound)
}

func (s *RedisRepositoryTestSuite) TestAppendMessage_InvalidInput() {
	ctx := context.Background()
	s.Error(s.repo.AppendMessage(ctx, nil))
	s.Error(s.repo.AppendMessage(ctx, &AppendMessageInput{Message: &models.Message{SessionID: "session-1"}}))
}
