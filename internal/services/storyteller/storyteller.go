package storyteller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/KirkDiggler/threadly/internal/common/uuid"
	"github.com/KirkDiggler/threadly/internal/common/workerpool"
	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/generation"
	"github.com/KirkDiggler/threadly/internal/models"
	messageRepo "github.com/KirkDiggler/threadly/internal/repositories/message"
	sessionRepo "github.com/KirkDiggler/threadly/internal/repositories/session"
	storyRepo "github.com/KirkDiggler/threadly/internal/repositories/story"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultInstruction is the system instruction sent with every story request
const DefaultInstruction = "You are a storyteller. Collect all player messages into a story."

// Config holds the dependencies of the storyteller
type Config struct {
	SessionRepo sessionRepo.Repository
	MessageRepo messageRepo.Repository
	StoryRepo   storyRepo.Repository

	// Streamer talks to the generation service
	Streamer Streamer

	// Events receives chunk and completion events
	Events Publisher

	// Pool runs the blocking storage calls; defaults to workerpool.DefaultSize workers
	Pool *workerpool.Pool

	// UUIDGenerator produces placeholder story IDs for failed generations
	UUIDGenerator uuid.Generator

	// Instruction overrides DefaultInstruction
	Instruction string

	Logger *zap.Logger
}

// Storyteller turns a finished session's messages into a streamed, stored story
type Storyteller struct {
	sessionRepo   sessionRepo.Repository
	messageRepo   messageRepo.Repository
	storyRepo     storyRepo.Repository
	streamer      Streamer
	events        Publisher
	pool          *workerpool.Pool
	uuidGenerator uuid.Generator
	instruction   string
	logger        *zap.Logger

	running sync.WaitGroup
}

// New creates a storyteller
func New(cfg *Config) (*Storyteller, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionRepo == nil || cfg.MessageRepo == nil || cfg.StoryRepo == nil {
		return nil, errors.New("session, message and story repositories are required")
	}

	if cfg.Streamer == nil {
		return nil, errors.New("streamer cannot be nil")
	}

	if cfg.Events == nil {
		return nil, errors.New("event publisher cannot be nil")
	}

	t := &Storyteller{
		sessionRepo:   cfg.SessionRepo,
		messageRepo:   cfg.MessageRepo,
		storyRepo:     cfg.StoryRepo,
		streamer:      cfg.Streamer,
		events:        cfg.Events,
		pool:          cfg.Pool,
		uuidGenerator: cfg.UUIDGenerator,
		instruction:   cfg.Instruction,
		logger:        cfg.Logger,
	}
	if t.pool == nil {
		t.pool = workerpool.New(workerpool.DefaultSize)
	}
	if t.uuidGenerator == nil {
		t.uuidGenerator = uuid.New()
	}
	if t.instruction == "" {
		t.instruction = DefaultInstruction
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	t.logger = t.logger.Named("storyteller")

	return t, nil
}

// Launch runs the pipeline on its own goroutine. It is detached from any
// request context and cannot be cancelled.
func (t *Storyteller) Launch(sessionID string, guard *generation.Guard) {
	t.running.Add(1)
	go func() {
		defer t.running.Done()
		t.Run(context.Background(), sessionID, guard)
	}()
}

// Wait blocks until every launched pipeline has finished
func (t *Storyteller) Wait() {
	t.running.Wait()
}

// Run generates, relays and stores the story of a session. The guard is
// held until Run returns, whatever the outcome.
func (t *Storyteller) Run(ctx context.Context, sessionID string, guard *generation.Guard) {
	defer guard.Release()

	timer := prometheus.NewTimer(generationDuration)
	defer timer.ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			generationsTotal.WithLabelValues(statusPanic).Inc()
			t.logger.Error("story generation panicked",
				zap.String("session_id", sessionID),
				zap.Any("panic", r))
		}
	}()

	logger := t.logger.With(zap.String("session_id", sessionID))
	logger.Info("story generation started")

	prompt, err := t.buildPrompt(ctx, sessionID)
	if err != nil {
		logger.Error("failed to load messages", zap.Error(err))
		t.complete(sessionID, t.uuidGenerator.NewUUID(), fmt.Sprintf("Failed to load messages: %v", err))
		generationsTotal.WithLabelValues(statusLoadError).Inc()
		return
	}

	req := generation.NewUserRequest(t.instruction, prompt)

	var full strings.Builder
	var seq uint64
	err = t.streamer.StreamGenerate(ctx, req, func(chunk string) error {
		seq++
		full.WriteString(chunk)
		chunksTotal.Inc()
		t.events.Publish(sessionID, events.Everyone, events.StoryChunk{Seq: seq, Chunk: chunk})
		return nil
	})
	if err != nil {
		logger.Error("story stream failed", zap.Uint64("chunks", seq), zap.Error(err))
		t.complete(sessionID, t.uuidGenerator.NewUUID(), fmt.Sprintf("Generation error: %v", err))
		generationsTotal.WithLabelValues(statusStreamErr).Inc()
		return
	}

	text := full.String()

	var story *models.Story
	err = t.pool.Do(ctx, func(ctx context.Context) error {
		out, err := t.storyRepo.CreateStory(ctx, &storyRepo.CreateStoryInput{
			SessionID: sessionID,
			Content:   text,
		})
		if err != nil {
			return err
		}
		story = out.Story
		return nil
	})
	if err != nil {
		// The session stays waiting for its story; nothing retries it
		logger.Error("failed to save story", zap.Error(err))
		t.complete(sessionID, t.uuidGenerator.NewUUID(), fmt.Sprintf("Failed to save story: %v", err))
		generationsTotal.WithLabelValues(statusSaveError).Inc()
		return
	}

	t.complete(sessionID, story.ID, text)

	generationsTotal.WithLabelValues(statusSuccess).Inc()

	// The story is stored either way; GameFinished is only sent once storage agrees
	if err := t.pool.Do(ctx, func(ctx context.Context) error {
		return t.finishSession(ctx, sessionID)
	}); err != nil {
		logger.Error("failed to finish session after story was saved", zap.Error(err))
		t.events.Publish(sessionID, events.Everyone, events.Error{
			Message: fmt.Sprintf("Failed to finish session: %v", err),
		})
		return
	}

	t.events.Publish(sessionID, events.Everyone, events.GameFinished{})

	logger.Info("story generation finished",
		zap.String("story_id", story.ID),
		zap.Uint64("chunks", seq),
		zap.Int("length", len(text)))
}

func (t *Storyteller) complete(sessionID, storyID, text string) {
	t.events.Publish(sessionID, events.Everyone, events.StoryComplete{
		StoryID:  storyID,
		FullText: text,
	})
}

// buildPrompt renders the session's messages in story order
func (t *Storyteller) buildPrompt(ctx context.Context, sessionID string) (string, error) {
	var messages []*models.Message
	err := t.pool.Do(ctx, func(ctx context.Context) error {
		out, err := t.messageRepo.ListMessages(ctx, &messageRepo.ListMessagesInput{
			SessionID: sessionID,
		})
		if err != nil {
			return err
		}
		messages = out.Messages
		return nil
	})
	if err != nil {
		return "", err
	}

	return RenderPrompt(messages), nil
}

// RenderPrompt formats messages as the user turn of a story request
func RenderPrompt(messages []*models.Message) string {
	var b strings.Builder
	b.WriteString("User messages::\n")
	for _, m := range messages {
		b.WriteString("- ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Storyteller) finishSession(ctx context.Context, sessionID string) error {
	session, err := t.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	session.Status = models.SessionStatusFinished
	session.CurrentTurnUserID = ""

	if err := t.sessionRepo.UpdateSession(ctx, &sessionRepo.UpdateSessionInput{
		Session: session,
	}); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}
