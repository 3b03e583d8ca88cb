package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/KirkDiggler/threadly/internal/common/uuid"
	"github.com/KirkDiggler/threadly/internal/common/workerpool"
	"github.com/KirkDiggler/threadly/internal/config"
	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/generation"
	"github.com/KirkDiggler/threadly/internal/handlers/api"
	"github.com/KirkDiggler/threadly/internal/logger"
	"github.com/KirkDiggler/threadly/internal/repositories/message"
	"github.com/KirkDiggler/threadly/internal/repositories/player"
	"github.com/KirkDiggler/threadly/internal/repositories/session"
	"github.com/KirkDiggler/threadly/internal/repositories/story"
	gameService "github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/KirkDiggler/threadly/internal/services/storyteller"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	sessionRepo, err := session.NewRedis(&session.Config{RedisClient: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create session repository: %w", err)
	}

	playerRepo, err := player.NewRedis(&player.Config{RedisClient: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create player repository: %w", err)
	}

	messageRepo, err := message.NewRedis(&message.Config{RedisClient: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create message repository: %w", err)
	}

	storyRepo, err := story.NewRedis(&story.Config{RedisClient: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create story repository: %w", err)
	}

	// Initialize the generation client
	source, err := generation.NewServiceAccountSource(&generation.ServiceAccountConfig{
		KeyPath:  cfg.Generation.CredentialsFile,
		TokenURI: cfg.Generation.TokenURI,
	})
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}

	tokens, err := generation.NewTokenCache(&generation.TokenCacheConfig{
		Source: source,
		Margin: cfg.Generation.RefreshMargin,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create token cache: %w", err)
	}

	client, err := generation.NewClient(&generation.ClientConfig{
		Project:  cfg.Generation.Project,
		Location: cfg.Generation.Location,
		Model:    cfg.Generation.Model,
		BaseURL:  cfg.Generation.BaseURL,
		Tokens:   tokens,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}

	bus := events.New(&events.Config{Logger: logger})

	teller, err := storyteller.New(&storyteller.Config{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		StoryRepo:   storyRepo,
		Streamer:    client,
		Events:      bus,
		Pool:        workerpool.New(cfg.Workers.PoolSize),
		Instruction: cfg.Generation.Instruction,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create storyteller: %w", err)
	}

	gameSvc, err := gameService.New(&gameService.Config{
		SessionRepo:   sessionRepo,
		PlayerRepo:    playerRepo,
		MessageRepo:   messageRepo,
		Events:        bus,
		Generation:    generation.NewLocker(),
		Storyteller:   teller,
		Clock:         clock.New(),
		UUIDGenerator: uuid.New(),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create game service: %w", err)
	}

	handler, err := api.New(&api.Config{
		GameService: gameSvc,
		Events:      bus,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case sig := <-sc:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down server", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		teller.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("story generations still running at shutdown")
	}

	return nil
}
