package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs at startup
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Generation GenerationConfig
	Log        LogConfig
	Workers    WorkersConfig
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Mode            string        `envconfig:"GIN_MODE" default:"release"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// RedisConfig holds the storage connection settings
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AuthConfig holds the identity token settings
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// GenerationConfig holds the story generation service settings
type GenerationConfig struct {
	Project         string        `envconfig:"GOOGLE_CLOUD_PROJECT" required:"true"`
	Location        string        `envconfig:"GOOGLE_CLOUD_LOCATION" default:"us-central1"`
	Model           string        `envconfig:"GENERATION_MODEL" default:"gemini-2.0-flash"`
	CredentialsFile string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS" required:"true"`
	BaseURL         string        `envconfig:"GENERATION_BASE_URL"`
	TokenURI        string        `envconfig:"GOOGLE_TOKEN_URI"`
	RefreshMargin   time.Duration `envconfig:"TOKEN_REFRESH_MARGIN" default:"5m"`
	Instruction     string        `envconfig:"STORY_INSTRUCTION"`
}

// LogConfig holds the logger settings
type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"`
}

// WorkersConfig sizes the pool used for background storage calls
type WorkersConfig struct {
	PoolSize int `envconfig:"WORKER_POOL_SIZE" default:"8"`
}

// Load reads the given dotenv files, then the environment. Missing dotenv
// files are skipped; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.Workers.PoolSize <= 0 {
		return nil, fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", cfg.Workers.PoolSize)
	}

	return &cfg, nil
}
