package uuid

//go:generate mockgen -package=mocks -destination=mocks/mock_uuid.go github.com/KirkDiggler/threadly/internal/common/uuid Generator

import "github.com/google/uuid"

// Generator produces identifiers for sessions, messages and stories
type Generator interface {
	NewUUID() string
}

// DefaultGenerator implements Generator with random v4 UUIDs
type DefaultGenerator struct{}

// New returns the default generator
func New() *DefaultGenerator {
	return &DefaultGenerator{}
}

// NewUUID returns a new random UUID string
func (d *DefaultGenerator) NewUUID() string {
	return uuid.New().String()
}
