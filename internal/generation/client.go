package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChunkHandler receives each streamed text fragment in order. Returning an
// error aborts the stream.
type ChunkHandler func(chunk string) error

// ClientConfig holds configuration for the generation client
type ClientConfig struct {
	Project  string
	Location string
	Model    string

	// BaseURL replaces https://{location}-aiplatform.googleapis.com
	BaseURL string

	// Tokens supplies the bearer token for every call
	Tokens TokenProvider

	// HTTPClient defaults to a client without timeout; streams can run long
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the Vertex AI streamGenerateContent endpoint
type Client struct {
	endpoint   string
	model      string
	tokens     TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration and builds the endpoint URL
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Project == "" || cfg.Location == "" || cfg.Model == "" {
		return nil, errors.New("project, location and model are required")
	}

	if cfg.Tokens == nil {
		return nil, errors.New("token provider cannot be nil")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location)
	}

	c := &Client{
		endpoint: fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:streamGenerateContent",
			strings.TrimRight(baseURL, "/"), cfg.Project, cfg.Location, cfg.Model),
		model:      cfg.Model,
		tokens:     cfg.Tokens,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c, nil
}

// Endpoint returns the URL requests are sent to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// StreamGenerate sends req and feeds every chunk's text to onChunk as the
// response array is decoded.
func (c *Client) StreamGenerate(ctx context.Context, req *ChatRequest, onChunk ChunkHandler) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if onChunk == nil {
		return errors.New("chunk handler cannot be nil")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Debug("starting generation stream",
		zap.String("model", c.model),
		zap.Int("request_bytes", len(body)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	chunks, err := decodeStream(resp.Body, onChunk)
	if err != nil {
		return err
	}

	c.logger.Debug("generation stream finished",
		zap.String("model", c.model),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// decodeStream reads a JSON array of StreamChunk one element at a time
func decodeStream(r io.Reader, onChunk ChunkHandler) (int, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, fmt.Errorf("unexpected stream start %v", tok)
	}

	count := 0
	for dec.More() {
		var chunk StreamChunk
		if err := dec.Decode(&chunk); err != nil {
			return count, fmt.Errorf("failed to decode stream chunk: %w", err)
		}

		if chunk.Error != nil {
			return count, fmt.Errorf("generation service error %d (%s): %s",
				chunk.Error.Code, chunk.Error.Status, chunk.Error.Message)
		}

		text, ok := chunk.Text()
		if !ok || text == "" {
			continue
		}

		if err := onChunk(text); err != nil {
			return count, fmt.Errorf("chunk handler failed: %w", err)
		}
		count++
	}

	if _, err := dec.Token(); err != nil {
		return count, fmt.Errorf("failed to read stream end: %w", err)
	}

	return count, nil
}
