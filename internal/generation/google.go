package generation

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenURI is Google's OAuth2 token endpoint
	DefaultTokenURI = "https://oauth2.googleapis.com/token"

	// CloudPlatformScope grants access to Vertex AI
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
)

// ServiceAccountConfig holds configuration for a ServiceAccountSource
type ServiceAccountConfig struct {
	// KeyPath is the path to a service-account JSON key file
	KeyPath string

	// TokenURI overrides the key file's token_uri
	TokenURI string

	HTTPClient *http.Client
	Clock      clock.Clock
}

type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ServiceAccountSource exchanges a signed service-account assertion for an
// access token.
type ServiceAccountSource struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	tokenURI    string
	httpClient  *http.Client
	clock       clock.Clock
}

// NewServiceAccountSource reads and parses the key file
func NewServiceAccountSource(cfg *ServiceAccountConfig) (*ServiceAccountSource, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.KeyPath == "" {
		return nil, errors.New("service account key path cannot be empty")
	}

	data, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	if key.ClientEmail == "" {
		return nil, errors.New("service account key is missing client_email")
	}
	if key.PrivateKey == "" {
		return nil, errors.New("service account key is missing private_key")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}

	s := &ServiceAccountSource{
		clientEmail: key.ClientEmail,
		privateKey:  privateKey,
		tokenURI:    cfg.TokenURI,
		httpClient:  cfg.HTTPClient,
		clock:       cfg.Clock,
	}
	if s.tokenURI == "" {
		s.tokenURI = key.TokenURI
	}
	if s.tokenURI == "" {
		s.tokenURI = DefaultTokenURI
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.clock == nil {
		s.clock = clock.New()
	}

	return s, nil
}

// FetchToken signs a fresh assertion and exchanges it at the token endpoint
func (s *ServiceAccountSource) FetchToken(ctx context.Context) (*AccessToken, error) {
	assertion, err := s.signAssertion()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange assertion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, errors.New("token endpoint returned an empty access token")
	}

	return &AccessToken{
		Value:     token.AccessToken,
		ExpiresIn: time.Duration(token.ExpiresIn) * time.Second,
	}, nil
}

func (s *ServiceAccountSource) signAssertion() (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": CloudPlatformScope,
		"aud":   s.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	return signed, nil
}
