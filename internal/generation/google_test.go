package generation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

type ServiceAccountSourceTestSuite struct {
	suite.Suite
	key     *rsa.PrivateKey
	keyPath string
	server  *httptest.Server
	handler http.HandlerFunc
	testNow time.Time
}

func (s *ServiceAccountSourceTestSuite) SetupSuite() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.key = key
}

func (s *ServiceAccountSourceTestSuite) SetupTest() {
	s.testNow = time.Now().UTC().Truncate(time.Second)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))

	der, err := x509.MarshalPKCS8PrivateKey(s.key)
	s.Require().NoError(err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	keyJSON, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": "storyteller@threadly.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
		"token_uri":    s.server.URL + "/token",
	})
	s.Require().NoError(err)

	s.keyPath = filepath.Join(s.T().TempDir(), "key.json")
	s.Require().NoError(os.WriteFile(s.keyPath, keyJSON, 0o600))
}

func (s *ServiceAccountSourceTestSuite) TearDownTest() {
	s.server.Close()
}

func TestServiceAccountSourceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceAccountSourceTestSuite))
}

func (s *ServiceAccountSourceTestSuite) newSource() *ServiceAccountSource {
	source, err := NewServiceAccountSource(&ServiceAccountConfig{
		KeyPath: s.keyPath,
		Clock:   clock.NewManual(s.testNow),
	})
	s.Require().NoError(err)
	return source
}

func (s *ServiceAccountSourceTestSuite) TestFetchToken() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/token", r.URL.Path)
		s.Require().NoError(r.ParseForm())
		s.Equal("urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))

		parsed, err := jwt.Parse(r.PostForm.Get("assertion"), func(t *jwt.Token) (interface{}, error) {
			return &s.key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		s.Require().NoError(err)

		claims := parsed.Claims.(jwt.MapClaims)
		s.Equal("storyteller@threadly.iam.gserviceaccount.com", claims["iss"])
		s.Equal(CloudPlatformScope, claims["scope"])
		s.Equal(s.server.URL+"/token", claims["aud"])
		s.Equal(float64(s.testNow.Unix()), claims["iat"])
		s.Equal(float64(s.testNow.Add(time.Hour).Unix()), claims["exp"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.fresh","expires_in":3599,"token_type":"Bearer"}`))
	}

	token, err := s.newSource().FetchToken(context.Background())
	s.Require().NoError(err)
	s.Equal("ya29.fresh", token.Value)
	s.Equal(3599*time.Second, token.ExpiresIn)
}

func (s *ServiceAccountSourceTestSuite) TestFetchToken_ErrorStatus() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}

	_, err := s.newSource().FetchToken(context.Background())
	s.Require().Error(err)
	s.Contains(err.Error(), "400")
	s.Contains(err.Error(), "invalid_grant")
}

func (s *ServiceAccountSourceTestSuite) TestFetchToken_EmptyToken() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in":3599}`))
	}

	_, err := s.newSource().FetchToken(context.Background())
	s.Error(err)
}

func (s *ServiceAccountSourceTestSuite) TestNewServiceAccountSource_Errors() {
	_, err := NewServiceAccountSource(nil)
	s.Error(err)

	_, err = NewServiceAccountSource(&ServiceAccountConfig{})
	s.Error(err)

	_, err = NewServiceAccountSource(&ServiceAccountConfig{KeyPath: filepath.Join(s.T().TempDir(), "missing.json")})
	s.Error(err)

	badPath := filepath.Join(s.T().TempDir(), "bad.json")
	s.Require().NoError(os.WriteFile(badPath, []byte(`{"client_email":"a@b","private_key":"not a key"}`), 0o600))
	_, err = NewServiceAccountSource(&ServiceAccountConfig{KeyPath: badPath})
	s.Error(err)

	noEmail := filepath.Join(s.T().TempDir(), "no-email.json")
	s.Require().NoError(os.WriteFile(noEmail, []byte(`{"private_key":"x"}`), 0o600))
	_, err = NewServiceAccountSource(&ServiceAccountConfig{KeyPath: noEmail})
	s.Error(err)
}

func (s *ServiceAccountSourceTestSuite) TestWorksWithTokenCache() {
	calls := 0
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"ya29.cached","expires_in":3600}`))
	}

	cache, err := NewTokenCache(&TokenCacheConfig{Source: s.newSource()})
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		token, err := cache.Token(context.Background())
		s.Require().NoError(err)
		s.Equal("ya29.cached", token)
	}
	s.Equal(1, calls)
}
