package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// ErrMissingToken is returned when a request carries no identity token
var ErrMissingToken = errors.New("missing token")

// Authenticator verifies HS256 tokens whose subject is the user id
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthenticator creates an authenticator for the given shared secret
func NewAuthenticator(secret []byte) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret cannot be empty")
	}

	return &Authenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// UserID validates the token and returns its subject
func (a *Authenticator) UserID(tokenString string) (string, error) {
	token, err := a.parser.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("failed to read subject: %w", err)
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}

	return sub, nil
}

// RequireUser rejects requests without a valid token and stores the user id
// on the context. Browsers cannot set headers on WebSocket upgrades, so the
// token query parameter is accepted too.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, ErrMissingToken)
			return
		}

		userID, err := a.UserID(tokenString)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
