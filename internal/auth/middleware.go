// Package auth validates bearer tokens issued by the external identity
// provider. Only token verification lives here; account management does not.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserIDKey is the gin context key carrying the authenticated user id.
const ContextUserIDKey = "user_id"

// Middleware verifies JWTs on incoming requests.
type Middleware struct {
	secret []byte
}

// NewMiddleware creates a middleware verifying HS256 tokens with secret.
func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{secret: secret}
}

// UserID extracts and verifies the bearer token, returning the subject.
func (m *Middleware) UserID(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// RequireAuth rejects requests without a valid bearer token.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := m.UserID(bearerToken(c))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth attaches the user id when a valid token is present and lets
// anonymous requests through. Anonymous batch reads get counts without
// OwnReaction.
func (m *Middleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := m.UserID(bearerToken(c)); ok {
			c.Set(ContextUserIDKey, userID)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// WebSocket clients can't set headers from the browser; allow ?token=.
	return c.Query("token")
}

// GenerateToken issues an HS256 token for userID. Used by the seeder and the
// admin CLI; production tokens come from the identity provider.
func GenerateToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
