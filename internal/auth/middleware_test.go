package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func testRouter(mw *Middleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})
	r.GET("/open", mw.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})
	return r
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	mw := NewMiddleware(testSecret)
	r := testRouter(mw)

	token, err := GenerateToken(testSecret, "user-1", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestRequireAuthRejectsMissingAndBadTokens(t *testing.T) {
	mw := NewMiddleware(testSecret)
	r := testRouter(mw)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token signed with a different secret
	token, err := GenerateToken([]byte("other-secret"), "user-1", time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	mw := NewMiddleware(testSecret)
	r := testRouter(mw)

	token, err := GenerateToken(testSecret, "user-1", -time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	mw := NewMiddleware(testSecret)
	r := testRouter(mw)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestQueryTokenFallback(t *testing.T) {
	mw := NewMiddleware(testSecret)
	r := testRouter(mw)

	token, err := GenerateToken(testSecret, "user-2", time.Hour)
	require.NoError(t, err)

	// Browser WebSocket clients cannot set headers
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/open?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", w.Body.String())
}
