package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrychef/pantrychef/internal/logger"
)

func newTestAuth(t *testing.T, secret string, ttl time.Duration) *Auth {
	t.Helper()
	require.NoError(t, logger.Init("debug"))
	return New([]byte(secret), ttl)
}

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		_, err := w.Write([]byte(userID))
		require.NoError(t, err)
	})
}

func TestBuildTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t, "test-secret", time.Hour)

	token, err := a.BuildToken("user-1", "a@x.com")
	require.NoError(t, err)

	claims, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestAuthenticateUserMissingHeader(t *testing.T) {
	a := newTestAuth(t, "test-secret", time.Hour)

	request := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	recorder := httptest.NewRecorder()

	a.AuthenticateUser(protectedEcho(t)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "message")
}

func TestAuthenticateUserForeignSecret(t *testing.T) {
	a := newTestAuth(t, "test-secret", time.Hour)
	foreign := New([]byte("another-secret"), time.Hour)

	token, err := foreign.BuildToken("user-1", "a@x.com")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	a.AuthenticateUser(protectedEcho(t)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAuthenticateUserExpiredToken(t *testing.T) {
	a := newTestAuth(t, "test-secret", -time.Minute)

	token, err := a.BuildToken("user-1", "a@x.com")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	a.AuthenticateUser(protectedEcho(t)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAuthenticateUserValidToken(t *testing.T) {
	a := newTestAuth(t, "test-secret", time.Hour)

	token, err := a.BuildToken("user-42", "b@x.com")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	a.AuthenticateUser(protectedEcho(t)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "user-42", recorder.Body.String())
}
