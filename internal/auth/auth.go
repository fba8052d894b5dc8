// Package auth provides JWT-based session tokens and the middleware guarding
// protected HTTP routes. Tokens are signed HS256 credentials carrying the
// user's ID and email; no session state is kept server-side.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/pantrychef/pantrychef/internal/logger"
	"github.com/pantrychef/pantrychef/internal/models"
)

// Auth issues and verifies bearer session tokens.
type Auth struct {
	signingSecretKey []byte
	tokenTTL         time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the user identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// UserEmailKey is the context key holding the authenticated user's email.
const UserEmailKey ContextKey = "userEmail"

// New creates a new Auth handler with the given JWT signing secret and
// token lifetime.
func New(signingSecretKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// BuildToken signs a new session token for the given identity.
func (a *Auth) BuildToken(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of a token string and
// returns its claims.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	return claims, nil
}

// AuthenticateUser is an HTTP middleware enforcing bearer-token access.
// A missing Authorization header answers 401; a present but invalid or
// expired token answers 403. On success the user ID and email are stored
// in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if header == "" {
			writeAuthError(response, http.StatusUnauthorized, "authorization token required")
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims, err := a.ParseToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.ParseToken()`: ", zap.Error(err))
			writeAuthError(response, http.StatusForbidden, "invalid or expired token")
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext extracts the authenticated user's ID placed into the
// context by AuthenticateUser.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func writeAuthError(response http.ResponseWriter, status int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(models.MessageResponse{Message: message}); err != nil {
		logger.Log.Debugln("Error encoding the auth error response: ", zap.Error(err))
	}
}
