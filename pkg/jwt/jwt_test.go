package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenibblers/notenibblers/pkg/jwt"
)

func TestServiceParse(t *testing.T) {
	svc, err := jwt.NewFromString("test-signing-key-needs-to-be-long")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		claims := jwt.Claims{
			Subject:   uuid.New().String(),
			Email:     "user@example.com",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		token, err := svc.Generate(claims)
		require.NoError(t, err)

		var parsed jwt.Claims
		require.NoError(t, svc.Parse(token, &parsed))
		assert.Equal(t, claims.Subject, parsed.Subject)
		assert.Equal(t, claims.Email, parsed.Email)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.Generate(jwt.Claims{
			Subject:   uuid.New().String(),
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		})
		require.NoError(t, err)

		var parsed jwt.Claims
		assert.ErrorIs(t, svc.Parse(token, &parsed), jwt.ErrExpiredToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := jwt.NewFromString("another-signing-key-also-long-enough")
		require.NoError(t, err)
		token, err := other.Generate(jwt.Claims{Subject: "abc"})
		require.NoError(t, err)

		var parsed jwt.Claims
		assert.ErrorIs(t, svc.Parse(token, &parsed), jwt.ErrInvalidSignature)
	})

	t.Run("malformed token", func(t *testing.T) {
		var parsed jwt.Claims
		assert.ErrorIs(t, svc.Parse("not.a-token", &parsed), jwt.ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	svc, err := jwt.NewFromString("test-signing-key-needs-to-be-long")
	require.NoError(t, err)

	userID := uuid.New()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := jwt.UserID(r.Context())
		require.True(t, ok)
		assert.Equal(t, userID, id)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := jwt.Middleware(svc)(next)

	t.Run("valid bearer token", func(t *testing.T) {
		token, err := svc.Generate(jwt.Claims{
			Subject:   userID.String(),
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
