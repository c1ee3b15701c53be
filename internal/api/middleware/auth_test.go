package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func newJWTService(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	svc := newJWTService(t)
	identity := auth.Identity{UserID: "user_2abc", Email: "a@example.com"}

	valid, err := svc.GenerateToken(context.Background(), identity, time.Hour)
	require.NoError(t, err)
	expired, err := svc.GenerateToken(context.Background(), identity, -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		url        string
		upgrade    bool
		wantStatus int
		wantError  string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantError: "Authorization header required"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "Authorization header required"},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantError: "Token expired"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantError: "Invalid token"},
		{name: "query token on upgrade", url: "/?access_token=" + valid, upgrade: true, wantStatus: http.StatusOK},
		{name: "query token ignored without upgrade", url: "/?access_token=" + valid, wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got auth.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = auth.IdentityFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			url := tc.url
			if url == "" {
				url = "/"
			}
			r := httptest.NewRequest(http.MethodGet, url, nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				r.Header.Set("Connection", "Upgrade")
				r.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()

			NewAuthMiddleware(svc).Authenticate(next).ServeHTTP(w, r)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, identity.UserID, got.UserID)
				assert.Equal(t, identity.Email, got.Email)
				return
			}
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, body.Error)
			}
		})
	}
}

func TestNewAuthMiddleware_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewAuthMiddleware(nil) })
}
