package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestService(t *testing.T, issuer string, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    issuer,
		ClockSkew: time.Minute,
	}, now)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, "threadcraft", func() time.Time { return fixed })
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, Identity{UserID: "google-oauth2|123", Email: "a@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "google-oauth2|123", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, fixed.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, Identity{UserID: "google-oauth2|123", Email: "a@example.com", Name: "Ada"}, claims.Identity())
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	issuing := newTestService(t, "threadcraft", func() time.Time { return fixed })

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	valid, err := issuing.GenerateToken(ctx, Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *hmacJWTService
		token    string
		want     error
	}{
		{
			name:     "empty",
			verifier: issuing,
			token:    "",
			want:     ErrMissingToken,
		},
		{
			name:     "malformed",
			verifier: issuing,
			token:    "not-a-token",
			want:     ErrInvalidToken,
		},
		{
			name:     "expired",
			verifier: newTestService(t, "threadcraft", func() time.Time { return fixed.Add(2 * time.Hour) }),
			token:    valid,
			want:     ErrExpiredToken,
		},
		{
			name:     "not_yet_valid",
			verifier: issuing,
			token: sign(identityClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				Issuer:    "threadcraft",
				NotBefore: jwt.NewNumericDate(fixed.Add(time.Hour)),
				ExpiresAt: jwt.NewNumericDate(fixed.Add(2 * time.Hour)),
			}}, jwt.SigningMethodHS256, []byte(testSecret)),
			want: ErrTokenNotYetValid,
		},
		{
			name:     "wrong_secret",
			verifier: issuing,
			token: sign(identityClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(fixed.Add(time.Hour)),
			}}, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough-too")),
			want: ErrInvalidToken,
		},
		{
			name:     "wrong_algorithm",
			verifier: issuing,
			token: sign(identityClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(fixed.Add(time.Hour)),
			}}, jwt.SigningMethodHS512, []byte(testSecret)),
			want: ErrInvalidToken,
		},
		{
			name:     "wrong_issuer",
			verifier: newTestService(t, "someone-else", func() time.Time { return fixed }),
			token:    valid,
			want:     ErrInvalidToken,
		},
		{
			name:     "missing_expiry",
			verifier: issuing,
			token: sign(identityClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject: "u1",
				Issuer:  "threadcraft",
			}}, jwt.SigningMethodHS256, []byte(testSecret)),
			want: ErrInvalidToken,
		},
		{
			name:     "missing_subject",
			verifier: issuing,
			token: sign(identityClaims{RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "threadcraft",
				ExpiresAt: jwt.NewNumericDate(fixed.Add(time.Hour)),
			}}, jwt.SigningMethodHS256, []byte(testSecret)),
			want: ErrMissingSubject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.ValidateToken(ctx, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
