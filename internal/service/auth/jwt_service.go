package auth

import (
	"context"
	"time"
)

// JWTService verifies identity tokens issued by the identity provider and
// can mint tokens for tooling and tests.
type JWTService interface {
	// GenerateToken creates a signed token for the identity, valid for lifetime.
	GenerateToken(ctx context.Context, identity Identity, lifetime time.Duration) (string, error)

	// ValidateToken validates the token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrMissingSubject or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an identity token.
type Claims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	ID        string    `json:"jti,omitempty"`
}

// Identity returns the caller identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}
}
