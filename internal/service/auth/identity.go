package auth

import (
	"context"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Profile returns the account profile fields carried by the identity.
func (i Identity) Profile() domain.Profile {
	return domain.Profile{Email: i.Email, Name: i.Name}
}

// CredentialGate resolves the identity behind a request.
type CredentialGate interface {
	// Resolve returns the caller identity or domain.ErrUnauthenticated.
	Resolve(ctx context.Context) (Identity, error)
}

type identityKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok && identity.UserID != ""
}

// ContextGate resolves identities placed in the context by the
// authentication middleware.
type ContextGate struct{}

var _ CredentialGate = ContextGate{}

func (ContextGate) Resolve(ctx context.Context) (Identity, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return Identity{}, domain.ErrUnauthenticated
	}
	return identity, nil
}

// StaticGate always resolves to the same identity. The CLI uses it to act
// on behalf of a user given on the command line.
type StaticGate struct {
	Identity Identity
}

var _ CredentialGate = StaticGate{}

func (g StaticGate) Resolve(context.Context) (Identity, error) {
	if g.Identity.UserID == "" {
		return Identity{}, domain.ErrUnauthenticated
	}
	return g.Identity, nil
}
