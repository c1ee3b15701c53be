package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// Sessions holds one Session per user id. Sessions idle for longer than the
// configured TTL are closed by Sweep unless a generation is running or a
// stream is subscribed to their notifications.
type Sessions struct {
	deps    Dependencies
	idleTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewSessions creates an empty registry. Every session it creates shares deps.
// A non-positive idleTTL keeps sessions until Close.
func NewSessions(deps Dependencies, idleTTL time.Duration) (*Sessions, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Sessions{
		deps:     deps,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   deps.Logger.With(slog.String("component", "session_registry")),
		sessions: make(map[string]*registryEntry),
	}, nil
}

// Get returns the user's session, creating it on first use.
func (r *Sessions) Get(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[userID]; ok {
		e.lastSeen = r.now()
		return e.session, nil
	}
	s, err := NewSession(userID, r.deps)
	if err != nil {
		return nil, err
	}
	r.sessions[userID] = &registryEntry{session: s, lastSeen: r.now()}
	return s, nil
}

// Len returns the number of open sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and drops idle sessions, releasing their attachments. It
// returns the number of sessions removed.
func (r *Sessions) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, e := range r.sessions {
		if !e.lastSeen.Before(cutoff) || e.session.inUse() {
			continue
		}
		e.session.Close()
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		r.logger.Debug("evicted idle sessions",
			slog.Int("removed", removed),
			slog.Int("remaining", len(r.sessions)))
	}
	return removed
}

// Run calls Sweep every interval until ctx is done.
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every session and empties the registry.
func (r *Sessions) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.sessions {
		e.session.Close()
		delete(r.sessions, id)
	}
}
