package orchestrator

import "time"

// SetClock replaces the registry clock.
func (r *Sessions) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}
