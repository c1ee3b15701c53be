package orchestrator

import (
	"slices"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// Snapshot is a consistent copy of the session's presentation state.
type Snapshot struct {
	UserID        string                   `json:"user_id"`
	State         State                    `json:"state"`
	Busy          bool                     `json:"busy"`
	ContentType   domain.ContentType       `json:"content_type"`
	Prompt        string                   `json:"prompt"`
	Balance       *int                     `json:"balance"`
	Displayed     *domain.GeneratedContent `json:"displayed,omitempty"`
	Attachments   []domain.Attachment      `json:"attachments"`
	History       []domain.HistoryEntry    `json:"history"`
	Notifications []domain.Notification    `json:"notifications"`
}

// Snapshot returns the current state. Balance is nil until it has been
// loaded once.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		UserID:      s.userID,
		State:       s.state,
		Busy:        s.busy,
		ContentType: s.contentType,
		Prompt:      s.prompt,
		Displayed:   s.displayed,
		Attachments: slices.Clone(s.attachments),
		History:     slices.Clone(s.history),
	}
	if s.balanceKnown {
		balance := s.balance
		snap.Balance = &balance
	}
	s.mu.Unlock()

	if snap.Attachments == nil {
		snap.Attachments = []domain.Attachment{}
	}
	if snap.History == nil {
		snap.History = []domain.HistoryEntry{}
	}
	snap.Notifications = s.notifications.Active()
	return snap
}
