package orchestrator

import (
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// State is a step of the generation cycle.
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateNormalizing
	StateSettling
	StateDone
	StatePartiallyFailed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateDispatching:     "dispatching",
	StateNormalizing:     "normalizing",
	StateSettling:        "settling",
	StateDone:            "done",
	StatePartiallyFailed: "partially_failed",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the cycle has finished in this state.
func (s State) Terminal() bool {
	return s == StateDone || s == StatePartiallyFailed || s == StateFailed
}

// FailureKind classifies why a cycle did not reach StateDone.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailurePrecondition means the provider was never called.
	FailurePrecondition
	// FailureProvider means the provider call failed or produced nothing usable.
	FailureProvider
	// FailurePersistence means content was produced but settling it failed.
	FailurePersistence
)

func (k FailureKind) String() string {
	switch k {
	case FailurePrecondition:
		return "precondition"
	case FailureProvider:
		return "provider"
	case FailurePersistence:
		return "persistence"
	default:
		return ""
	}
}

// MarshalText encodes the failure kind by name.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one Generate call.
type Outcome struct {
	State        State                    `json:"state"`
	Failure      FailureKind              `json:"failure,omitempty"`
	Err          error                    `json:"-"`
	Content      *domain.GeneratedContent `json:"content,omitempty"`
	Entry        *domain.HistoryEntry     `json:"history_entry,omitempty"`
	Charged      int                      `json:"charged"`
	Balance      int                      `json:"balance"`
	Notification domain.Notification      `json:"notification"`
	Duration     time.Duration            `json:"duration"`
}

// Succeeded reports whether the cycle reached StateDone.
func (o Outcome) Succeeded() bool {
	return o.State == StateDone
}

// User-facing messages.
const (
	MsgSignIn             = "Please sign in to generate content"
	MsgNotConfigured      = "API key is not configured correctly"
	MsgInsufficientPoints = "Not enough points for this generation"
	MsgEmptyPrompt        = "Please enter a prompt first"
	MsgBusy               = "A generation is already in progress"
	MsgUnknownContentType = "Please choose a supported content type"
	MsgBalanceUnavailable = "Could not load your points balance"
	MsgDebitFailed        = "Content generated, but points could not be updated"
	MsgHistoryFailed      = "Content generated, but it could not be saved to history"

	MsgNotImages    = "Some files were not images and were ignored"
	MsgImageRemoved = "Image removed"
)
