package domain

import "time"

// NotificationTTL is how long a notification stays active.
const NotificationTTL = 3 * time.Second

// NotificationKind distinguishes positive and negative notifications.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	ID        uint64           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
