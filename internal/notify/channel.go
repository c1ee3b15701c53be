package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// subscriberBuffer is the per-subscriber queue depth. Notifications that
// do not fit are dropped for that subscriber.
const subscriberBuffer = 16

type entry struct {
	notification domain.Notification
	timer        *time.Timer
}

// Channel holds the active notifications of one session.
type Channel struct {
	mu      sync.Mutex
	ttl     time.Duration
	nextID  uint64
	active  []*entry
	subs    map[uint64]chan domain.Notification
	nextSub uint64
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Channel. A non-positive ttl selects domain.NotificationTTL.
func New(ttl time.Duration, logger *slog.Logger) *Channel {
	if ttl <= 0 {
		ttl = domain.NotificationTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		ttl:    ttl,
		subs:   make(map[uint64]chan domain.Notification),
		now:    time.Now,
		logger: logger.With(slog.String("component", "notification_channel")),
	}
}

// Publish appends a notification, schedules its expiry and fans it out to
// subscribers.
func (c *Channel) Publish(kind domain.NotificationKind, message string) domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	n := domain.Notification{
		ID:        c.nextID,
		Kind:      kind,
		Message:   message,
		CreatedAt: c.now().UTC(),
	}

	id := n.ID
	e := &entry{notification: n}
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(id) })
	c.active = append(c.active, e)

	for subID, ch := range c.subs {
		select {
		case ch <- n:
		default:
			c.logger.Debug("dropping notification for slow subscriber",
				slog.Uint64("subscriber", subID),
				slog.Uint64("notification_id", id))
		}
	}

	c.logger.Debug("notification published",
		slog.Uint64("notification_id", id),
		slog.String("kind", string(kind)),
		slog.String("message", message))
	return n
}

// Success publishes a success notification.
func (c *Channel) Success(message string) domain.Notification {
	return c.Publish(domain.NotificationSuccess, message)
}

// Error publishes an error notification.
func (c *Channel) Error(message string) domain.Notification {
	return c.Publish(domain.NotificationError, message)
}

// Active returns the notifications that have not expired or been dismissed,
// oldest first.
func (c *Channel) Active() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Notification, len(c.active))
	for i, e := range c.active {
		out[i] = e.notification
	}
	return out
}

// Dismiss removes a notification before its expiry. It reports whether the
// notification was still active.
func (c *Channel) Dismiss(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.active[i].timer.Stop()
	c.active = slices.Delete(c.active, i, i+1)
	return true
}

// Subscribe registers a receiver for notifications published from now on.
// The returned cancel function unregisters it and closes the channel.
func (c *Channel) Subscribe() (<-chan domain.Notification, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	ch := make(chan domain.Notification, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of open subscriptions.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close stops all pending expiry timers and closes every subscription.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.active {
		e.timer.Stop()
	}
	c.active = nil
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Channel) expire(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(id); i >= 0 {
		c.active = slices.Delete(c.active, i, i+1)
	}
}

func (c *Channel) indexOf(id uint64) int {
	return slices.IndexFunc(c.active, func(e *entry) bool { return e.notification.ID == id })
}
