package notify

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(ttl time.Duration) *Channel {
	return New(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestChannel_PublishAndExpire(t *testing.T) {
	c := newTestChannel(50 * time.Millisecond)
	defer c.Close()

	first := c.Success("Image removed")
	second := c.Error("Failed to generate content")

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, domain.NotificationError, active[1].Kind)
	assert.Less(t, first.ID, second.ID)

	assert.Eventually(t, func() bool { return len(c.Active()) == 0 },
		time.Second, 10*time.Millisecond)
}

func TestChannel_EntriesExpireIndependently(t *testing.T) {
	c := newTestChannel(80 * time.Millisecond)
	defer c.Close()

	c.Success("first")
	time.Sleep(50 * time.Millisecond)
	c.Success("second")

	assert.Eventually(t, func() bool {
		active := c.Active()
		return len(active) == 1 && active[0].Message == "second"
	}, time.Second, 5*time.Millisecond)
}

func TestChannel_Dismiss(t *testing.T) {
	c := newTestChannel(time.Minute)
	defer c.Close()

	n := c.Success("Added 2 image(s)")
	assert.True(t, c.Dismiss(n.ID))
	assert.False(t, c.Dismiss(n.ID))
	assert.Empty(t, c.Active())
}

func TestChannel_Subscribe(t *testing.T) {
	c := newTestChannel(time.Minute)
	defer c.Close()

	ch, cancel := c.Subscribe()
	assert.Equal(t, 1, c.Subscribers())
	c.Success("hello")

	select {
	case n := <-ch:
		assert.Equal(t, "hello", n.Message)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, c.Subscribers())
}

func TestChannel_SlowSubscriberDoesNotBlock(t *testing.T) {
	c := newTestChannel(time.Minute)
	defer c.Close()

	_, cancel := c.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range subscriberBuffer * 3 {
			c.Success("spam")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, c.Active(), subscriberBuffer*3)
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(0, nil)
	assert.Equal(t, domain.NotificationTTL, c.ttl)
}
