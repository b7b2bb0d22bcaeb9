package gateway

import (
	"testing"

	"github.com/pactline/escrowd/src/utils/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsFanOut(t *testing.T) {
	events := NewEvents(config.Default())

	firstId, first := events.Subscribe()
	secondId, second := events.Subscribe()
	require.NotEqual(t, firstId, secondId)

	events.broadcast(`{"deal_id":"deal-1","status":"VERIFYING"}`)

	assert.Equal(t, `{"deal_id":"deal-1","status":"VERIFYING"}`, <-first)
	assert.Equal(t, `{"deal_id":"deal-1","status":"VERIFYING"}`, <-second)

	events.Unsubscribe(secondId)
	_, open := <-second
	assert.False(t, open)

	// The remaining consumer still gets messages
	events.broadcast("again")
	assert.Equal(t, "again", <-first)

	events.Unsubscribe(firstId)
}

func TestEventsUnsubscribeTwice(t *testing.T) {
	events := NewEvents(config.Default())
	id, _ := events.Subscribe()
	events.Unsubscribe(id)
	events.Unsubscribe(id)
}

func TestEventsDropOnFullBuffer(t *testing.T) {
	config := config.Default()
	config.Gateway.EventQueueSize = 1
	events := NewEvents(config)

	id, feed := events.Subscribe()
	defer events.Unsubscribe(id)

	// A slow consumer loses messages instead of stalling the fan-out
	events.broadcast("first")
	events.broadcast("second")

	assert.Equal(t, "first", <-feed)
	select {
	case msg := <-feed:
		t.Fatalf("expected the overflow message to be dropped, got %q", msg)
	default:
	}
}
