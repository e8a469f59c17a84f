package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	b := newBroadcaster()
	events, unsubscribe := b.subscribe()
	defer unsubscribe()

	for range subscriberBuffer + 10 {
		b.publish(Event{Type: EventTick, Tier: "Gold"})
	}
	b.publish(Event{Type: EventConflict, Tier: "Gold", Error: "quota exceeded"})
	b.publish(Event{Type: EventCompleted, Tier: "Gold"})

	var got []Event
	for len(events) > 0 {
		got = append(got, <-events)
	}
	require.Len(t, got, subscriberBuffer)
	assert.Equal(t, EventConflict, got[len(got)-2].Type)
	assert.Equal(t, EventCompleted, got[len(got)-1].Type)
	assert.Equal(t, EventTick, got[0].Type)
}

func TestBroadcaster_CloseAll(t *testing.T) {
	b := newBroadcaster()
	events, unsubscribe := b.subscribe()
	b.closeAll()

	_, open := <-events
	assert.False(t, open)
	unsubscribe()
	b.publish(Event{Type: EventCompleted})
}
