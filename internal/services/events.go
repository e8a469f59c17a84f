package services

import (
	"sync"
	"time"
)

// EventType names the engine events forwarded to subscribers.
type EventType string

const (
	EventTick      EventType = "tick"
	EventCompleted EventType = "completed"
	EventConflict  EventType = "conflict"
	EventCancelled EventType = "cancelled"
)

// Event is one engine notification as seen by UI subscribers.
type Event struct {
	Type  EventType `json:"type"`
	Tier  string    `json:"tier"`
	Names []string  `json:"names,omitempty"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

const subscriberBuffer = 64

// broadcaster fans events out to any number of subscribers. Slow
// subscribers lose tick events rather than stall the draw; outcome events
// are always delivered.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		deliver(ch, ev)
	}
}

// deliver never blocks. A full subscriber loses the new event if it is a
// tick; any other event evicts the oldest buffered one instead.
func deliver(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		if ev.Type == EventTick {
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
