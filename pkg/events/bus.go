// Package events carries the auto-stop signal between the ringing service
// and whoever needs to react to it (the dismissal screen, the D-Bus bridge).
package events

import (
	"sync"
)

// AutoStopped is published when an alarm's end time passes while it rings
type AutoStopped struct {
	AlarmID int
}

// Bus is an in-process fan-out of AutoStopped events. Publishing never
// blocks; a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan AutoStopped
	nextID int
}

// NewBus creates an empty Bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan AutoStopped)}
}

// Subscribe returns a channel of future events and a function that ends the
// subscription and closes the channel
func (b *Bus) Subscribe(buffer int) (<-chan AutoStopped, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan AutoStopped, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber
func (b *Bus) Publish(ev AutoStopped) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// AutoStopped publishes an AutoStopped event for id
func (b *Bus) AutoStopped(id int) {
	b.Publish(AutoStopped{AlarmID: id})
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
