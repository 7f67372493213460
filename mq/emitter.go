package mq

import (
	"log"
	"sync"

	"github.com/GabrielGBraga/mise/models"
)

// Bus fans session events out to per-user subscribers.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]chan models.AuthEvent
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan models.AuthEvent)}
}

// Subscribe registers for events about userID. The returned func unsubscribes
// and closes the channel.
func (b *Bus) Subscribe(userID string, buffer int) (<-chan models.AuthEvent, func()) {
	ch := make(chan models.AuthEvent, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan models.AuthEvent)
	}
	b.subs[userID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit delivers ev to every subscriber of ev.UserID. Full subscribers miss the event.
func (b *Bus) Emit(ev models.AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️ dropping %s event for %s: subscriber is full", ev.Type, ev.UserID)
		}
	}
}

// Subscribers reports how many listeners userID has.
func (b *Bus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
