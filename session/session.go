// Package session tracks the current authenticated session for the client.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/GabrielGBraga/mise/models"
)

// State is what consumers observe. Session is nil when anonymous.
type State struct {
	Session *models.Session
	Loading bool
}

func (s State) Authenticated() bool { return s.Session != nil }

// Source is where sessions come from.
type Source interface {
	CurrentSession(ctx context.Context) (*models.Session, error)
	OnAuthChange(buffer int) (<-chan models.AuthEvent, func())
}

// Store holds the session State. Only the goroutine started by Start writes it.
type Store struct {
	mu       sync.RWMutex
	state    State
	watchers map[int]chan State
	nextID   int
	done     chan struct{}
}

// Start fetches the current session once and then applies every pushed
// session change until ctx ends or src stops sending.
func Start(ctx context.Context, src Source) *Store {
	s := &Store{
		state:    State{Loading: true},
		watchers: make(map[int]chan State),
		done:     make(chan struct{}),
	}
	// subscribe before fetching so no change is missed in between
	events, unsubscribe := src.OnAuthChange(16)

	go func() {
		defer close(s.done)
		defer unsubscribe()

		sess, err := src.CurrentSession(ctx)
		if err != nil {
			log.Printf("⚠️ fetch session: %v", err)
			sess = nil
		}
		s.set(State{Session: sess})

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.set(State{Session: sessionAfter(ev)})
			}
		}
	}()
	return s
}

func sessionAfter(ev models.AuthEvent) *models.Session {
	switch ev.Type {
	case models.EventSignedIn, models.EventTokenRefreshed:
		if ev.Session != nil {
			s := *ev.Session
			return &s
		}
	}
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Watch delivers the current State and then every change. A slow reader
// only ever sees the latest State.
func (s *Store) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.state
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
	}
}

// Done is closed once the store stops following changes.
func (s *Store) Done() <-chan struct{} { return s.done }

func (s *Store) set(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
