package mq

import (
	"testing"

	"github.com/GabrielGBraga/mise/models"
)

func TestEmitReachesOnlyThatUser(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe("alice", 1)
	defer cancelA()
	b, cancelB := bus.Subscribe("bob", 1)
	defer cancelB()

	bus.Emit(models.AuthEvent{Type: models.EventSignedOut, UserID: "alice"})

	select {
	case ev := <-a:
		if ev.Type != models.EventSignedOut {
			t.Fatalf("type = %s", ev.Type)
		}
	default:
		t.Fatal("alice got nothing")
	}
	select {
	case ev := <-b:
		t.Fatalf("bob got %+v", ev)
	default:
	}
}

func TestEmitDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("u", 1)
	defer cancel()

	bus.Emit(models.AuthEvent{Type: models.EventSignedIn, UserID: "u"})
	bus.Emit(models.AuthEvent{Type: models.EventTokenRefreshed, UserID: "u"})

	if ev := <-ch; ev.Type != models.EventSignedIn {
		t.Fatalf("first = %s", ev.Type)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesAndForgets(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("u", 1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if n := bus.Subscribers("u"); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
	bus.Emit(models.AuthEvent{Type: models.EventSignedIn, UserID: "u"})
}
