package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/session"
)

type recNav struct {
	mu       sync.Mutex
	at       Route
	replaced []Route
	loading  bool
}

func (n *recNav) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.at
}

func (n *recNav) SetLoading(l bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = l
}

func (n *recNav) Replace(to Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.at = to
	n.replaced = append(n.replaced, to)
}

var (
	loading   = session.State{Loading: true}
	anonymous = session.State{}
	signedIn  = session.State{Session: &models.Session{AccessToken: "t"}}
)

func TestDecide(t *testing.T) {
	cases := []struct {
		st   session.State
		at   Route
		want Action
	}{
		{loading, Recipes, Wait},
		{loading, SignIn, Wait},
		{anonymous, Recipes, ToSignIn},
		{anonymous, "recipes/abc", ToSignIn},
		{anonymous, SignIn, Stay},
		{anonymous, SignUp, Stay},
		{signedIn, SignIn, ToRecipes},
		{signedIn, SignUp, ToRecipes},
		{signedIn, Recipes, Stay},
		{signedIn, "recipes/new", Stay},
	}
	for _, c := range cases {
		if got := Decide(c.st, c.at); got != c.want {
			t.Errorf("Decide(%+v, %s) = %s, want %s", c.st, c.at, got, c.want)
		}
	}
}

func TestReconcileNeverLoops(t *testing.T) {
	for _, st := range []session.State{anonymous, signedIn} {
		for _, start := range []Route{SignIn, SignUp, Recipes, "recipes/abc"} {
			nav := &recNav{at: start}
			g := New(nav)
			for i := 0; i < 3; i++ {
				g.Reconcile(st)
			}
			if len(nav.replaced) > 1 {
				t.Fatalf("state %+v from %s replaced %v", st, start, nav.replaced)
			}
			if Decide(st, nav.at) != Stay {
				t.Fatalf("state %+v settled on %s", st, nav.at)
			}
		}
	}
}

func TestLoadingNeverNavigates(t *testing.T) {
	nav := &recNav{at: Recipes}
	g := New(nav)
	if a := g.Reconcile(loading); a != Wait || len(nav.replaced) != 0 || !nav.loading {
		t.Fatalf("action=%s replaced=%v loading=%v", a, nav.replaced, nav.loading)
	}
	g.Reconcile(signedIn)
	if nav.loading {
		t.Fatal("indicator left on")
	}
}

type staticSource struct {
	sess   *models.Session
	events chan models.AuthEvent
}

func (s staticSource) CurrentSession(context.Context) (*models.Session, error) { return s.sess, nil }
func (s staticSource) OnAuthChange(int) (<-chan models.AuthEvent, func()) {
	return s.events, func() {}
}

func TestSettleAndRunFollowSignOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	src := staticSource{sess: &models.Session{AccessToken: "t"}, events: make(chan models.AuthEvent, 1)}
	store := session.Start(ctx, src)

	nav := &recNav{at: SignIn}
	g := New(nav)
	a, err := g.Settle(ctx, store)
	if err != nil || a != ToRecipes || nav.at != Recipes {
		t.Fatalf("settle = %s, %v at %s", a, err, nav.at)
	}

	go g.Run(ctx, store)
	src.events <- models.AuthEvent{Type: models.EventSignedOut}
	deadline := time.Now().Add(time.Second)
	for nav.Current() != SignIn && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if at := nav.Current(); at != SignIn {
		t.Fatalf("after sign out at %s", at)
	}
}
