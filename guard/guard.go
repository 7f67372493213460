// Package guard keeps the current route consistent with the session: anonymous
// users are sent to sign-in and signed-in users are kept out of the auth screens.
package guard

import (
	"context"
	"strings"

	"github.com/GabrielGBraga/mise/session"
)

type Route string

const (
	SignIn  Route = "auth/sign-in"
	SignUp  Route = "auth/sign-up"
	Recipes Route = "recipes"
)

// InAuthGroup reports whether r is one of the sign-in or sign-up screens.
func (r Route) InAuthGroup() bool {
	return strings.HasPrefix(string(r), "auth/")
}

type Action int

const (
	Stay Action = iota
	// Wait means the session is still loading: show a blocking indicator.
	Wait
	ToSignIn
	ToRecipes
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case ToSignIn:
		return "to-sign-in"
	case ToRecipes:
		return "to-recipes"
	}
	return "stay"
}

func Decide(st session.State, at Route) Action {
	switch {
	case st.Loading:
		return Wait
	case !st.Authenticated() && !at.InAuthGroup():
		return ToSignIn
	case st.Authenticated() && at.InAuthGroup():
		return ToRecipes
	}
	return Stay
}

type Navigator interface {
	Current() Route
	Replace(to Route)
	SetLoading(loading bool)
}

type Guard struct {
	nav Navigator
}

func New(nav Navigator) *Guard {
	return &Guard{nav: nav}
}

// Reconcile applies the rule once against the navigator's current route.
// A replacement always lands on a route where the rule no longer fires.
func (g *Guard) Reconcile(st session.State) Action {
	a := Decide(st, g.nav.Current())
	g.nav.SetLoading(a == Wait)
	switch a {
	case ToSignIn:
		g.nav.Replace(SignIn)
	case ToRecipes:
		g.nav.Replace(Recipes)
	}
	return a
}

// Run reconciles on every state the store publishes until ctx ends.
func (g *Guard) Run(ctx context.Context, store *session.Store) {
	states, stop := store.Watch()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			g.Reconcile(st)
		}
	}
}

// Settle waits for the store to finish loading and reconciles once.
func (g *Guard) Settle(ctx context.Context, store *session.Store) (Action, error) {
	states, stop := store.Watch()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return Wait, ctx.Err()
		case st := <-states:
			if a := g.Reconcile(st); a != Wait {
				return a, nil
			}
		}
	}
}
