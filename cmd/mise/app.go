package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/GabrielGBraga/mise/gateway"
	"github.com/GabrielGBraga/mise/guard"
	"github.com/GabrielGBraga/mise/session"
)

var errSignedOut = errors.New("not signed in: run `mise signin` first")

// cliNav is the CLI's navigator: a command starts on a route and the guard
// may move it elsewhere before the command body runs.
type cliNav struct {
	at      guard.Route
	loading bool
}

func (n *cliNav) Current() guard.Route  { return n.at }
func (n *cliNav) Replace(to guard.Route) { n.at = to }
func (n *cliNav) SetLoading(l bool)      { n.loading = l }

type app struct {
	cfg     cliConfig
	client  *gateway.Client
	session *session.Store
	nav     *cliNav
}

// openApp restores the saved session, waits for it to be confirmed and lets
// the route guard decide whether route may be shown.
func openApp(ctx context.Context, server string, route guard.Route) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if server != "" {
		cfg.Server = server
	}

	client := gateway.New(cfg.Server, gateway.WithSession(cfg.Session))
	store := session.Start(ctx, client)
	nav := &cliNav{at: route}
	if _, err := guard.New(nav).Settle(ctx, store); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, client: client, session: store, nav: nav}, nil
}

// redirected reports whether the guard moved the command away from its route.
func (a *app) redirected(route guard.Route) bool {
	return a.nav.Current() != route
}

// persist writes the client's current session back to the config file.
func (a *app) persist() error {
	a.cfg.Session = a.client.Session()
	if err := saveConfig(a.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
