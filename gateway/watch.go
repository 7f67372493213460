package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/GabrielGBraga/mise/models"
	"github.com/gorilla/websocket"
)

var ErrNoSession = errors.New("no session to watch")

// Watch follows the backend's session feed for the held token and applies
// every pushed event locally until ctx ends or the backend closes the feed.
func (c *Client) Watch(ctx context.Context) error {
	tok := c.token()
	if tok == "" {
		return ErrNoSession
	}

	u, err := url.Parse(c.server)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/session"
	u.RawQuery = url.Values{"token": {tok}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var ev models.AuthEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		c.apply(ev)
		if ev.Type == models.EventSignedOut {
			return nil
		}
	}
}
