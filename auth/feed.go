package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/utils"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Subscriber hands out per-user event channels.
type Subscriber interface {
	Subscribe(userID string, buffer int) (<-chan models.AuthEvent, func())
}

// SessionFeed streams session-change events for the presented token over a
// websocket. After a refresh the feed follows the replacement token.
func SessionFeed(bus Subscriber) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		claims, _, ok := ClaimsFromContext(r.Context())
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("ws upgrade:", err)
			return
		}
		userID, tokenID := claims.Subject, claims.ID
		events, unsubscribe := bus.Subscribe(userID, 8)
		log.Println("WS session feed connected:", userID)
		defer func() {
			unsubscribe()
			conn.Close()
			log.Println("WS session feed disconnected:", userID)
		}()

		// reader: only there to notice the client going away and to handle pongs
		done := make(chan struct{})
		go func() {
			defer close(done)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.TokenID != tokenID {
					continue
				}
				if ev.NextTokenID != "" {
					tokenID = ev.NextTokenID
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
				if ev.Type == models.EventSignedOut {
					conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
						time.Now().Add(writeWait))
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
