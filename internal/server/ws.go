package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/curlcount/internal/server/api"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveHandler pushes count updates to websocket clients.
type LiveHandler struct {
	counter Counter
}

// NewLiveHandler creates a LiveHandler for counter.
func NewLiveHandler(counter Counter) *LiveHandler {
	return &LiveHandler{counter: counter}
}

// ServeHTTP upgrades the connection, sends the current counts, then one
// message per change until the client goes away.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	updates := h.counter.Subscribe()
	defer h.counter.Unsubscribe(updates)

	// The client never sends anything we use; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, api.NewCountsResponse(h.counter, h.counter.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.send(conn, api.NewCountsResponse(h.counter, snap)); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) send(conn *websocket.Conn, msg api.CountsResponse) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}
