package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/storage"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamEvents upgrades to a websocket and writes one JSON message per
// store change until either side goes away.
func (h *handlers) streamEvents(c *gin.Context) {
	// Subscribe before the upgrade so no change is missed once the client
	// sees the handshake complete
	updates := h.store.ListenToUpdates()
	defer h.store.StopListening(updates)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.Named("events").With(zap.String("remote", c.Request.RemoteAddr))
	log.Debug("Event stream connected")

	closed := make(chan struct{})

	// Drain incoming messages (ping/pong, close frames)
	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Debug("Event stream disconnected")
			return

		case <-c.Request.Context().Done():
			return

		case update, ok := <-updates:
			if !ok {
				return
			}

			if err := conn.WriteJSON(h.updateView(update)); err != nil {
				log.Debug("Failed to write event", zap.Error(err))
				return
			}
		}
	}
}

func (h *handlers) updateView(update *storage.Update) updateView {
	view := updateView{
		Kind:    string(update.Kind),
		ID:      update.ID,
		Created: update.Created,
		Removed: update.Removed,
	}

	if update.Removed {
		return view
	}

	switch update.Kind {
	case storage.KindPlayer:
		if p, ok := h.store.Player(update.ID); ok {
			v := newPlayerView(p)
			view.Player = &v
		}

	case storage.KindGroup:
		if g, ok := h.store.Group(update.ID); ok {
			v := newGroupView(g)
			view.Group = &v
		}
	}

	return view
}
