package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// watchLeaderboard upgrades the connection and streams leaderboard snapshots
// until the client disconnects. The first snapshot arrives immediately;
// subsequent ones follow the service's refresh interval.
func (h *Handler) watchLeaderboard(w http.ResponseWriter, r *http.Request) {
	topicID, period, _ := leaderboardParams(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.leaderboards.Subscribe(r.Context(), topicID, period)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorResponse{Error: err.Error()}})
		return
	}
	defer cancel()

	done := make(chan struct{})
	// Reads only serve to detect disconnects; clients send nothing meaningful.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: snap}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
