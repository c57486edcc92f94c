package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

const progressInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients poll from the same origins CORS admits.
	CheckOrigin: func(*http.Request) bool { return true },
}

// progressSocketHandler streams run snapshots over a websocket until
// the run reaches a terminal state.
func (s *Server) progressSocketHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, "Run not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	websocketConnections.Inc()
	defer func() {
		websocketConnections.Dec()
		_ = conn.Close()
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		snap := run.Snapshot()
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
		if snap.Status == pipeline.StatusComplete || snap.Status == pipeline.StatusFailed {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.Status)))
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
