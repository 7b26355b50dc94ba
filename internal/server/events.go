package server

import (
	"fmt"
	"net/http"
	"time"
)

const defaultHeartbeat = 15 * time.Second

// handleEvents streams one SSE frame per new snapshot until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	events := s.Events.Subscribe(ctx)

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	log := s.logger()
	log.Debug("events: client connected", "remote", r.RemoteAddr)
	defer log.Debug("events: client disconnected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := fmt.Fprintf(w, ": ping - %s\n\n", now.UTC().Format(time.RFC3339)); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\nretry: %d\ndata: %s\n\n",
				ev.Type, ev.Retry.Milliseconds(), ev.Data()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
