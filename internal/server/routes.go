// ABOUTME: HTTP surface: webhook-style event intake and health probe.
// ABOUTME: POST /v1/events accepts one transport event and returns the replies to deliver.

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studybuddy/gateway/internal/message"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/events", s.handleEvent)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleEvent ingests one inbound event. Transports that cannot supply
// a delivery ID get a generated one, which disables duplicate
// detection for that event but keeps the pipeline uniform.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev message.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}
	if ev.Identity == "" {
		http.Error(w, "event identity is required", http.StatusBadRequest)
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	replies, err := s.dispatcher.Dispatch(r.Context(), &ev)
	if err != nil {
		s.logger.Error("dispatch failed", "event_id", ev.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"event_id":  ev.ID,
		"duplicate": replies == nil,
		"replies":   replies,
	})
}
