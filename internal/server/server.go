// Package server exposes the simulation over HTTP. Game-state routes
// are POST with JSON bodies; the world view and the event stream are
// GET.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/bus"
	"github.com/sablecourt/accord/internal/session"
)

const maxCountries = 26

// Server serves sessions over HTTP.
type Server struct {
	Sessions *session.Manager
	Bus      *bus.EventBus

	// DefaultCountries is used when new-game omits a count.
	DefaultCountries int
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/new-game", s.postOnly(s.handleNewGame))
	mux.HandleFunc("/api/conduct-round", s.postOnly(s.handleConductRound))
	mux.HandleFunc("/api/end-meeting", s.postOnly(s.handleEndMeeting))
	mux.HandleFunc("/api/time-skip", s.postOnly(s.handleTimeSkip))
	mux.HandleFunc("/api/final-assessment", s.postOnly(s.handleFinalAssessment))
	mux.HandleFunc("/api/end-game", s.postOnly(s.handleEndGame))

	mux.HandleFunc("/api/world", s.handleWorld)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/health", s.handleHealth)

	return corsMiddleware(mux)
}

// Start blocks serving the API on addr.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("HTTP API starting")
	return http.ListenAndServe(addr, s.Handler())
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set ACCORD_CORS_ORIGINS to a comma-separated list of extra origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("ACCORD_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Countries int `json:"countries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Countries == 0 {
		req.Countries = s.DefaultCountries
	}
	if req.Countries < 2 || req.Countries > maxCountries {
		http.Error(w, "countries must be 2-26", http.StatusBadRequest)
		return
	}

	sess, err := s.Sessions.Create(r.Context(), req.Countries)
	if err != nil {
		log.Error().Err(err).Msg("session creation failed")
		http.Error(w, "session creation failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"session_id":  sess.ID(),
		"world_state": sess.Snapshot(),
	})
}

func (s *Server) handleConductRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID     string   `json:"session_id"`
		EventIDs      []string `json:"selected_event_ids"`
		RoundNum      int      `json:"round_num"` // informational, the session tracks its own round
		PlayerMessage string   `json:"player_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	sess, err := s.Sessions.Get(req.SessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	responses, err := sess.ConductRound(r.Context(), req.EventIDs, req.PlayerMessage)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"responses":   responses,
		"world_state": sess.Snapshot(),
	})
}

func (s *Server) handleEndMeeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string   `json:"session_id"`
		EventIDs  []string `json:"selected_event_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	sess, err := s.Sessions.Get(req.SessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	result, err := sess.EndMeeting(r.Context(), req.EventIDs)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleTimeSkip(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}

	result, err := sess.TimeSkip(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleFinalAssessment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}

	report, err := sess.FinalReport(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}

	report, err := sess.FinalReport(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.Sessions.Remove(sess.ID())
	writeJSON(w, report)
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.URL.Query().Get("session_id"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Count(),
	})
}

// sessionFromBody decodes a {"session_id": ...} body and resolves the
// session; on failure it writes the error response and returns false.
func (s *Server) sessionFromBody(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return nil, false
	}

	sess, err := s.Sessions.Get(req.SessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidEventSelection):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrMeetingOver):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error().Err(err).Msg("session operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
