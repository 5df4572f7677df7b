package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/conneroisu/livepane/internal/version"
)

// handlePreview serves a session's latest document on its own URL. The
// sandbox CSP directive gives it the same isolation as the iframe.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("session"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	document, ok := sess.engine.Document()
	if !ok {
		http.Error(w, "Preview not rendered yet", http.StatusNotFound)
		return
	}

	h := w.Header()
	h.Set("Content-Security-Policy", s.policy.HeaderValue())
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(document))
}

// handleExercise returns the seed every new session starts from.
func (s *Server) handleExercise(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.seed)
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
	Policy   string `json:"policy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "healthy",
		Version:  version.Get().Short(),
		Sessions: s.sessions.count(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Policy:   s.policy.Attribute(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
