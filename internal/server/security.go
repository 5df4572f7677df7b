package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/conneroisu/livepane/internal/validation"
)

// hostPageCSP lets the page run its own inline script and talk to the
// websocket. The preview iframe is loaded through srcdoc and inherits it.
const hostPageCSP = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob:; " +
	"connect-src 'self' ws: wss:; " +
	"object-src 'none'; " +
	"base-uri 'none'; " +
	"form-action 'none'; " +
	"frame-ancestors 'none'"

func (s *Server) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=(), payment=(), usb=()")

		if origin := r.Header.Get("Origin"); origin != "" && s.isAllowedOrigin(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(rec, r)

		s.logger.Debug(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started),
		)
	})
}

// checkOrigin accepts the configured listen address, its localhost and
// loopback forms, and the configured allowed origins. The request's Host
// header is not trusted, so a rebound DNS name pointing at the listener is
// refused.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := append(s.allowedHosts(), s.config.Server.AllowedOrigins...)
	return validation.ValidateOrigin(r.Header.Get("Origin"), allowed) == nil
}

func (s *Server) allowedHosts() []string {
	port := s.config.Server.Port
	return []string{
		fmt.Sprintf("%s:%d", s.config.Server.Host, port),
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
	}
}

func (s *Server) isAllowedOrigin(origin string) bool {
	return validation.ValidateOrigin(origin, s.config.Server.AllowedOrigins) == nil
}

// originPatterns lists the origin hosts the websocket library may accept in
// addition to same-origin requests.
func (s *Server) originPatterns() []string {
	patterns := s.allowedHosts()
	for _, allowed := range s.config.Server.AllowedOrigins {
		if u, err := url.Parse(allowed); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
