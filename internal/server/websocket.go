package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/engine"
	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/sandbox"
	"github.com/conneroisu/livepane/internal/sandbox/headless"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Room for the JSON envelope around an edit's text.
	messageOverhead = 4096

	// JSON escapes one byte as at most six ("\u00XX").
	maxEscapeExpansion = 6
)

// Message types on the wire.
const (
	messageEdit        = "edit"
	messageFlush       = "flush"
	messageReset       = "reset"
	messageSession     = "session"
	messageRender      = "render"
	messageDiagnostics = "diagnostics"
	messageError       = "error"
)

// clientMessage is sent by the host page.
type clientMessage struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
	Text string `json:"text"`
}

// serverMessage is sent to the host page.
type serverMessage struct {
	Type        string         `json:"type"`
	Session     string         `json:"session,omitempty"`
	Sequence    uint64         `json:"sequence,omitempty"`
	Content     string         `json:"content,omitempty"`
	Policy      string         `json:"policy,omitempty"`
	Console     []consoleEntry `json:"console,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
	Interrupted bool           `json:"interrupted,omitempty"`
	Code        string         `json:"code,omitempty"`
	Message     string         `json:"message,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type consoleEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		s.logger.Warn(r.Context(), nil, "WebSocket origin rejected",
			"origin", r.Header.Get("Origin"),
			"code", lperrors.ErrCodeOriginRejected,
		)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(readLimit(s.config.Limits.MaxBufferBytes))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := s.openSession(ctx, conn)
	defer s.closeSession(sess)

	go s.writePump(ctx, sess)
	s.readPump(ctx, sess)
}

// openSession builds the engine for a new connection and schedules the
// first render of the seed.
func (s *Server) openSession(ctx context.Context, conn *websocket.Conn) *session {
	id := newSessionID()
	logger := s.logger.With("session", id)

	sess := &session{
		id:      id,
		conn:    conn,
		limiter: newEditLimiter(s.config.Limits.EditsPerSecond, s.config.Limits.Burst),
		send:    make(chan []byte, sendQueueSize),
		logger:  logger,
		metrics: s.metrics,
		created: time.Now(),
	}

	var surface sandbox.Surface = sess
	if s.config.Headless.Enabled {
		sess.headless = headless.New(headless.Config{Timeout: s.config.Headless.Timeout}, logger, sess.onHeadlessResult)
		surface = sandbox.MultiSurface(sess, sess.headless)
	}

	renderer := sandbox.NewRenderer(surface, s.policy, logger)
	sess.engine = engine.New(s.seed, renderer, engine.Options{
		Delay:    s.config.Preview.Debounce,
		Composer: &s.composer,
		Logger:   logger,
		Metrics:  s.metrics,
	})

	s.sessions.add(sess)
	s.metrics.ConnectionOpened()
	s.logger.Info(ctx, "Session opened", "session", id, "sessions", s.sessions.count())

	// The session message is queued before the engine can render.
	if err := sess.enqueue(serverMessage{Type: messageSession, Session: id, Policy: s.policy.Attribute()}); err != nil {
		logger.Warn(ctx, err, "Session greeting dropped")
	}
	sess.engine.Start(ctx)

	return sess
}

func (s *Server) closeSession(sess *session) {
	s.sessions.remove(sess.id)
	sess.close(websocket.StatusNormalClosure, "")
	s.metrics.ConnectionClosed()
	s.logger.Info(context.Background(), "Session closed",
		"session", sess.id,
		"duration", time.Since(sess.created),
		"sessions", s.sessions.count(),
	)
}

// readPump applies every message from the browser until the socket closes.
func (s *Server) readPump(ctx context.Context, sess *session) {
	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				sess.logger.Debug(ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}

		if err := s.handleMessage(sess, data); err != nil {
			s.reportError(ctx, sess, err)
		}
	}
}

// writePump pumps messages to the websocket connection
func (s *Server) writePump(ctx context.Context, sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case message := <-sess.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := sess.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				sess.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				sess.conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := sess.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				sess.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

// handleMessage validates one client message and applies it to the engine.
// The store itself accepts any text, so size and rate limits live here.
func (s *Server) handleMessage(sess *session, data []byte) error {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.metrics.Message("in", "invalid")
		return lperrors.NewValidationError(lperrors.ErrCodeInvalidMessage, "message is not valid JSON")
	}
	s.metrics.Message("in", msg.Type)

	switch msg.Type {
	case messageEdit:
		kind, err := buffer.ParseKind(msg.Kind)
		if err != nil {
			return lperrors.NewValidationError(lperrors.ErrCodeInvalidKind, err.Error()).
				WithContext("kind", msg.Kind)
		}
		if len(msg.Text) > s.config.Limits.MaxBufferBytes {
			return lperrors.NewValidationError(lperrors.ErrCodeBufferTooLarge, "buffer exceeds size limit").
				WithContext("kind", kind.String()).
				WithContext("bytes", len(msg.Text)).
				WithContext("limit", s.config.Limits.MaxBufferBytes)
		}
		if !sess.limiter.Allow() {
			s.metrics.EditThrottled()
			return lperrors.NewValidationError(lperrors.ErrCodeRateLimited, "too many edits").
				WithContext("kind", kind.String())
		}
		sess.engine.SetBuffer(kind, msg.Text)

	case messageFlush:
		sess.engine.Flush()

	case messageReset:
		for _, kind := range buffer.Kinds {
			sess.engine.SetBuffer(kind, s.seed.Get(kind))
		}

	default:
		return lperrors.NewValidationError(lperrors.ErrCodeInvalidMessage, "unknown message type").
			WithContext("type", msg.Type)
	}

	return nil
}

func (s *Server) reportError(ctx context.Context, sess *session, err error) {
	msg := serverMessage{Type: messageError, Session: sess.id, Message: err.Error()}

	var le *lperrors.LivepaneError
	if errors.As(err, &le) {
		msg.Code = le.Code
		msg.Message = le.Message
	}

	sess.logger.Debug(ctx, "Client message rejected", "code", msg.Code, "message", msg.Message)
	if qerr := sess.enqueue(msg); qerr != nil {
		sess.logger.Debug(ctx, "Error reply dropped", "code", msg.Code)
	}
}

// readLimit bounds one websocket message. Any edit whose decoded text fits
// maxBufferBytes fits the limit, so the size check in handleMessage can answer
// it with an error message instead of the socket closing.
func readLimit(maxBufferBytes int) int64 {
	return int64(maxEscapeExpansion)*int64(maxBufferBytes) + messageOverhead
}

// newEditLimiter returns a token bucket for one connection. A zero rate
// disables throttling.
func newEditLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
