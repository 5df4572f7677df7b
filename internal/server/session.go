package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/conneroisu/livepane/internal/engine"
	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/monitoring"
	"github.com/conneroisu/livepane/internal/sandbox"
	"github.com/conneroisu/livepane/internal/sandbox/headless"
)

const sendQueueSize = 16

// session is one websocket connection and the engine it owns.
type session struct {
	id       string
	conn     *websocket.Conn
	engine   *engine.Engine
	headless *headless.Surface
	limiter  *rate.Limiter
	send     chan []byte
	logger   logging.Logger
	metrics  *monitoring.Metrics
	created  time.Time

	closeOnce sync.Once
}

func newSessionID() string {
	return uuid.NewString()
}

// Present implements sandbox.Surface by queueing a render message for the
// browser. A full queue drops the frame; a later frame replaces it anyway.
func (sess *session) Present(_ context.Context, frame sandbox.Frame) error {
	return sess.enqueue(serverMessage{
		Type:     messageRender,
		Session:  sess.id,
		Sequence: frame.Sequence,
		Content:  frame.Document,
		Policy:   frame.Policy.Attribute(),
	})
}

func (sess *session) enqueue(msg serverMessage) error {
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		return lperrors.WrapError(err, lperrors.ErrCodeInvalidMessage, "encoding message")
	}

	select {
	case sess.send <- data:
		sess.metrics.Message("out", msg.Type)
		return nil
	default:
		if msg.Type == messageRender {
			sess.metrics.RenderFailed()
		}
		return lperrors.NewTransportError(lperrors.ErrCodeSendQueueFull, "send queue full", nil).
			WithContext("session", sess.id).
			WithContext("type", msg.Type)
	}
}

// onHeadlessResult forwards script diagnostics to the browser.
func (sess *session) onHeadlessResult(result *headless.Result) {
	console := make([]consoleEntry, len(result.Console))
	for i, entry := range result.Console {
		console[i] = consoleEntry{Level: entry.Level, Message: entry.Message}
	}

	err := sess.enqueue(serverMessage{
		Type:        messageDiagnostics,
		Session:     sess.id,
		Sequence:    result.Sequence,
		Console:     console,
		Errors:      result.Errors,
		Interrupted: result.Interrupted,
	})
	if err != nil {
		sess.logger.Debug(context.Background(), "Diagnostics dropped", "sequence", result.Sequence)
	}
}

// close tears the engine down and closes the socket.
func (sess *session) close(code websocket.StatusCode, reason string) {
	sess.closeOnce.Do(func() {
		sess.engine.Close()
		if sess.headless != nil {
			sess.headless.Close()
		}
		sess.conn.Close(code, reason)
	})
}

type sessionRegistry struct {
	mutex    sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) add(sess *session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sessions[sess.id] = sess
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, id)
}

func (r *sessionRegistry) count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

func (r *sessionRegistry) closeAll() {
	r.mutex.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		sessions = append(sessions, sess)
		delete(r.sessions, id)
	}
	r.mutex.Unlock()

	for _, sess := range sessions {
		sess.close(websocket.StatusGoingAway, "server shutting down")
	}
}
