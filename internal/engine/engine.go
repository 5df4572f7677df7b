// Package engine runs the live preview pipeline for one set of buffers.
//
// An edit updates the buffer store, which reschedules the recompute on the
// debounce scheduler. When the quiescence window passes, the engine takes a
// snapshot of all three buffers, composes the document and hands it to the
// sandbox renderer. Close tears the engine down: the pending timer is
// cancelled and no document is composed or rendered afterwards.
//
// All state changes happen under one mutex, which gives the same
// run-to-completion ordering as a single event loop even though timer
// callbacks arrive on their own goroutine.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/debounce"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/monitoring"
)

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePendingRecompute
	StateComposed
	StateRendered
	StateTornDown
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingRecompute:
		return "pending_recompute"
	case StateComposed:
		return "composed"
	case StateRendered:
		return "rendered"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Renderer is the part of sandbox.Renderer the engine depends on.
type Renderer interface {
	Render(ctx context.Context, document string)
}

// Options configures an engine. Zero values pick defaults.
type Options struct {
	Delay    time.Duration
	Clock    debounce.Clock
	Composer *compose.Composer
	Logger   logging.Logger
	Metrics  *monitoring.Metrics
}

// Engine owns the buffers, the debounce timer and the current document.
type Engine struct {
	mu        sync.Mutex
	store     *buffer.Store
	scheduler *debounce.Scheduler
	composer  compose.Composer
	renderer  Renderer
	delay     time.Duration
	logger    logging.Logger
	metrics   *monitoring.Metrics

	ctx      context.Context
	stopCtx  func() bool
	state    State
	document string
	renders  uint64
}

// New creates an engine seeded from the exercise. The engine does nothing
// until the first edit or Start.
func New(seed buffer.Exercise, renderer Renderer, opts Options) *Engine {
	if opts.Delay <= 0 {
		opts.Delay = debounce.DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	composer := compose.Default
	if opts.Composer != nil {
		composer = *opts.Composer
	}

	e := &Engine{
		scheduler: debounce.New(opts.Clock),
		composer:  composer,
		renderer:  renderer,
		delay:     opts.Delay,
		logger:    opts.Logger.WithComponent("engine"),
		metrics:   opts.Metrics,
		ctx:       context.Background(),
		state:     StateIdle,
	}
	e.store = buffer.NewStore(seed, e.onEdit)
	e.metrics.EngineStarted()

	return e
}

// Start schedules the initial render of the seed and ties the engine's
// lifetime to ctx: when ctx is done the engine is torn down.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTornDown {
		return
	}

	e.ctx = ctx
	e.stopCtx = context.AfterFunc(ctx, func() {
		e.Close()
	})
	e.scheduleLocked()
}

// SetBuffer applies an edit. Edits after teardown are ignored.
func (e *Engine) SetBuffer(kind buffer.Kind, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTornDown {
		e.logger.Debug(e.ctx, "Edit ignored after teardown", "kind", kind.String())
		return
	}
	if !kind.Valid() {
		return
	}

	e.store.SetBuffer(kind, text)
}

// onEdit is the store's change hook. It runs inside SetBuffer, with e.mu
// held.
func (e *Engine) onEdit(kind buffer.Kind) {
	e.metrics.EditApplied(kind.String())
	e.scheduleLocked()
}

func (e *Engine) scheduleLocked() {
	e.state = StatePendingRecompute
	e.scheduler.Schedule(e.recompute, e.delay)
}

// Flush cancels any pending timer and recomputes immediately.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTornDown {
		return
	}
	e.scheduler.Cancel()
	e.recomputeLocked()
}

func (e *Engine) recompute() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTornDown {
		e.metrics.RecomputeDropped()
		e.logger.Error(e.ctx, nil, "Recompute reached torn down engine, dropped")
		return
	}
	e.recomputeLocked()
}

func (e *Engine) recomputeLocked() {
	started := time.Now()

	snapshot := e.store.Snapshot()
	e.document = e.composer.ComposeExercise(snapshot)
	e.state = StateComposed

	e.renderer.Render(e.ctx, e.document)
	e.renders++
	e.state = StateRendered

	e.metrics.Rendered(started, len(e.document))
	e.logger.Debug(e.ctx, "Rendered composite document",
		"render", e.renders,
		"bytes", len(e.document),
	)
}

// Close tears the engine down. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTornDown {
		return
	}

	e.scheduler.Cancel()
	e.state = StateTornDown
	if e.stopCtx != nil {
		e.stopCtx()
	}
	e.metrics.EngineStopped()
	e.logger.Debug(e.ctx, "Engine torn down", "renders", e.renders)
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Document returns the last composed document, if any.
func (e *Engine) Document() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document, e.renders > 0
}

// Snapshot returns the current buffers.
func (e *Engine) Snapshot() buffer.Exercise {
	return e.store.Snapshot()
}

// Pending reports whether a recompute is scheduled.
func (e *Engine) Pending() bool {
	return e.scheduler.Pending()
}
