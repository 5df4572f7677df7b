// Package headless is a rendering surface that runs a composite document's
// inline scripts in an embedded JavaScript VM instead of a browser frame.
//
// Each frame gets a fresh VM with no host bindings other than console. A
// frame supersedes the one before it: a still-running script is interrupted,
// as a browser frame would be on reload. Scripts that throw or never finish
// are recorded in the frame's Result and never reach the caller.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/sandbox"
)

// ErrClosed is returned by Present after Close.
var ErrClosed = errors.New("headless surface closed")

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Execution deadline per frame
	MaxCallStackSize int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 1024,
	}
}

// LogEntry represents console output
type LogEntry struct {
	Level   string
	Message string
}

// Result holds what happened when a frame ran.
type Result struct {
	Sequence    uint64
	Console     []LogEntry
	Errors      []string
	Scripts     int
	Interrupted bool
	// Skipped is set when the frame's policy does not allow scripts.
	Skipped  bool
	Duration time.Duration
}

// Surface implements sandbox.Surface.
type Surface struct {
	config   Config
	logger   logging.Logger
	onResult func(*Result)

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New creates a headless surface. onResult, if set, receives every finished
// frame's result on the surface's goroutine.
func New(config Config, logger logging.Logger, onResult func(*Result)) *Surface {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = defaults.MaxCallStackSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Surface{
		config:   config,
		logger:   logger.WithComponent("headless"),
		onResult: onResult,
	}
}

// Present starts running the frame and returns immediately.
func (s *Surface) Present(_ context.Context, frame sandbox.Frame) error {
	structure, err := compose.Inspect(frame.Document)
	if err != nil {
		return fmt.Errorf("inspecting frame %d: %w", frame.Sequence, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	// The run outlives Present, so it is bounded by the surface's own
	// deadline rather than the caller's context.
	runCtx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		result := s.execute(runCtx, frame, structure.Scripts)
		s.report(result)
	}()

	return nil
}

// Close interrupts the running frame and waits for it to finish.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Surface) execute(ctx context.Context, frame sandbox.Frame, scripts []string) *Result {
	start := time.Now()
	result := &Result{Sequence: frame.Sequence, Scripts: len(scripts)}
	defer func() {
		result.Duration = time.Since(start)
	}()

	if !frame.Policy.Allows(sandbox.AllowScripts) {
		result.Skipped = true
		return result
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(s.config.MaxCallStackSize)
	var consoleMu sync.Mutex
	s.setupGlobals(vm, func(entry LogEntry) {
		consoleMu.Lock()
		result.Console = append(result.Console, entry)
		consoleMu.Unlock()
	})

	for _, script := range scripts {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		err := run(ctx, vm, script)
		if err == nil {
			continue
		}

		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			result.Interrupted = true
			result.Errors = append(result.Errors, "interrupted: "+fmt.Sprint(interrupted.Value()))
			break
		}
		// An uncaught exception ends its own script block only.
		result.Errors = append(result.Errors, err.Error())
	}

	return result
}

func run(ctx context.Context, vm *goja.Runtime, script string) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	_, err := vm.RunString(script)
	return err
}

// setupGlobals configures global objects and security
func (s *Surface) setupGlobals(vm *goja.Runtime, emit func(LogEntry)) {
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = vm.Set(name, goja.Undefined())
	}

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		level := level
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			emit(LogEntry{Level: level, Message: strings.Join(parts, " ")})
			return goja.Undefined()
		})
	}
	_ = vm.Set("console", console)

	// Timers never fire in a headless frame.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = vm.Set("setTimeout", noop)
	_ = vm.Set("setInterval", noop)
	_ = vm.Set("requestAnimationFrame", noop)
}

func (s *Surface) report(result *Result) {
	ctx := context.Background()
	for _, entry := range result.Console {
		s.logger.Debug(ctx, "console."+entry.Level,
			"sequence", result.Sequence,
			"message", logging.Truncate(entry.Message, 512),
		)
	}
	if len(result.Errors) > 0 {
		s.logger.Info(ctx, "Frame scripts reported errors",
			"sequence", result.Sequence,
			"errors", len(result.Errors),
			"interrupted", result.Interrupted,
		)
	}

	if s.onResult != nil {
		s.onResult(result)
	}
}
