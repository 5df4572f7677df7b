package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/monitoring"
	"github.com/conneroisu/livepane/internal/sandbox"
	"github.com/conneroisu/livepane/internal/testutils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const window = 250 * time.Millisecond

type harness struct {
	clock   *testutils.FakeClock
	surface *testutils.RecordingSurface
	engine  *Engine
	metrics *monitoring.Metrics
}

func newHarness(t *testing.T, seed buffer.Exercise) *harness {
	t.Helper()
	h := &harness{
		clock:   testutils.NewFakeClock(),
		surface: testutils.NewRecordingSurface(),
		metrics: monitoring.NewMetrics(),
	}
	renderer := sandbox.NewRenderer(h.surface, sandbox.DefaultPolicy(), nil)
	h.engine = New(seed, renderer, Options{
		Delay:   window,
		Clock:   h.clock,
		Metrics: h.metrics,
	})
	t.Cleanup(h.engine.Close)
	return h
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending_recompute", StatePendingRecompute.String())
	assert.Equal(t, "composed", StateComposed.String())
	assert.Equal(t, "rendered", StateRendered.String())
	assert.Equal(t, "torn_down", StateTornDown.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestTenEditsOneRender(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	for i := 1; i <= 10; i++ {
		h.engine.SetBuffer(buffer.KindScript, fmt.Sprintf("console.log(%d)", i))
		h.clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 0, h.surface.Count())
	assert.Equal(t, StatePendingRecompute, h.engine.State())

	h.clock.Advance(window)

	require.Equal(t, 1, h.surface.Count())
	frame, _ := h.surface.Last()
	assert.Contains(t, frame.Document, "console.log(10)")
	for i := 1; i < 10; i++ {
		assert.NotContains(t, frame.Document, fmt.Sprintf("console.log(%d)", i))
	}
	assert.Equal(t, StateRendered, h.engine.State())
	assert.Equal(t, 10.0, testutil.ToFloat64(h.metrics.Edits.WithLabelValues("script")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Renders))
}

func TestBurstAcrossBuffersUsesLastValues(t *testing.T) {
	h := newHarness(t, buffer.Exercise{Markup: "<p>seed</p>", Style: "seed{}", Script: "seed()"})

	h.engine.SetBuffer(buffer.KindMarkup, "<p>one</p>")
	h.engine.SetBuffer(buffer.KindStyle, "p{color:blue}")
	h.engine.SetBuffer(buffer.KindMarkup, "<p>two</p>")
	h.engine.SetBuffer(buffer.KindScript, "go()")
	h.clock.Advance(window)

	require.Equal(t, 1, h.surface.Count())
	frame, _ := h.surface.Last()
	assert.Equal(t, compose.Compose("<p>two</p>", "p{color:blue}", "go()"), frame.Document)
}

func TestChangingOneBufferKeepsTheOthers(t *testing.T) {
	h := newHarness(t, buffer.Exercise{Markup: "<p>hi</p>", Style: "p{color:red}", Script: "console.log(1)"})

	h.engine.SetBuffer(buffer.KindScript, "console.log(2)")
	h.clock.Advance(window)

	frame, ok := h.surface.Last()
	require.True(t, ok)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frame.Document))
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.Find("body p").Text())
	assert.Contains(t, doc.Find("style").Text(), "p{color:red}")
	assert.Contains(t, doc.Find("script").Text(), "console.log(2)")
	assert.Less(t, strings.Index(frame.Document, "<p>hi</p>"), strings.Index(frame.Document, "p{color:red}"))
	assert.Less(t, strings.Index(frame.Document, "p{color:red}"), strings.Index(frame.Document, "console.log(2)"))
}

func TestTeardownCancelsPendingRecompute(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	h.engine.SetBuffer(buffer.KindMarkup, "<p>late</p>")
	require.True(t, h.engine.Pending())

	h.engine.Close()
	assert.Equal(t, StateTornDown, h.engine.State())
	assert.False(t, h.engine.Pending())
	assert.Zero(t, h.clock.PendingTimers())

	h.clock.Advance(10 * window)
	assert.Equal(t, 0, h.surface.Count())

	h.engine.SetBuffer(buffer.KindMarkup, "<p>after</p>")
	h.engine.Flush()
	h.clock.Advance(10 * window)
	assert.Equal(t, 0, h.surface.Count())
	assert.Equal(t, "<p>late</p>", h.engine.Snapshot().Markup)

	// Close is idempotent.
	h.engine.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.EnginesActive))
}

func TestEveryRenderCarriesIsolatedPolicy(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	documents := []string{
		"<script>window.top.location='x'</script>",
		"<form target=_top></form>",
		"",
	}
	for _, markup := range documents {
		h.engine.SetBuffer(buffer.KindMarkup, markup)
		h.clock.Advance(window)
	}

	frames := h.surface.Frames()
	require.Len(t, frames, len(documents))
	for i, frame := range frames {
		assert.Equal(t, uint64(i+1), frame.Sequence)
		assert.True(t, frame.Policy.Allows(sandbox.AllowScripts))
		assert.False(t, frame.Policy.Allows(sandbox.AllowSameOrigin))
		assert.False(t, frame.Policy.Allows(sandbox.AllowTopNavigation))
		assert.False(t, frame.Policy.Allows(sandbox.AllowPopups))
	}
}

func TestStartRendersSeed(t *testing.T) {
	h := newHarness(t, buffer.Exercise{Markup: "<p>seed</p>"})

	h.engine.Start(context.Background())
	assert.Equal(t, StatePendingRecompute, h.engine.State())

	h.clock.Advance(window)
	require.Equal(t, 1, h.surface.Count())

	doc, ok := h.engine.Document()
	assert.True(t, ok)
	assert.Contains(t, doc, "<p>seed</p>")
}

func TestContextCancellationTearsDown(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	ctx, cancel := context.WithCancel(context.Background())
	h.engine.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		return h.engine.State() == StateTornDown
	}, time.Second, time.Millisecond)

	h.clock.Advance(window)
	assert.Equal(t, 0, h.surface.Count())
}

func TestFlushRendersImmediately(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	_, ok := h.engine.Document()
	assert.False(t, ok)

	h.engine.SetBuffer(buffer.KindStyle, "b{}")
	h.engine.Flush()
	require.Equal(t, 1, h.surface.Count())
	assert.False(t, h.engine.Pending())

	h.clock.Advance(window)
	assert.Equal(t, 1, h.surface.Count())
}

func TestSeparateBurstsRenderSeparately(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})

	h.engine.SetBuffer(buffer.KindMarkup, "a")
	h.clock.Advance(window)
	h.engine.SetBuffer(buffer.KindMarkup, "b")
	h.clock.Advance(window - time.Millisecond)
	assert.Equal(t, 1, h.surface.Count())
	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 2, h.surface.Count())
}

func TestSurfaceFailureDoesNotAffectEngine(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})
	h.surface.FailWith(fmt.Errorf("surface gone"))

	h.engine.SetBuffer(buffer.KindScript, "throw new Error('x')")
	h.clock.Advance(window)

	assert.Equal(t, 1, h.surface.Count())
	assert.Equal(t, StateRendered, h.engine.State())

	h.engine.SetBuffer(buffer.KindScript, "ok()")
	h.clock.Advance(window)
	assert.Equal(t, 2, h.surface.Count())
}

func TestInvalidKindDoesNotSchedule(t *testing.T) {
	h := newHarness(t, buffer.Exercise{})
	h.engine.SetBuffer(buffer.Kind(9), "x")
	assert.False(t, h.engine.Pending())
	assert.Equal(t, StateIdle, h.engine.State())
}

// countingRenderer records renders and flags any that happen after Close
// returned.
type countingRenderer struct {
	mu     sync.Mutex
	count  int
	closed bool
	leaked bool
}

func (r *countingRenderer) Render(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.closed {
		r.leaked = true
	}
}

func TestNoRenderAfterTeardownWithRealTimers(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := &countingRenderer{}
		e := New(buffer.Exercise{}, r, Options{Delay: time.Millisecond})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.SetBuffer(buffer.KindScript, fmt.Sprint(j))
			}
		}()
		time.Sleep(time.Duration(i%3) * time.Millisecond)
		e.Close()
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		wg.Wait()

		time.Sleep(5 * time.Millisecond)
		r.mu.Lock()
		assert.False(t, r.leaked, "render after teardown in round %d", i)
		r.mu.Unlock()
	}
}

func TestRecomputeAfterTeardownIsLoggedAsError(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelError,
		Format: "json",
		Output: &logs,
	})

	surface := testutils.NewRecordingSurface()
	metrics := monitoring.NewMetrics()
	e := New(buffer.Exercise{Markup: "<p>x</p>"}, sandbox.NewRenderer(surface, sandbox.DefaultPolicy(), nil), Options{
		Clock:   testutils.NewFakeClock(),
		Logger:  logger,
		Metrics: metrics,
	})
	e.Close()

	// A timer callback that lost the race with Close.
	e.recompute()

	assert.Zero(t, surface.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DroppedAfterTeardown))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "Recompute reached torn down engine")
	assert.Contains(t, logs.String(), `"component":"engine"`)
}
