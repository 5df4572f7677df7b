package sandbox

import (
	"context"
	"sync/atomic"

	"github.com/conneroisu/livepane/internal/logging"
)

// Frame is one document delivery to a surface.
type Frame struct {
	Sequence uint64
	Document string
	Policy   Policy
}

// Surface is the capability a renderer is given. Implementations own the
// execution lifecycle of the document and must not block the caller.
type Surface interface {
	Present(ctx context.Context, frame Frame) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, frame Frame) error

// Present implements Surface.
func (f SurfaceFunc) Present(ctx context.Context, frame Frame) error {
	return f(ctx, frame)
}

// Renderer delivers documents to a surface under a fixed policy.
type Renderer struct {
	surface  Surface
	policy   Policy
	logger   logging.Logger
	sequence atomic.Uint64
}

// NewRenderer creates a renderer. A policy that would break isolation is
// replaced by DefaultPolicy.
func NewRenderer(surface Surface, policy Policy, logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("sandbox")

	if !policy.Isolated() {
		logger.Warn(context.Background(), nil, "Sandbox policy rejected, using default",
			"policy", policy.Attribute())
		policy = DefaultPolicy()
	}

	return &Renderer{
		surface: surface,
		policy:  policy,
		logger:  logger,
	}
}

// Policy returns the policy attached to every frame.
func (r *Renderer) Policy() Policy {
	return r.policy
}

// Render hands the document to the surface. Delivery is fire-and-forget:
// surface errors are logged and never returned to the engine.
func (r *Renderer) Render(ctx context.Context, document string) {
	frame := Frame{
		Sequence: r.sequence.Add(1),
		Document: document,
		Policy:   r.policy,
	}

	if err := r.surface.Present(ctx, frame); err != nil {
		r.logger.Warn(ctx, err, "Surface rejected frame",
			"sequence", frame.Sequence,
			"bytes", len(document),
		)
	}
}

// MultiSurface presents every frame to each surface in order. All surfaces
// see the frame even when an earlier one fails; the first error is returned.
func MultiSurface(surfaces ...Surface) Surface {
	return SurfaceFunc(func(ctx context.Context, frame Frame) error {
		var first error
		for _, s := range surfaces {
			if err := s.Present(ctx, frame); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
