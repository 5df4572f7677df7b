package testutils

import (
	"context"
	"sync"

	"github.com/conneroisu/livepane/internal/sandbox"
)

// RecordingSurface is a sandbox.Surface that keeps every frame it is given.
type RecordingSurface struct {
	mutex  sync.Mutex
	frames []sandbox.Frame
	err    error
}

// NewRecordingSurface creates an empty recording surface.
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{}
}

// Present implements sandbox.Surface.
func (s *RecordingSurface) Present(_ context.Context, frame sandbox.Frame) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.frames = append(s.frames, frame)
	return s.err
}

// FailWith makes later Present calls return err after recording the frame.
func (s *RecordingSurface) FailWith(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.err = err
}

// Frames returns a copy of the recorded frames.
func (s *RecordingSurface) Frames() []sandbox.Frame {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]sandbox.Frame(nil), s.frames...)
}

// Count returns the number of recorded frames.
func (s *RecordingSurface) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.frames)
}

// Last returns the most recent frame.
func (s *RecordingSurface) Last() (sandbox.Frame, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.frames) == 0 {
		return sandbox.Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}
