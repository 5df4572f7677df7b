// Package buffer holds the three editable source buffers of a live preview:
// markup, style and script.
//
// A Store is seeded once from an Exercise and then mutated only through
// SetBuffer. Every mutation notifies the store's change hook, which the
// engine wires to its debounce scheduler. Reads go through Snapshot so a
// consumer always sees one consistent set of all three buffers.
package buffer

import (
	"fmt"
	"strings"
	"sync"
)

// Kind identifies one of the three source buffers.
type Kind int

const (
	KindMarkup Kind = iota
	KindStyle
	KindScript
)

// Kinds lists every buffer kind in composition order.
var Kinds = []Kind{KindMarkup, KindStyle, KindScript}

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindStyle:
		return "style"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k >= KindMarkup && k <= KindScript
}

// ParseKind maps a wire or file name to a Kind. Common aliases are accepted
// so editors can send "html", "css" or "js".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markup", "html":
		return KindMarkup, nil
	case "style", "css":
		return KindStyle, nil
	case "script", "js", "javascript":
		return KindScript, nil
	default:
		return 0, fmt.Errorf("unknown buffer kind %q", s)
	}
}

// Exercise is the immutable seed a store is created from. It is also the
// shape of a snapshot.
type Exercise struct {
	Markup string `json:"markup" yaml:"markup"`
	Style  string `json:"style" yaml:"style"`
	Script string `json:"script" yaml:"script"`
}

// Get returns the text of the given kind.
func (e Exercise) Get(kind Kind) string {
	switch kind {
	case KindMarkup:
		return e.Markup
	case KindStyle:
		return e.Style
	case KindScript:
		return e.Script
	default:
		return ""
	}
}

// ChangeHook is invoked after every SetBuffer call.
type ChangeHook func(kind Kind)

// Store holds the current value of each buffer.
type Store struct {
	mu      sync.RWMutex
	buffers [3]string
	onEdit  ChangeHook
}

// NewStore creates a store seeded from the exercise. onEdit may be nil.
func NewStore(seed Exercise, onEdit ChangeHook) *Store {
	s := &Store{onEdit: onEdit}
	for _, kind := range Kinds {
		s.buffers[kind] = seed.Get(kind)
	}
	return s
}

// SetBuffer replaces the text of one buffer and notifies the change hook.
// Text is free-form user code and is never validated. An invalid kind is
// ignored.
func (s *Store) SetBuffer(kind Kind, text string) {
	if !kind.Valid() {
		return
	}

	s.mu.Lock()
	s.buffers[kind] = text
	hook := s.onEdit
	s.mu.Unlock()

	if hook != nil {
		hook(kind)
	}
}

// Get returns the current text of one buffer.
func (s *Store) Get(kind Kind) string {
	if !kind.Valid() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffers[kind]
}

// Snapshot returns all three buffers as read under a single lock.
func (s *Store) Snapshot() Exercise {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Exercise{
		Markup: s.buffers[KindMarkup],
		Style:  s.buffers[KindStyle],
		Script: s.buffers[KindScript],
	}
}
