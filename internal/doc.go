// Package internal contains the implementation packages of livepane.
//
// # Package Organization
//
// The preview pipeline, leaf first:
//
//   - buffer: the three source buffers (markup, style, script) and the seed exercise type
//   - debounce: single-timer scheduler that coalesces bursts of edits
//   - compose: pure merge of the buffers into one HTML document
//   - sandbox: capability policy and the renderer that hands documents to a surface
//   - engine: owns one of each of the above and runs edit, schedule, compose, render
//
// Around it:
//
//   - sandbox/headless: surface that runs script blocks in a goja VM under a deadline
//   - server: host page, websocket sessions (one engine each) and preview routes
//   - watcher: fsnotify watch of an exercise directory feeding an engine
//   - exercise: loading seeds from directories, YAML or JSON
//   - config, logging, errors, monitoring, validation, version: ambient support
//   - testutils: fake clock, recording surface and exercise fixtures for tests
//
// # Concurrency
//
// Each engine serialises edits, recomputes and teardown behind one mutex.
// Surfaces are called with that mutex held and must not block; the websocket
// and headless surfaces hand work to their own goroutines.
package internal
