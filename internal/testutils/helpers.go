package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/livepane/internal/buffer"
)

// ExerciseFiles maps each buffer to the file name a directory exercise uses.
var ExerciseFiles = map[buffer.Kind]string{
	buffer.KindMarkup: "index.html",
	buffer.KindStyle:  "style.css",
	buffer.KindScript: "script.js",
}

// CreateExerciseDir writes e into a fresh temporary directory, one file per
// buffer, and returns the directory.
func CreateExerciseDir(t *testing.T, e buffer.Exercise) string {
	t.Helper()

	dir := t.TempDir()
	WriteExercise(t, dir, e)
	return dir
}

// WriteExercise writes every buffer of e into dir.
func WriteExercise(t *testing.T, dir string, e buffer.Exercise) {
	t.Helper()

	for _, kind := range buffer.Kinds {
		WriteBuffer(t, dir, kind, e.Get(kind))
	}
}

// WriteBuffer writes one buffer file into dir and returns its path.
func WriteBuffer(t *testing.T, dir string, kind buffer.Kind, text string) string {
	t.Helper()

	path := filepath.Join(dir, ExerciseFiles[kind])
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}
