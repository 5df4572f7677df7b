// Package exercise loads the seed buffers a preview starts from.
//
// A seed is either a YAML or JSON file with markup, style and script keys,
// or a directory holding one file per buffer (index.html, style.css and
// script.js, with a few common aliases).
package exercise

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/livepane/internal/buffer"
	lperrors "github.com/conneroisu/livepane/internal/errors"
)

//go:embed default.yaml
var defaultSeed []byte

// fileNames maps directory entries to buffers. The first existing name wins.
var fileNames = map[buffer.Kind][]string{
	buffer.KindMarkup: {"index.html", "markup.html", "body.html"},
	buffer.KindStyle:  {"style.css", "styles.css", "main.css"},
	buffer.KindScript: {"script.js", "main.js", "index.js"},
}

// Default returns the built-in starter exercise.
func Default() buffer.Exercise {
	e, err := Parse(defaultSeed, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded default exercise is invalid: %v", err))
	}
	return e
}

// Load reads a seed from a file or directory. An empty path returns Default.
func Load(path string) (buffer.Exercise, error) {
	if path == "" {
		return Default(), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return buffer.Exercise{}, lperrors.NewIOError(lperrors.ErrCodeExerciseNotFound,
			"exercise not found", err).WithContext("path", path)
	}
	if info.IsDir() {
		return LoadDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return buffer.Exercise{}, lperrors.NewIOError(lperrors.ErrCodeExerciseNotFound,
			"reading exercise", err).WithContext("path", path)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a seed file body. ext selects the format.
func Parse(data []byte, ext string) (buffer.Exercise, error) {
	var e buffer.Exercise
	var err error

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &e)
	case ".json":
		err = json.Unmarshal(data, &e)
	default:
		return e, lperrors.NewValidationError(lperrors.ErrCodeExerciseInvalid,
			fmt.Sprintf("unsupported exercise format %q", ext))
	}
	if err != nil {
		return buffer.Exercise{}, &lperrors.LivepaneError{
			Type:    lperrors.ErrorTypeValidation,
			Code:    lperrors.ErrCodeExerciseInvalid,
			Message: "decoding exercise",
			Cause:   err,
		}
	}
	return e, nil
}

// LoadDir reads one file per buffer from dir. Missing files leave their
// buffer empty; a directory with none of them is an error.
func LoadDir(dir string) (buffer.Exercise, error) {
	var e buffer.Exercise
	found := 0

	for _, kind := range buffer.Kinds {
		path, ok := BufferFile(dir, kind)
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return buffer.Exercise{}, lperrors.NewIOError(lperrors.ErrCodeExerciseNotFound,
				"reading buffer file", err).WithContext("path", path)
		}
		found++

		switch kind {
		case buffer.KindMarkup:
			e.Markup = string(data)
		case buffer.KindStyle:
			e.Style = string(data)
		case buffer.KindScript:
			e.Script = string(data)
		}
	}

	if found == 0 {
		return e, lperrors.NewValidationError(lperrors.ErrCodeExerciseInvalid,
			"directory has no index.html, style.css or script.js").WithContext("path", dir)
	}
	return e, nil
}

// BufferFile returns the existing file in dir that holds the given buffer.
func BufferFile(dir string, kind buffer.Kind) (string, bool) {
	for _, name := range fileNames[kind] {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// KindForFile maps a file name to the buffer it feeds.
func KindForFile(path string) (buffer.Kind, bool) {
	kind, _, ok := FileRank(path)
	return kind, ok
}

// FileRank maps a file name to its buffer and its position among that
// buffer's names. When several exist, BufferFile picks the lowest rank.
func FileRank(path string) (buffer.Kind, int, bool) {
	base := strings.ToLower(filepath.Base(path))
	for kind, names := range fileNames {
		for rank, name := range names {
			if base == name {
				return kind, rank, true
			}
		}
	}
	return 0, 0, false
}
