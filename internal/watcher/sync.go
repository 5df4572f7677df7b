package watcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/livepane/internal/buffer"
	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/exercise"
)

// BufferSetter receives buffer edits. *engine.Engine satisfies it.
type BufferSetter interface {
	SetBuffer(kind buffer.Kind, text string)
}

// SyncBuffers returns a handler that copies buffer files into the target.
// Each buffer follows the file exercise.BufferFile resolves to, so a change
// to a lower ranked alias is ignored while a preferred file exists. When the
// followed file goes away the next existing alias takes over, and the buffer
// is emptied only when none is left. Files larger than maxBytes are rejected
// and leave the buffer untouched; maxBytes <= 0 disables the check.
func SyncBuffers(target BufferSetter, maxBytes int) ChangeHandler {
	return func(event ChangeEvent) error {
		kind, rank, ok := exercise.FileRank(event.Path)
		if !ok {
			return nil
		}

		active, found := exercise.BufferFile(filepath.Dir(event.Path), kind)
		if !found {
			target.SetBuffer(kind, "")
			return nil
		}
		if _, activeRank, _ := exercise.FileRank(active); activeRank < rank {
			return nil
		}

		data, err := os.ReadFile(active)
		if err != nil {
			if os.IsNotExist(err) {
				// Removed after resolution; its own event resolves again.
				return nil
			}
			return fmt.Errorf("reading %s buffer: %w", kind, err)
		}
		if maxBytes > 0 && len(data) > maxBytes {
			return lperrors.NewValidationError(lperrors.ErrCodeBufferTooLarge,
				"buffer file exceeds size limit").
				WithContext("path", active).
				WithContext("bytes", len(data)).
				WithContext("limit", maxBytes)
		}

		target.SetBuffer(kind, string(data))
		return nil
	}
}
