package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
)

// FileSurface writes every frame to disk. DocumentPath receives the raw
// composite; FramePath receives a small page that loads the composite into
// an iframe carrying the frame's sandbox policy, which is the file to open
// in a browser. Either path may be empty. When Echo is set the raw document
// is also copied there.
type FileSurface struct {
	DocumentPath string
	FramePath    string
	Echo         io.Writer
}

// NewFileSurface writes document.html and preview.html under dir.
func NewFileSurface(dir string) *FileSurface {
	return &FileSurface{
		DocumentPath: filepath.Join(dir, "document.html"),
		FramePath:    filepath.Join(dir, "preview.html"),
	}
}

// Present implements Surface.
func (s *FileSurface) Present(_ context.Context, frame Frame) error {
	if s.DocumentPath != "" {
		if err := writeFileAtomic(s.DocumentPath, []byte(frame.Document)); err != nil {
			return err
		}
	}
	if s.FramePath != "" {
		if err := writeFileAtomic(s.FramePath, []byte(FramePage(frame))); err != nil {
			return err
		}
	}
	if s.Echo != nil {
		if _, err := io.WriteString(s.Echo, frame.Document); err != nil {
			return fmt.Errorf("echoing frame %d: %w", frame.Sequence, err)
		}
	}
	return nil
}

// FramePage returns a standalone page that shows the frame's document in a
// sandboxed iframe through srcdoc.
func FramePage(frame Frame) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>livepane preview</title>\n")
	b.WriteString("<style>html,body,iframe{margin:0;border:0;width:100%;height:100%;}</style>\n")
	b.WriteString("</head>\n<body>\n<iframe sandbox=\"")
	b.WriteString(templ.EscapeString(frame.Policy.Attribute()))
	b.WriteString("\" srcdoc=\"")
	b.WriteString(templ.EscapeString(frame.Document))
	b.WriteString("\"></iframe>\n</body>\n</html>\n")
	return b.String()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".livepane-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
