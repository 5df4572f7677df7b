// Package compose merges the three source buffers into one runnable HTML
// document.
//
// Composition is pure: the same inputs always give the same document. The
// markup becomes body content, followed by a style block and then a script
// block. Buffers are embedded verbatim apart from the optional boundary
// escaping, which only rewrites sequences that would close the surrounding
// style or script element early.
package compose

import (
	"regexp"
	"strings"

	"github.com/conneroisu/livepane/internal/buffer"
)

var (
	scriptClose = regexp.MustCompile(`(?i)</(script)`)
	styleClose  = regexp.MustCompile(`(?i)</(style)`)
)

// Composer builds composite documents.
type Composer struct {
	// EscapeBoundaries rewrites "</script" inside the script buffer and
	// "</style" inside the style buffer as "<\/script" and "<\/style" so user
	// text cannot terminate its own block. "<!--" in the script buffer becomes
	// "<\!--" so the parser never enters the double-escaped state, where the
	// block's own closing tag would be ignored.
	EscapeBoundaries bool
}

// Default is the composer used by Compose.
var Default = Composer{EscapeBoundaries: true}

// Compose merges markup, style and script using the default composer.
func Compose(markup, style, script string) string {
	return Default.Compose(markup, style, script)
}

// ComposeExercise composes a buffer snapshot.
func (c Composer) ComposeExercise(e buffer.Exercise) string {
	return c.Compose(e.Markup, e.Style, e.Script)
}

// Compose merges markup, style and script into one document.
func (c Composer) Compose(markup, style, script string) string {
	if c.EscapeBoundaries {
		style = EscapeBoundary(style, buffer.KindStyle)
		script = EscapeBoundary(script, buffer.KindScript)
	}

	var b strings.Builder
	b.Grow(len(markup) + len(style) + len(script) + len(docHead) + len(docTail) + 64)

	b.WriteString(docHead)
	b.WriteString(markup)
	b.WriteString("\n<style>\n")
	b.WriteString(style)
	b.WriteString("\n</style>\n<script>\n")
	b.WriteString(script)
	b.WriteString("\n</script>\n")
	b.WriteString(docTail)

	return b.String()
}

// EscapeBoundary rewrites the sequences that would move the end of the block
// holding a buffer of the given kind. Markup is returned unchanged.
func EscapeBoundary(text string, kind buffer.Kind) string {
	switch kind {
	case buffer.KindScript:
		text = strings.ReplaceAll(text, "<!--", `<\!--`)
		return scriptClose.ReplaceAllString(text, `<\/$1`)
	case buffer.KindStyle:
		return styleClose.ReplaceAllString(text, `<\/$1`)
	default:
		return text
	}
}

const docHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
</head>
<body>
`

const docTail = `</body>
</html>
`
