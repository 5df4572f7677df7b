//go:build property

package compose

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/livepane/internal/buffer"
)

// TestComposeProperties validates purity and ordering of composition
func TestComposeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("compose is pure", prop.ForAll(
		func(m, s, j string) bool {
			return Compose(m, s, j) == Compose(m, s, j)
		},
		gen.AnyString(), gen.AnyString(), gen.AnyString(),
	))

	// Alphanumeric buffers cannot be confused with the document skeleton, so
	// their first occurrences must follow markup, style, script order.
	properties.Property("buffers appear in markup, style, script order", prop.ForAll(
		func(m, s, j string) bool {
			m, s, j = "M"+m, "S"+s, "J"+j
			out := Compose(m, s, j)
			mi := strings.Index(out, "\n"+m+"\n<style>")
			si := strings.Index(out, "<style>\n"+s+"\n</style>")
			ji := strings.Index(out, "<script>\n"+j+"\n</script>")
			return mi >= 0 && si > mi && ji > si
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
	))

	properties.Property("escaped script never closes its block", prop.ForAll(
		func(prefix, suffix string) bool {
			out := Compose("", "", prefix+"</script>"+suffix)
			s, err := Inspect(out)
			return err == nil && len(s.Scripts) == 1 && strings.HasSuffix(out, "</script>\n</body>\n</html>\n")
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.Property("escaped script with a comment opener keeps its text", prop.ForAll(
		func(prefix, suffix string) bool {
			script := prefix + "<!--<script>" + suffix
			s, err := Inspect(Compose("", "", script))
			return err == nil && len(s.Scripts) == 1 &&
				s.Scripts[0] == "\n"+EscapeBoundary(script, buffer.KindScript)+"\n"
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
