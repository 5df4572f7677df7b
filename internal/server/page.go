package server

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/sandbox"
)

// PageData is what the host page needs to start a session.
type PageData struct {
	Seed   buffer.Exercise
	Policy sandbox.Policy
}

// KindTitle returns the editor label for a buffer kind.
func KindTitle(kind buffer.Kind) string {
	return cases.Title(language.English).String(kind.String())
}

// HostPage renders the editor page: one textarea per buffer, the sandboxed
// preview iframe and a console for headless diagnostics.
func HostPage(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(pageHead)
		b.WriteString(`<main class="panes">` + "\n")
		for _, kind := range buffer.Kinds {
			name := templ.EscapeString(kind.String())
			b.WriteString(`<section class="editor">` + "\n")
			b.WriteString(`<label for="buffer-` + name + `">` + templ.EscapeString(KindTitle(kind)) + "</label>\n")
			b.WriteString(`<textarea id="buffer-` + name + `" data-kind="` + name + `" spellcheck="false">`)
			b.WriteString(templ.EscapeString(data.Seed.Get(kind)))
			b.WriteString("</textarea>\n</section>\n")
		}
		b.WriteString(`<section class="output">` + "\n")
		b.WriteString(`<iframe id="preview" title="Preview" sandbox="` + templ.EscapeString(data.Policy.Attribute()) + `"></iframe>` + "\n")
		b.WriteString(`<div class="bar"><span id="status">connecting</span> <a id="open" target="_blank" rel="noopener">open</a></div>` + "\n")
		b.WriteString(`<pre id="console"></pre>` + "\n")
		b.WriteString("</section>\n</main>\n")
		b.WriteString(pageScript)
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>livepane</title>
<style>
body { margin: 0; font-family: system-ui, -apple-system, sans-serif; background: #f5f5f5; }
.panes { display: grid; grid-template-columns: repeat(3, 1fr) 2fr; gap: 8px; height: 100vh; padding: 8px; box-sizing: border-box; }
.editor { display: flex; flex-direction: column; }
.editor label { font-weight: bold; color: #007acc; padding: 4px 0; }
.editor textarea { flex: 1; font-family: ui-monospace, monospace; font-size: 13px; resize: none; }
.output { display: flex; flex-direction: column; }
.output iframe { flex: 1; border: 1px solid #ddd; background: white; }
.bar { font-size: 12px; color: #666; padding: 4px 0; }
#console { height: 8em; overflow: auto; margin: 0; background: #1e1e1e; color: #ddd; font-size: 12px; }
</style>
</head>
<body>
`

const pageScript = `<script>
(function () {
  var frame = document.getElementById("preview");
  var status = document.getElementById("status");
  var open = document.getElementById("open");
  var output = document.getElementById("console");
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/ws");

  ws.onopen = function () { status.textContent = "connected"; };
  ws.onclose = function () { status.textContent = "disconnected"; };
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    switch (msg.type) {
    case "session":
      open.href = "/preview/" + msg.session;
      break;
    case "render":
      frame.setAttribute("sandbox", msg.policy);
      frame.srcdoc = msg.content;
      output.textContent = "";
      break;
    case "diagnostics":
      (msg.console || []).forEach(function (e) { output.textContent += "[" + e.level + "] " + e.message + "\n"; });
      (msg.errors || []).forEach(function (e) { output.textContent += "[uncaught] " + e + "\n"; });
      if (msg.interrupted) { output.textContent += "[interrupted]\n"; }
      break;
    case "error":
      status.textContent = msg.code + ": " + msg.message;
      break;
    }
  };

  document.querySelectorAll("textarea[data-kind]").forEach(function (area) {
    area.addEventListener("input", function () {
      if (ws.readyState === WebSocket.OPEN) {
        ws.send(JSON.stringify({ type: "edit", kind: area.dataset.kind, text: area.value }));
      }
    });
  });
})();
</script>
`
