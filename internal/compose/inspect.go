package compose

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Structure is what a browser would see in a composite document.
type Structure struct {
	Styles  []string
	Scripts []string
	// External counts script elements with a src attribute. Their content is
	// not available to the inspector.
	External int
}

// Inspect parses a document the way an HTML5 parser does and returns its
// inline style and script blocks in document order.
func Inspect(document string) (*Structure, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	s := &Structure{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Style:
				s.Styles = append(s.Styles, textContent(n))
			case atom.Script:
				if hasAttr(n, "src") {
					s.External++
				} else {
					s.Scripts = append(s.Scripts, textContent(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return s, nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
