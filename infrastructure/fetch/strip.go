package fetch

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Img:      true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Template: true,
}

// VisibleText parses HTML and returns its readable text with whitespace
// collapsed to single spaces.
func VisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return CollapseWhitespace(b.String()), nil
}

// CollapseWhitespace trims s and replaces every whitespace run with a single
// space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
