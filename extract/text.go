package extract

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Parse parses a raw page, converting it to UTF-8 first if the Content-Type
// header or a <meta> tag names another encoding.
// An empty page parses to an empty document.
func Parse(raw []byte, contentType string) (*html.Node, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err == io.EOF {
		// nothing to sniff
		return html.Parse(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, err
	}
	return html.Parse(r)
}

// GetAttr retrieves the value of an attribute on a node.
// Returns empty string if attribute doesn't exist.
func GetAttr(n *html.Node, attr string) string {
	for _, a := range n.Attr {
		if a.Key == attr {
			return a.Val
		}
	}
	return ""
}

// textChunks collects the trimmed, non-empty text nodes under n, in document order.
// Comments and script/style contents are ignored.
func textChunks(n *html.Node) []string {
	chunks := []string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				chunks = append(chunks, s)
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		case html.CommentNode:
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return chunks
}

// textLines returns the text under n as a list of trimmed, non-empty lines.
// Separate text nodes always start a new line, so <br> and block elements
// act as line breaks.
func textLines(n *html.Node) []string {
	lines := []string{}
	for _, chunk := range textChunks(n) {
		for _, l := range strings.Split(chunk, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}
	return lines
}
