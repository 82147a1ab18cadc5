package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/medicsearch/rcpgest/internal/element"
)

// HTMLParser handles HTML files. Pages are decoded with the charset declared
// in the markup, falling back to windows-1252 sniffing.
type HTMLParser struct {
	// ContentType is the Content-Type header the page was served with, if any.
	ContentType string
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	utf8Reader, err := charset.NewReader(bytes.NewReader(data), p.ContentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	src := &Source{
		Title:  baseTitle(filename),
		Format: "html",
		HTML:   doc,
	}
	if title := findTitle(doc); title != "" {
		src.Title = title
	}

	w := &htmlWalker{}
	if body := findElement(doc, atom.Body); body != nil {
		w.walk(body, false)
	} else {
		w.walk(doc, false)
	}
	src.Nodes = w.seq.nodes
	return src, nil
}

type htmlWalker struct {
	seq nodeSeq
}

// walk emits block nodes in document order. Once a block is emitted its
// descendants are consumed and never visited again. anchorsDone is set inside
// subtrees whose anchors were already hoisted ahead of their block.
func (w *htmlWalker) walk(n *html.Node, anchorsDone bool) {
	if n.Type == html.ElementNode {
		if skipElement(n) {
			return
		}
		switch n.DataAtom {
		case atom.A:
			if !anchorsDone {
				w.emitAnchor(n)
			}
		case atom.Table:
			w.hoistAnchors(n, anchorsDone)
			w.emitTable(n)
			return
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.hoistAnchors(n, anchorsDone)
			w.emitBlock(n, textContent(n))
			return
		case atom.Li:
			w.hoistAnchors(n, anchorsDone)
			w.emitListItem(n)
			return
		case atom.Div:
			if !hasBlockDescendant(n) {
				w.hoistAnchors(n, anchorsDone)
				w.emitBlock(n, textContent(n))
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, anchorsDone)
	}
}

func (w *htmlWalker) emitAnchor(n *html.Node) {
	name := attr(n, "name")
	if name == "" {
		name = attr(n, "id")
	}
	if name == "" {
		return
	}
	w.seq.emit(element.Node{Tag: "a", Anchor: name, Classes: classes(n), Text: textContent(n)})
}

// hoistAnchors emits the named anchors nested inside a block ahead of the
// block itself, so boundary markers keep their position in the stream.
func (w *htmlWalker) hoistAnchors(n *html.Node, done bool) {
	if done {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || skipElement(c) {
			continue
		}
		if c.DataAtom == atom.A {
			w.emitAnchor(c)
		}
		w.hoistAnchors(c, false)
	}
}

func (w *htmlWalker) emitBlock(n *html.Node, text string) {
	node := element.Node{
		Tag:      n.Data,
		Classes:  classes(n),
		Style:    attr(n, "style"),
		Text:     text,
		Emphasis: emphasisWithin(n),
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		node.ParentTag = n.Parent.Data
	}
	if lvl := htmlHeadingLevel(n.DataAtom); lvl > 0 {
		node.Classes = append(node.Classes, fmt.Sprintf("Heading%d", lvl))
	}
	w.seq.emit(node)
}

// emitListItem emits the item's own text, then walks nested blocks such as
// sub-lists as their own nodes.
func (w *htmlWalker) emitListItem(n *html.Node) {
	var buf strings.Builder
	var nested []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (isBlock(c.DataAtom) || hasBlockDescendant(c)) {
			nested = append(nested, c)
			continue
		}
		collectText(c, &buf)
	}
	if text := strings.TrimSpace(buf.String()); text != "" {
		w.emitBlock(n, text)
	}
	for _, c := range nested {
		w.walk(c, true)
	}
}

func (w *htmlWalker) emitTable(n *html.Node) {
	t := &element.TableNode{}
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type != html.ElementNode {
			return
		}
		switch c.DataAtom {
		case atom.Table:
			if c != n {
				return // nested tables stay inside their cell text
			}
		case atom.Caption:
			t.Caption = textContent(c)
			return
		case atom.Thead:
			var header []string
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if r.DataAtom == atom.Tr {
					for cell := r.FirstChild; cell != nil; cell = cell.NextSibling {
						if cell.DataAtom == atom.Th {
							header = append(header, textContent(cell))
						}
					}
				}
			}
			if len(header) > 0 {
				t.Header = header
			}
		case atom.Tr:
			var row []string
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.DataAtom == atom.Td || cell.DataAtom == atom.Th {
					row = append(row, textContent(cell))
				}
			}
			t.Rows = append(t.Rows, row)
			return
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)
	w.seq.emit(element.Node{Tag: "table", Classes: classes(n), Table: t})
}

func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return true
	}
	if _, ok := attrOK(n, "hidden"); ok {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Table, atom.Ul, atom.Ol, atom.Li,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote:
		return true
	}
	return false
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (isBlock(c.DataAtom) || hasBlockDescendant(c)) {
			return true
		}
	}
	return false
}

func emphasisWithin(n *html.Node) element.Emphasis {
	var e element.Emphasis
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			switch ch.DataAtom {
			case atom.Strong, atom.B:
				e |= element.EmphBold
			case atom.Em, atom.I:
				e |= element.EmphItalic
			case atom.U:
				e |= element.EmphUnderline
			}
			visit(ch)
		}
	}
	visit(n)
	return e
}

func htmlHeadingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	collectText(n, &buf)
	return strings.TrimSpace(buf.String())
}

func collectText(n *html.Node, buf *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipElement(n) {
			return
		}
		if n.DataAtom == atom.Br {
			buf.WriteByte(' ')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func findTitle(n *html.Node) string {
	if t := findElement(n, atom.Title); t != nil {
		return element.NormalizeSpace(textContent(t))
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
