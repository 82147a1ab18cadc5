package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/medicsearch/rcpgest/internal/element"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	out := &Source{Title: baseTitle(filename), Format: "markdown"}
	w := &mdWalker{src: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, "")
	}
	out.Nodes = w.seq.nodes
	if w.title != "" {
		out.Title = w.title
	}
	return out, nil
}

type mdWalker struct {
	src   []byte
	seq   nodeSeq
	title string
}

// block emits one top-level or nested block. listTag is "ul" or "ol" for
// blocks inside a list item.
func (w *mdWalker) block(n ast.Node, listTag string) {
	switch node := n.(type) {
	case *ast.Heading:
		t := inlineText(node, w.src)
		if node.Level == 1 && w.title == "" {
			w.title = t
		}
		w.seq.emit(element.Node{
			Tag:      fmt.Sprintf("h%d", node.Level),
			Classes:  []string{fmt.Sprintf("Heading%d", node.Level)},
			Text:     t,
			Emphasis: inlineEmphasis(node),
		})

	case *ast.Paragraph, *ast.TextBlock:
		t := inlineText(node, w.src)
		if t == "" {
			return
		}
		nd := element.Node{Tag: "p", Text: t, Emphasis: inlineEmphasis(node)}
		if listTag != "" {
			nd.Tag = "li"
			nd.ParentTag = listTag
		}
		w.seq.emit(nd)

	case *ast.List:
		tag := "ul"
		if node.IsOrdered() {
			tag = "ol"
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				w.block(c, tag)
			}
		}

	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, listTag)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		t := strings.TrimSpace(string(blockLines(n, w.src)))
		if t != "" {
			w.seq.emit(element.Node{Tag: "pre", Text: t})
		}

	case *east.Table:
		w.seq.emit(element.Node{Tag: "table", Table: w.table(node)})
	}
}

func (w *mdWalker) table(t *east.Table) *element.TableNode {
	out := &element.TableNode{}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*east.TableCell); ok {
				cells = append(cells, inlineText(cell, w.src))
			}
		}
		if _, ok := row.(*east.TableHeader); ok {
			out.Header = cells
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func blockLines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.Bytes()
}

// inlineText concatenates the text of n's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.URL(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// inlineEmphasis reports emphasis spans inside n: level 2 is bold, level 1
// italic.
func inlineEmphasis(n ast.Node) element.Emphasis {
	var e element.Emphasis
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if em, ok := c.(*ast.Emphasis); ok && entering {
			if em.Level >= 2 {
				e |= element.EmphBold
			} else {
				e |= element.EmphItalic
			}
		}
		return ast.WalkContinue, nil
	})
	return e
}
