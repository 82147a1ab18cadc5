package parser

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/medicsearch/rcpgest/internal/element"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Source, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	tmp, err := os.CreateTemp("", "rcpgest-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	src := &Source{Title: baseTitle(filename), Format: "docx"}
	var seq nodeSeq
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if n, ok := docxParagraphNode(it); ok {
				seq.emit(n)
			}
		case *docx.Table:
			seq.emit(element.Node{Tag: "table", Table: docxTable(it)})
		}
	}
	src.Nodes = seq.nodes
	return src, nil
}

// docxHeadingStyle matches English and French built-in heading styles:
// "Heading1", "heading 2", "Titre3".
var docxHeadingStyle = regexp.MustCompile(`(?i)^(?:heading|titre)\s*(\d)$`)

func docxParagraphNode(para *docx.Paragraph) (element.Node, bool) {
	text, emph := docxParagraphText(para)
	if text == "" {
		return element.Node{}, false
	}
	n := element.Node{Tag: "p", Text: text, Emphasis: emph}

	props := para.Properties
	if props == nil {
		return n, true
	}
	if props.Style != nil && props.Style.Val != "" {
		style := props.Style.Val
		n.Classes = append(n.Classes, style)
		if m := docxHeadingStyle.FindStringSubmatch(style); m != nil {
			lvl, _ := strconv.Atoi(m[1])
			n.Classes = append(n.Classes, fmt.Sprintf("Heading%d", lvl))
		}
	}
	if props.Justification != nil && props.Justification.Val == "center" {
		n.Style = "text-align:center"
	}
	if props.NumProperties != nil {
		n.Tag = "li"
		n.ParentTag = "ol"
		if props.Style != nil && docxBulletStyle(props.Style.Val) {
			n.ParentTag = "ul"
		}
	}
	return n, true
}

func docxBulletStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.Contains(s, "bullet") || strings.Contains(s, "puce")
}

// docxParagraphText returns the paragraph text and the emphasis carried by
// any of its runs.
func docxParagraphText(para *docx.Paragraph) (string, element.Emphasis) {
	var buf strings.Builder
	var emph element.Emphasis
	addRun := func(run *docx.Run) {
		wrote := false
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
				wrote = wrote || strings.TrimSpace(t.Text) != ""
			}
		}
		if !wrote || run.RunProperties == nil {
			return
		}
		rp := run.RunProperties
		if rp.Bold != nil {
			emph |= element.EmphBold
		}
		if rp.Italic != nil {
			emph |= element.EmphItalic
		}
		if rp.Underline != nil && rp.Underline.Val != "none" {
			emph |= element.EmphUnderline
		}
	}
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			addRun(c)
		case *docx.Hyperlink:
			addRun(&c.Run)
		}
	}
	return strings.TrimSpace(buf.String()), emph
}

func docxTable(t *docx.Table) *element.TableNode {
	out := &element.TableNode{}
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if text, _ := docxParagraphText(para); text != "" {
					parts = append(parts, text)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}
