package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/medicsearch/rcpgest/internal/element"
)

func TestMarkdownParser_HeadingTokens(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

## Section B
`
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Title != "Title" {
		t.Errorf("expected title from first h1, got %q", src.Title)
	}
	if src.Format != "markdown" {
		t.Errorf("expected format markdown, got %q", src.Format)
	}

	want := []struct {
		tag, class, text string
	}{
		{"h1", "Heading1", "Title"},
		{"p", "", "Intro text."},
		{"h2", "Heading2", "Section A"},
		{"p", "", "Section A content."},
		{"h3", "Heading3", "Subsection A1"},
		{"h2", "Heading2", "Section B"},
	}
	if len(src.Nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d: %+v", len(want), len(src.Nodes), src.Nodes)
	}
	for i, w := range want {
		n := src.Nodes[i]
		if n.Tag != w.tag || n.Text != w.text {
			t.Errorf("node[%d]: expected %s %q, got %s %q", i, w.tag, w.text, n.Tag, n.Text)
		}
		if w.class != "" && !n.HasClass(w.class) {
			t.Errorf("node[%d]: expected class %s, got %v", i, w.class, n.Classes)
		}
		if n.ID != i+1 {
			t.Errorf("node[%d]: expected ID %d, got %d", i, i+1, n.ID)
		}
	}
}

func TestMarkdownParser_Table(t *testing.T) {
	input := "| Poids | Dose |\n|---|---|\n| < 50 kg | 500 mg |\n| > 50 kg | 1 g |\n"
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "t.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Nodes) != 1 || src.Nodes[0].Table == nil {
		t.Fatalf("expected one table node, got %+v", src.Nodes)
	}
	tbl := src.Nodes[0].Table
	if !reflect.DeepEqual(tbl.Header, []string{"Poids", "Dose"}) {
		t.Errorf("unexpected header %v", tbl.Header)
	}
	wantRows := [][]string{{"Poids", "Dose"}, {"< 50 kg", "500 mg"}, {"> 50 kg", "1 g"}}
	if !reflect.DeepEqual(tbl.Rows, wantRows) {
		t.Errorf("expected rows %v, got %v", wantRows, tbl.Rows)
	}
}

func TestMarkdownParser_ListsAndEmphasis(t *testing.T) {
	input := "- premier\n- **second**\n\n1. un\n2. *deux*\n"
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "l.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %+v", src.Nodes)
	}
	for i, parent := range []string{"ul", "ul", "ol", "ol"} {
		if src.Nodes[i].Tag != "li" || src.Nodes[i].ParentTag != parent {
			t.Errorf("node[%d]: expected li in %s, got %s in %s", i, parent, src.Nodes[i].Tag, src.Nodes[i].ParentTag)
		}
	}
	if src.Nodes[1].Emphasis&element.EmphBold == 0 {
		t.Error("expected bold emphasis on second item")
	}
	if src.Nodes[3].Emphasis&element.EmphItalic == 0 {
		t.Error("expected italic emphasis on last item")
	}
	if src.Nodes[0].Emphasis != 0 {
		t.Error("expected no emphasis on first item")
	}
}

func TestMarkdownParser_CodeBlockKept(t *testing.T) {
	input := "## Endpoints\n\n```\nGET /api/medicines\n```\n\nMore text after code.\n"
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %+v", src.Nodes)
	}
	if src.Nodes[1].Text != "GET /api/medicines" {
		t.Errorf("expected code block text, got %q", src.Nodes[1].Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Nodes) != 0 {
		t.Errorf("expected 0 nodes for empty input, got %d", len(src.Nodes))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		src, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if src.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, src.Title)
		}
	}
}
