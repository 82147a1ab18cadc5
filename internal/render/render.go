// Package render turns a structured document into Markdown or sanitized
// HTML for display.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

const maxHeadingDepth = 6

var (
	md     = goldmark.New(goldmark.WithExtensions(extension.Table))
	policy = bluemonday.UGCPolicy()

	// Line starts that Markdown would read as block syntax.
	blockPrefix = regexp.MustCompile(`^(\d+)([.)])(\s)`)
)

// Markdown renders the section forest. Heading depth follows nesting depth,
// capped at h6.
func Markdown(doc doctree.Document) string {
	var b strings.Builder
	var walk func(sections []doctree.Section, depth int)
	walk = func(sections []doctree.Section, depth int) {
		for i := range sections {
			s := &sections[i]
			level := min(depth, maxHeadingDepth)
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), inline(s.Title))
			writeContent(&b, s.Content)
			walk(s.Subsections, depth+1)
		}
	}
	walk(doc.Roots, 1)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// HTML renders the document to HTML and sanitizes it with a UGC policy.
func HTML(doc doctree.Document) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

func writeContent(b *strings.Builder, items []doctree.ContentItem) {
	inList := false
	for _, it := range items {
		switch it.Kind {
		case doctree.KindText:
			f := doctree.Formatting{}
			if it.Formatting != nil {
				f = *it.Formatting
			}
			text := emphasize(inline(it.Text), f)
			switch f.ListType {
			case doctree.ListBullet:
				fmt.Fprintf(b, "- %s\n", text)
				inList = true
				continue
			case doctree.ListNumbered:
				fmt.Fprintf(b, "1. %s\n", text)
				inList = true
				continue
			}
			if inList {
				b.WriteString("\n")
				inList = false
			}
			b.WriteString(text)
			b.WriteString("\n\n")
		case doctree.KindTable:
			if inList {
				b.WriteString("\n")
				inList = false
			}
			if it.Table != nil {
				writeTable(b, it.Table)
			}
		case doctree.KindUnparsed:
			if inList {
				b.WriteString("\n")
				inList = false
			}
			fmt.Fprintf(b, "> *Contenu non interprété : %s*\n\n", inline(it.Reason))
		}
	}
	if inList {
		b.WriteString("\n")
	}
}

func writeTable(b *strings.Builder, t *doctree.TableBlock) {
	rows := t.Rows
	header := t.Headers
	if header == nil {
		if len(rows) == 0 {
			return
		}
		header, rows = rows[0], rows[1:]
	}
	width := len(header)
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return
	}
	if t.Caption != "" {
		fmt.Fprintf(b, "*%s*\n\n", inline(t.Caption))
	}
	writeRow(b, header, width)
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows {
		writeRow(b, r, width)
	}
	b.WriteString("\n")
}

func writeRow(b *strings.Builder, cells []string, width int) {
	b.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = strings.ReplaceAll(inline(cells[i]), "|", `\|`)
		}
		b.WriteString(" " + cell + " |")
	}
	b.WriteString("\n")
}

func emphasize(text string, f doctree.Formatting) string {
	if text == "" {
		return text
	}
	switch {
	case f.Bold && f.Italic:
		return "***" + text + "***"
	case f.Bold:
		return "**" + text + "**"
	case f.Italic:
		return "*" + text + "*"
	}
	return text
}

// inline flattens newlines and escapes characters that would otherwise start
// Markdown block or inline syntax.
func inline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = markdownEscaper.Replace(s)
	if s != "" && strings.ContainsRune("#>-+=", rune(s[0])) {
		s = `\` + s
	}
	return blockPrefix.ReplaceAllString(s, `$1\$2$3`)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
)
