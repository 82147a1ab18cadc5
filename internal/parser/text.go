package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/medicsearch/rcpgest/internal/element"
)

// TextParser handles plain text files. Paragraphs are separated by blank
// lines; numbered section lines become headings.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Source{
		Title:  baseTitle(filename),
		Format: "text",
		Nodes:  linesToNodes(lines),
	}, nil
}

// sectionLine matches "4.2. Posologie ..." and "6 DONNEES ...": one to four
// dotted components of at most two digits, then a capitalized word.
var sectionLine = regexp.MustCompile(`^(\d{1,2}(?:\.\d{1,2}){0,3})\.?\s+\p{Lu}`)

const maxHeadingLen = 160

// headingDepth returns the section depth of a numbered heading line, or 0.
func headingDepth(line string) int {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingLen {
		return 0
	}
	m := sectionLine.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	return strings.Count(m[1], ".") + 1
}

// lineGrouper groups lines into paragraph nodes, splitting out numbered
// heading lines.
type lineGrouper struct {
	seq     nodeSeq
	current strings.Builder
}

func (g *lineGrouper) flush() {
	if g.current.Len() > 0 {
		g.seq.emit(element.Node{Tag: "p", Text: g.current.String()})
		g.current.Reset()
	}
}

func (g *lineGrouper) line(line string) {
	if strings.TrimSpace(line) == "" {
		g.flush()
		return
	}
	if depth := headingDepth(line); depth > 0 {
		g.flush()
		g.seq.emit(element.Node{
			Tag:     "p",
			Classes: []string{fmt.Sprintf("Heading%d", depth)},
			Text:    strings.TrimSpace(line),
		})
		return
	}
	if g.current.Len() > 0 {
		g.current.WriteString("\n")
	}
	g.current.WriteString(line)
}

func linesToNodes(lines []string) []element.Node {
	var g lineGrouper
	for _, line := range lines {
		g.line(line)
	}
	g.flush()
	return g.seq.nodes
}
