package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/medicsearch/rcpgest/internal/element"
)

// Source is a document read by an adapter: a flat stream of raw markup
// nodes in document order.
type Source struct {
	Title  string
	Format string         // "html", "markdown", "docx", "pdf", "text", "csv"
	Nodes  []element.Node // document order
	HTML   *html.Node     // parsed tree, HTML sources only
}

// Parser converts raw document bytes into a node stream.
type Parser interface {
	Parse(r io.Reader, filename string) (*Source, error)
}

// SupportedExtensions maps the file extensions this service can handle to
// the Source.Format they produce.
var SupportedExtensions = map[string]string{
	".txt":      "text",
	".md":       "markdown",
	".markdown": "markdown",
	".csv":      "csv",
	".html":     "html",
	".htm":      "html",
	".pdf":      "pdf",
	".docx":     "docx",
}

// Options tunes adapters that shell out or guess.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts ...Options) (Parser, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: o.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// FormatOf returns the Source.Format filename would be parsed as, or
// "unknown".
func FormatOf(filename string) string {
	if f, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return "unknown"
}

// baseTitle strips the extension from filename.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// nodeSeq hands out adapter node identities, starting at 1.
type nodeSeq struct {
	nodes []element.Node
}

func (s *nodeSeq) emit(n element.Node) {
	n.ID = len(s.nodes) + 1
	s.nodes = append(s.nodes, n)
}
