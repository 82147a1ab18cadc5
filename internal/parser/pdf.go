package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/medicsearch/rcpgest/internal/element"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*Source, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "rcpgest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if (err != nil || !anyText(pages)) && p.FallbackPdftotext {
		alt, altErr := extractPdftotext(tmpPath)
		if altErr == nil {
			// Page breaks end the current paragraph.
			alt = strings.ReplaceAll(alt, "\f", "\n\n")
			return &Source{
				Title:  baseTitle(filename),
				Format: "pdf",
				Nodes:  linesToNodes(strings.Split(alt, "\n")),
			}, nil
		}
		if err == nil {
			err = altErr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return &Source{
		Title:  baseTitle(filename),
		Format: "pdf",
		Nodes:  pageNodes(pages),
	}, nil
}

// pdfPage is the text of one page, or the error that kept it from being read.
type pdfPage struct {
	Text string
	Err  error
}

func extractPDFPages(path string) ([]pdfPage, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []pdfPage
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, pdfPage{})
			continue
		}
		text, err := page.GetPlainText(nil)
		pages = append(pages, pdfPage{Text: text, Err: err})
	}
	return pages, nil
}

func anyText(pages []pdfPage) bool {
	for _, p := range pages {
		if p.Err == nil && strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// pageNodes turns pages into paragraph nodes. A page that failed to decode
// becomes an unparsed node in its place.
func pageNodes(pages []pdfPage) []element.Node {
	var g lineGrouper
	for i, p := range pages {
		if p.Err != nil {
			g.flush()
			g.seq.emit(element.Node{
				Tag:      "page",
				Unparsed: fmt.Sprintf("page %d illisible : %v", i+1, p.Err),
			})
			continue
		}
		for _, line := range strings.Split(p.Text, "\n") {
			g.line(line)
		}
		g.flush()
	}
	return g.seq.nodes
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
