package pipeline

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LinksColumn is the header of the workbook column holding document URLs.
const LinksColumn = "liens"

// ReadLinks returns the URLs listed under the "liens" header of the first
// sheet of an Excel workbook, in row order. Blank cells and values that are
// not http(s) URLs are skipped; duplicates are kept once.
func ReadLinks(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), LinksColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %q column in sheet %s", LinksColumn, sheets[0])
	}

	seen := make(map[string]bool)
	var links []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		u, err := url.Parse(v)
		if v == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || seen[v] {
			continue
		}
		seen[v] = true
		links = append(links, v)
	}
	return links, nil
}
