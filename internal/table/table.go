// Package table normalizes table nodes into content blocks and exposes their
// cells for duplicate detection.
package table

import (
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/element"
)

// Extract converts a table node into a TableBlock. Cells are
// whitespace-normalized and fully blank rows are dropped. ok is false when no
// non-blank row remains.
func Extract(t *element.TableNode) (block doctree.TableBlock, ok bool) {
	if t == nil {
		return doctree.TableBlock{}, false
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		blank := true
		for i, cell := range r {
			row[i] = element.NormalizeSpace(cell)
			if row[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return doctree.TableBlock{}, false
	}

	block.Rows = rows
	if t.Header != nil {
		block.Headers = make([]string, len(t.Header))
		for i, h := range t.Header {
			block.Headers[i] = element.NormalizeSpace(h)
		}
	}
	block.Caption = element.NormalizeSpace(t.Caption)
	return block, true
}

// Cells returns the non-blank cell strings of a block's rows in row-major
// order. Headers and caption are not included.
func Cells(b doctree.TableBlock) []string {
	var cells []string
	for _, row := range b.Rows {
		for _, c := range row {
			if c != "" {
				cells = append(cells, c)
			}
		}
	}
	return cells
}
