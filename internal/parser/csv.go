package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/medicsearch/rcpgest/internal/element"
)

// CSVParser handles CSV files. The whole file becomes one table whose first
// record is the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Source, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	src := &Source{Title: baseTitle(filename), Format: "csv"}
	if len(records) == 0 {
		return src, nil
	}

	var seq nodeSeq
	seq.emit(element.Node{
		Tag:   "table",
		Table: &element.TableNode{Rows: records, Header: records[0]},
	})
	src.Nodes = seq.nodes
	return src, nil
}
