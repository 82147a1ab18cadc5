package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQuery is returned by Search when the query has no terms.
var ErrEmptyQuery = errors.New("empty search query")

// SearchResult is a chunk matched by full-text search.
type SearchResult struct {
	MedicineID string  `json:"medicine_id"`
	Title      string  `json:"title"`
	Laboratory string  `json:"laboratoire"`
	Form       string  `json:"forme"`
	ChunkIndex int     `json:"chunk_index"`
	Breadcrumb string  `json:"breadcrumb"`
	Snippet    string  `json:"snippet"`
	Rank       float64 `json:"rank"`
}

// SearchOptions controls the FTS5 search behaviour.
type SearchOptions struct {
	Query      string // free text, each term is matched literally
	Substance  string // optional: substring of an active substance
	Form       string // optional: exact pharmaceutical form
	Laboratory string // optional: exact laboratory name
	Limit      int    // max results (default: 20)
	Offset     int    // pagination offset
}

// FilterOptions lists the distinct values available for search filters.
type FilterOptions struct {
	Laboratories []string `json:"laboratoires"`
	Forms        []string `json:"formes"`
	Substances   []string `json:"substances"`
}

// Search performs a full-text search on chunks and returns ranked results.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]*SearchResult, error) {
	match := ftsQuery(opts.Query)
	if match == "" {
		return nil, ErrEmptyQuery
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	where := []string{"chunks_fts MATCH ?"}
	args := []any{match}

	if opts.Substance != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(m.substances) j WHERE j.value LIKE ?)")
		args = append(args, "%"+opts.Substance+"%")
	}
	if opts.Form != "" {
		where = append(where, "m.form = ?")
		args = append(args, opts.Form)
	}
	if opts.Laboratory != "" {
		where = append(where, "m.laboratory = ?")
		args = append(args, opts.Laboratory)
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.title, m.laboratory, m.form,
		       c.chunk_index, c.breadcrumb,
		       snippet(chunks_fts, 0, '<mark>', '</mark>', '…', 16),
		       rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN medicines m ON m.id = c.medicine_id
		WHERE %s
		ORDER BY rank
		LIMIT ? OFFSET ?`,
		strings.Join(where, " AND "),
	)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		sr := &SearchResult{}
		if err := rows.Scan(
			&sr.MedicineID, &sr.Title, &sr.Laboratory, &sr.Form,
			&sr.ChunkIndex, &sr.Breadcrumb, &sr.Snippet, &sr.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// ftsQuery quotes every whitespace-separated term so FTS5 operators in user
// input are matched as text. Terms are implicitly ANDed.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// FilterValues returns the distinct laboratories, forms and substances of
// the stored medicines, sorted.
func (s *Store) FilterValues(ctx context.Context) (FilterOptions, error) {
	var fo FilterOptions
	var err error
	if fo.Laboratories, err = s.distinct(ctx, `SELECT DISTINCT laboratory FROM medicines WHERE laboratory != '' ORDER BY 1`); err != nil {
		return fo, fmt.Errorf("laboratories: %w", err)
	}
	if fo.Forms, err = s.distinct(ctx, `SELECT DISTINCT form FROM medicines WHERE form != '' ORDER BY 1`); err != nil {
		return fo, fmt.Errorf("forms: %w", err)
	}
	if fo.Substances, err = s.distinct(ctx, `SELECT DISTINCT j.value FROM medicines m, json_each(m.substances) j WHERE j.value != '' ORDER BY 1`); err != nil {
		return fo, fmt.Errorf("substances: %w", err)
	}
	return fo, nil
}

func (s *Store) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
