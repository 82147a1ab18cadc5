// Package dedup decides whether narrative text restates values already
// captured in the tables of the current section.
//
// The classifier is deliberately asymmetric by text length. Long text
// (over LongTextLen characters) counts as a restatement only when it
// stitches together at least MinLongMatches significant cells; short text is
// matched exactly, numerically, or by containment. Downstream consumers
// depend on these exact boundaries.
package dedup

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// LongTextLen is the length above which only multi-cell matching applies.
	LongTextLen = 150
	// MinLongMatches is the number of distinct cells long text must contain.
	MinLongMatches = 3
	// ShortTextLen bounds the bidirectional containment rule.
	ShortTextLen = 20
	// MinCellLen is the length a cell must exceed to count for long text.
	MinCellLen = 5
)

// CellSet accumulates the distinct, lower-cased, non-blank table cells seen
// in one section. The zero value is ready to use.
type CellSet struct {
	cells []string
	seen  map[string]struct{}
}

// Add merges cells into the set, skipping blanks and repeats.
func (s *CellSet) Add(cells ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, c := range cells {
		c = fold(c)
		if c == "" {
			continue
		}
		if _, ok := s.seen[c]; ok {
			continue
		}
		s.seen[c] = struct{}{}
		s.cells = append(s.cells, c)
	}
}

// Reset empties the set when a new section opens.
func (s *CellSet) Reset() {
	s.cells = s.cells[:0]
	clear(s.seen)
}

// Len returns the number of distinct cells.
func (s *CellSet) Len() int {
	return len(s.cells)
}

// IsDuplicate reports whether candidate restates values present in cells.
func IsDuplicate(candidate string, cells *CellSet) bool {
	if cells == nil || cells.Len() == 0 {
		return false
	}
	value := fold(candidate)
	if value == "" {
		return false
	}
	length := utf8.RuneCountInString(value)

	if length > LongTextLen {
		matches := 0
		for _, c := range cells.cells {
			if utf8.RuneCountInString(c) > MinCellLen && strings.Contains(value, c) {
				matches++
			}
		}
		return matches >= MinLongMatches
	}

	norm := Normalize(value)
	numeric := IsNumeric(value)
	short := length < ShortTextLen
	for _, c := range cells.cells {
		if norm == Normalize(c) {
			return true
		}
		if numeric && IsNumeric(c) && numericKey(value) == numericKey(c) {
			return true
		}
		if short {
			if strings.Contains(c, value) {
				return true
			}
			if utf8.RuneCountInString(c) < ShortTextLen && strings.Contains(value, c) {
				return true
			}
		}
	}
	return false
}

// Normalize converts decimal commas to points and, for numeric-looking
// strings, drops a trailing parenthetical such as a confidence interval.
func Normalize(s string) string {
	n := strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if IsNumeric(s) {
		if i := strings.IndexByte(n, '('); i >= 0 {
			n = strings.TrimSpace(n[:i])
		}
	}
	return n
}

// IsNumeric reports whether s parses as a decimal number, with comma or
// point separator and optional inner spaces, possibly followed by a
// parenthetical: "1,07", "1 000", "1.07 (0,92 - 1,23)".
func IsNumeric(s string) bool {
	n := compact(s)
	if parsesFloat(n) {
		return true
	}
	if i := strings.IndexByte(n, '('); i >= 0 {
		return parsesFloat(n[:i])
	}
	return false
}

func numericKey(s string) string {
	n := compact(s)
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = n[:i]
	}
	return n
}

func compact(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), " ", "")
}

// parsesFloat requires a digit so words like "inf" or "nan" stay text.
func parsesFloat(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsDigit) < 0 {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func fold(s string) string {
	return cases.Lower(language.French).String(strings.TrimSpace(s))
}
