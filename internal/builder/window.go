package builder

import (
	"strconv"
	"strings"

	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/element"
)

// Marker matches a boundary element in a stream.
type Marker func(element.Element) bool

// Anchor matches an element carrying the named anchor.
func Anchor(name string) Marker {
	return func(el element.Element) bool { return el.Anchor == name }
}

// Class matches an element carrying the exact class token.
func Class(token string) Marker {
	return func(el element.Element) bool { return el.HasClass(token) }
}

// AnyOf matches when any of ms matches. Nil markers are skipped.
func AnyOf(ms ...Marker) Marker {
	return func(el element.Element) bool {
		for _, m := range ms {
			if m != nil && m(el) {
				return true
			}
		}
		return false
	}
}

// HeadingBeyond matches a heading whose leading section number sorts after
// max, e.g. with max "6.6" it matches "6.7. ..." and "7. ..." but neither
// "6.6.1" nor "6. ...".
func HeadingBeyond(max string) Marker {
	limit, ok := SectionNumber(max)
	if !ok {
		return func(element.Element) bool { return false }
	}
	return func(el element.Element) bool {
		if el.Kind != element.Heading {
			return false
		}
		n, ok := SectionNumber(el.Text)
		if !ok {
			return false
		}
		for i := 0; i < len(n) && i < len(limit); i++ {
			if n[i] != limit[i] {
				return n[i] > limit[i]
			}
		}
		return false
	}
}

// SectionNumber parses the dotted numeric prefix of a title: "4.2. Posologie"
// yields [4 2].
func SectionNumber(title string) ([]int, bool) {
	title = strings.TrimSpace(title)
	end := strings.IndexFunc(title, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end < 0 {
		end = len(title)
	}
	var parts []int
	for _, p := range strings.Split(title[:end], ".") {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, len(parts) > 0
}

// FeedWindow adds the elements strictly between the first start match and the
// next stop match. A nil start opens the window at the first element; a nil
// stop runs to the end of the stream. It reports whether the window opened.
func (b *Builder) FeedWindow(elements []element.Element, start, stop Marker) bool {
	i := 0
	if start != nil {
		for i < len(elements) && !start(elements[i]) {
			i++
		}
		if i == len(elements) {
			return false
		}
		i++
	}
	for ; i < len(elements); i++ {
		if stop != nil && stop(elements[i]) {
			break
		}
		b.Add(elements[i])
	}
	return true
}

// ExtractBetween structures only the slice of elements between start and
// stop. A missing start marker yields an empty document.
func ExtractBetween(elements []element.Element, start, stop Marker, opts ...Option) doctree.Document {
	b := New(opts...)
	b.FeedWindow(elements, start, stop)
	return b.Document()
}
