// Package element defines the flat stream consumed by the section builder:
// raw markup nodes produced by source adapters and their classified form.
package element

import (
	"strings"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

// Emphasis records which inline emphasis descendants a node carries.
type Emphasis uint8

const (
	EmphBold Emphasis = 1 << iota
	EmphItalic
	EmphUnderline
)

// TableNode is a table as read from markup, before normalization.
type TableNode struct {
	Rows    [][]string
	Header  []string // nil when the markup has no header construct
	Caption string
}

// Node is one raw markup node emitted by a source adapter.
type Node struct {
	ID        int    // adapter-assigned identity, 0 if unknown
	Tag       string // lower-case tag name ("p", "li", "table", "a", ...)
	Classes   []string
	Style     string // inline style attribute
	Anchor    string // name or id of an anchor node
	ParentTag string // tag of the enclosing element, used for list detection
	Text      string
	Emphasis  Emphasis
	Table     *TableNode
	Unparsed  string // set by adapters on content they could not read
}

// HasClass reports whether the node carries the exact class token.
func (n Node) HasClass(token string) bool {
	for _, c := range n.Classes {
		if c == token {
			return true
		}
	}
	return false
}

// Kind is the classified type of an element.
type Kind int

const (
	Ignorable Kind = iota
	Heading
	Paragraph
	Table
	Unparsed
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Paragraph:
		return "paragraph"
	case Table:
		return "table"
	case Unparsed:
		return "unparsed"
	}
	return "ignorable"
}

// Element is a classified node.
type Element struct {
	Kind       Kind
	Source     int // Node.ID of the originating node
	Level      int // heading nesting level, >= 1 for headings
	Text       string // paragraph text, heading title, or the reason for Unparsed
	Formatting doctree.Formatting
	Table      *TableNode

	// Carried for marker matching.
	Tag     string
	Anchor  string
	Classes []string

	// Malformed is set on Ignorable elements whose heading class carried an
	// unparsable level suffix.
	Malformed bool
}

// HasClass reports whether the element carries the exact class token.
func (e Element) HasClass(token string) bool {
	for _, c := range e.Classes {
		if c == token {
			return true
		}
	}
	return false
}

// NormalizeSpace collapses every whitespace run to one space and trims the
// result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
