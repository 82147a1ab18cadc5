// Package builder assembles a classified element stream into a section
// forest.
//
// Open sections are kept on a stack of arena indexes tagged with the level
// they were opened at. The level never leaves the builder: Document converts
// the arena into doctree values that carry no construction metadata.
package builder

import (
	"io"
	"log/slog"
	"slices"

	"github.com/medicsearch/rcpgest/internal/dedup"
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/element"
	"github.com/medicsearch/rcpgest/internal/table"
)

// DefaultUnsectionedTitle titles the synthesized root that receives content
// seen before any heading.
const DefaultUnsectionedTitle = "Contenu non sectionné"

type builderSection struct {
	title    string
	level    int
	source   int
	content  []doctree.ContentItem
	children []int
}

// Stats counts what the builder did with its input.
type Stats struct {
	Headings   int `json:"headings"`
	Paragraphs int `json:"paragraphs"`
	Tables     int `json:"tables"`
	Duplicates int `json:"duplicates_dropped"`
	EmptyTable int `json:"empty_tables"`
	Ignored    int `json:"ignored"`
	Malformed  int `json:"malformed_headings"`
	Unparsed   int `json:"unparsed"`
}

// Builder is a single-use, single-document state machine. It is not safe for
// concurrent use; independent documents use independent builders.
type Builder struct {
	log              *slog.Logger
	unsectionedTitle string

	sections    []builderSection
	roots       []int
	stack       []int
	unsectioned int
	cells       dedup.CellSet
	stats       Stats
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for debug notes on dropped content.
func WithLogger(log *slog.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithUnsectionedTitle overrides DefaultUnsectionedTitle.
func WithUnsectionedTitle(title string) Option {
	return func(b *Builder) {
		if title != "" {
			b.unsectionedTitle = title
		}
	}
}

// New returns an empty builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		unsectionedTitle: DefaultUnsectionedTitle,
		unsectioned:      -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs a fresh builder over elements.
func Build(elements []element.Element, opts ...Option) doctree.Document {
	b := New(opts...)
	for _, el := range elements {
		b.Add(el)
	}
	return b.Document()
}

// Add consumes one element.
func (b *Builder) Add(el element.Element) {
	switch el.Kind {
	case element.Heading:
		b.openSection(el)
	case element.Table:
		b.addTable(el)
	case element.Paragraph:
		b.addParagraph(el)
	case element.Unparsed:
		b.stats.Unparsed++
		cur := b.current()
		b.sections[cur].content = append(b.sections[cur].content, doctree.UnparsedItem(el.Text))
	default:
		b.stats.Ignored++
		if el.Malformed {
			b.stats.Malformed++
			b.log.Debug("malformed heading class ignored", "classes", el.Classes)
		}
	}
}

func (b *Builder) openSection(el element.Element) {
	b.stats.Headings++

	// Close open sections at the same or a deeper level.
	for len(b.stack) > 0 && b.sections[b.stack[len(b.stack)-1]].level >= el.Level {
		b.stack = b.stack[:len(b.stack)-1]
	}

	idx := len(b.sections)
	b.sections = append(b.sections, builderSection{
		title:  el.Text,
		level:  el.Level,
		source: el.Source,
	})
	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		b.sections[parent].children = append(b.sections[parent].children, idx)
	} else {
		b.roots = append(b.roots, idx)
	}
	b.stack = append(b.stack, idx)
	b.cells.Reset()
}

func (b *Builder) addTable(el element.Element) {
	block, ok := table.Extract(el.Table)
	if !ok {
		b.stats.EmptyTable++
		return
	}
	b.stats.Tables++
	cur := b.current()
	b.sections[cur].content = append(b.sections[cur].content, doctree.TableItem(block))
	b.cells.Add(table.Cells(block)...)
}

func (b *Builder) addParagraph(el element.Element) {
	if len(b.stack) > 0 && el.Source != 0 && b.sections[b.stack[len(b.stack)-1]].source == el.Source {
		b.stats.Ignored++
		return
	}
	if dedup.IsDuplicate(el.Text, &b.cells) {
		b.stats.Duplicates++
		b.log.Debug("paragraph restates table values, dropped", "text", truncate(el.Text, 80))
		return
	}
	b.stats.Paragraphs++
	cur := b.current()
	b.sections[cur].content = append(b.sections[cur].content, doctree.TextItem(el.Text, el.Formatting))
}

// current returns the section receiving content, synthesizing the
// unsectioned root on first use.
func (b *Builder) current() int {
	if len(b.stack) > 0 {
		return b.stack[len(b.stack)-1]
	}
	if len(b.roots) > 0 {
		return b.roots[len(b.roots)-1]
	}
	if b.unsectioned < 0 {
		b.unsectioned = len(b.sections)
		b.sections = append(b.sections, builderSection{title: b.unsectionedTitle})
		b.roots = append(b.roots, b.unsectioned)
	}
	return b.unsectioned
}

// Stats returns the counters accumulated so far.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Document finalizes the forest. The returned value shares no memory with
// the builder.
func (b *Builder) Document() doctree.Document {
	roots := make([]doctree.Section, 0, len(b.roots))
	for _, idx := range b.roots {
		roots = append(roots, b.finalize(idx))
	}
	return doctree.Document{Roots: roots}
}

func (b *Builder) finalize(idx int) doctree.Section {
	s := b.sections[idx]
	out := doctree.Section{
		Title:       s.title,
		Content:     slices.Clone(s.content),
		Subsections: make([]doctree.Section, 0, len(s.children)),
	}
	if out.Content == nil {
		out.Content = []doctree.ContentItem{}
	}
	for _, child := range s.children {
		out.Subsections = append(out.Subsections, b.finalize(child))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
