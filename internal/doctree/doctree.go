package doctree

// Document is the structured result of one source document: a forest of
// top-level sections in stream order.
type Document struct {
	Roots []Section `json:"roots"`
}

// Section is a titled node holding ordered content and child sections.
type Section struct {
	Title       string        `json:"title"`
	Content     []ContentItem `json:"content"`
	Subsections []Section     `json:"subsections"`
}

// ItemKind discriminates the ContentItem union.
type ItemKind string

const (
	KindText     ItemKind = "text"
	KindTable    ItemKind = "table"
	KindUnparsed ItemKind = "unparsed"
)

// ContentItem is one unit of section content. Exactly one of Text, Table or
// Reason is meaningful, selected by Kind.
type ContentItem struct {
	Kind       ItemKind    `json:"type"`
	Text       string      `json:"text,omitempty"`
	Formatting *Formatting `json:"formatting,omitempty"`
	Table      *TableBlock `json:"table,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// TableBlock is a row-major grid of normalized cell strings. Headers is nil
// when the source table had no header construct; its length may differ from
// the width of Rows.
type TableBlock struct {
	Rows    [][]string `json:"rows"`
	Headers []string   `json:"headers,omitempty"`
	Caption string     `json:"caption,omitempty"`
}

// ListType marks list membership of a paragraph.
type ListType string

const (
	ListNone     ListType = ""
	ListBullet   ListType = "bullet"
	ListNumbered ListType = "numbered"
)

// Alignment of a paragraph.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
)

// Formatting is derived once from markup attributes and never mutated.
type Formatting struct {
	Bold      bool      `json:"bold"`
	Italic    bool      `json:"italic"`
	Underline bool      `json:"underline"`
	ListType  ListType  `json:"list_type,omitempty"`
	Alignment Alignment `json:"alignment"`
}

// TextItem builds a narrative text content item.
func TextItem(text string, f Formatting) ContentItem {
	return ContentItem{Kind: KindText, Text: text, Formatting: &f}
}

// TableItem builds a table content item.
func TableItem(t TableBlock) ContentItem {
	return ContentItem{Kind: KindTable, Table: &t}
}

// UnparsedItem records content that could not be interpreted.
func UnparsedItem(reason string) ContentItem {
	return ContentItem{Kind: KindUnparsed, Reason: reason}
}

// Walk visits every section depth-first in document order. The breadcrumb
// holds the titles of the section's ancestors followed by its own title.
func (d Document) Walk(fn func(breadcrumb []string, s *Section)) {
	var walk func(sections []Section, parents []string)
	walk = func(sections []Section, parents []string) {
		for i := range sections {
			s := &sections[i]
			bc := append(append([]string(nil), parents...), s.Title)
			fn(bc, s)
			walk(s.Subsections, bc)
		}
	}
	walk(d.Roots, nil)
}

// SectionCount returns the number of sections at every depth.
func (d Document) SectionCount() int {
	n := 0
	d.Walk(func([]string, *Section) { n++ })
	return n
}

// Flatten returns every content item of the document in document order,
// dropping the section structure.
func (d Document) Flatten() []ContentItem {
	var items []ContentItem
	d.Walk(func(_ []string, s *Section) {
		items = append(items, s.Content...)
	})
	return items
}

// Chunk is a sized text segment with structural context, ready for indexing.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Section hierarchy, e.g. ["4. DONNEES CLINIQUES", "4.2. Posologie"]
}
