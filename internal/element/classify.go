package element

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

// Vocabulary holds the class-token names the classifier recognizes.
type Vocabulary struct {
	// HeadingFamilies are class prefixes followed by a numeric level and an
	// optional "Bis" suffix, e.g. AmmAnnexeTitre2 or AmmAnnexeTitre1Bis.
	HeadingFamilies []string `yaml:"heading_families"`
	Bold            []string `yaml:"bold"`
	Italic          []string `yaml:"italic"`
	Underline       []string `yaml:"underline"`
	Bullet          []string `yaml:"bullet"`
	Center          []string `yaml:"center"`
}

// DefaultVocabulary returns the class names used by ANSM product
// characteristics pages, plus the Heading family synthesized by the
// Markdown, DOCX, PDF and text adapters.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		HeadingFamilies: []string{"AmmAnnexeTitre", "AmmNoticeTitre", "Heading"},
		Bold:            []string{"gras", "AmmCorpsTexteGras"},
		Italic:          []string{"italique"},
		Underline:       []string{"souligne"},
		Bullet:          []string{"AmmListePuces"},
		Center:          []string{"center"},
	}
}

// Merge fills empty fields of v from def.
func (v Vocabulary) Merge(def Vocabulary) Vocabulary {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return Vocabulary{
		HeadingFamilies: pick(v.HeadingFamilies, def.HeadingFamilies),
		Bold:            pick(v.Bold, def.Bold),
		Italic:          pick(v.Italic, def.Italic),
		Underline:       pick(v.Underline, def.Underline),
		Bullet:          pick(v.Bullet, def.Bullet),
		Center:          pick(v.Center, def.Center),
	}
}

var centerStyle = regexp.MustCompile(`(?i)text-align\s*:\s*center`)

// Classifier turns raw nodes into elements. The zero value uses
// DefaultVocabulary.
type Classifier struct {
	Vocab Vocabulary
}

// NewClassifier returns a classifier for vocab, with empty fields taken from
// DefaultVocabulary.
func NewClassifier(vocab Vocabulary) Classifier {
	return Classifier{Vocab: vocab.Merge(DefaultVocabulary())}
}

func (c Classifier) vocab() Vocabulary {
	if len(c.Vocab.HeadingFamilies) == 0 {
		return c.Vocab.Merge(DefaultVocabulary())
	}
	return c.Vocab
}

// Classify determines the kind of n. It never fails: anything it cannot
// interpret becomes Ignorable.
func (c Classifier) Classify(n Node) Element {
	v := c.vocab()
	el := Element{
		Source:  n.ID,
		Tag:     n.Tag,
		Anchor:  n.Anchor,
		Classes: n.Classes,
	}

	if n.Unparsed != "" {
		el.Kind = Unparsed
		el.Text = n.Unparsed
		return el
	}

	if n.Table != nil {
		el.Kind = Table
		el.Table = n.Table
		return el
	}

	level, found, ok := headingLevel(n.Classes, v.HeadingFamilies)
	if found {
		if !ok {
			el.Kind = Ignorable
			el.Malformed = true
			return el
		}
		el.Kind = Heading
		el.Level = level
		el.Text = NormalizeSpace(n.Text)
		return el
	}

	switch n.Tag {
	case "a", "script", "style", "noscript", "br", "hr", "img":
		el.Kind = Ignorable
		return el
	}

	text := NormalizeSpace(n.Text)
	if text == "" {
		el.Kind = Ignorable
		return el
	}
	el.Kind = Paragraph
	el.Text = text
	el.Formatting = c.formatting(n, v)
	return el
}

// ClassifyAll classifies a node stream in order.
func (c Classifier) ClassifyAll(nodes []Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.Classify(n))
	}
	return out
}

// headingLevel scans class tokens for a heading family. found reports that a
// family prefix matched; ok reports that its level suffix parsed.
func headingLevel(classes, families []string) (level int, found, ok bool) {
	for _, cls := range classes {
		for _, fam := range families {
			if fam == "" || !strings.HasPrefix(cls, fam) {
				continue
			}
			found = true
			suffix := strings.TrimSuffix(cls[len(fam):], "Bis")
			n, err := strconv.Atoi(suffix)
			if err != nil || n <= 0 {
				continue
			}
			return n, true, true
		}
	}
	return 0, found, false
}

func (c Classifier) formatting(n Node, v Vocabulary) doctree.Formatting {
	f := doctree.Formatting{Alignment: doctree.AlignLeft}

	switch n.Tag {
	case "strong", "b":
		f.Bold = true
	case "em", "i":
		f.Italic = true
	case "u":
		f.Underline = true
	}
	if n.Emphasis&EmphBold != 0 || classMatches(n.Classes, v.Bold) {
		f.Bold = true
	}
	if n.Emphasis&EmphItalic != 0 || classMatches(n.Classes, v.Italic) {
		f.Italic = true
	}
	if n.Emphasis&EmphUnderline != 0 || classMatches(n.Classes, v.Underline) {
		f.Underline = true
	}

	if classMatches(n.Classes, v.Bullet) {
		f.ListType = doctree.ListBullet
	}
	if n.Tag == "li" || n.ParentTag == "ul" || n.ParentTag == "ol" {
		if n.ParentTag == "ul" {
			f.ListType = doctree.ListBullet
		} else {
			f.ListType = doctree.ListNumbered
		}
	}

	if classMatches(n.Classes, v.Center) || centerStyle.MatchString(n.Style) {
		f.Alignment = doctree.AlignCenter
	}
	return f
}

// classMatches reports whether any class token contains any vocabulary word.
func classMatches(classes, words []string) bool {
	for _, cls := range classes {
		for _, w := range words {
			if w != "" && strings.Contains(cls, w) {
				return true
			}
		}
	}
	return false
}
