package smpc

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/medicsearch/rcpgest/internal/element"
)

// Defaults used when a field cannot be found on the page.
const (
	UntitledDocument = "Document sans titre"
	DateNotFound     = "Date not found"
)

// Metadata is the descriptive information read from a product page outside
// the structured sections.
type Metadata struct {
	Title      string   `json:"title"`
	Laboratory string   `json:"laboratoire"`
	Substances []string `json:"substances_actives"`
	Dosages    []string `json:"dosages"`
	Form       string   `json:"forme"`
	UpdateDate string   `json:"update_date"`
}

// page indexes a parsed document in document order so lookups can scan
// forward from a node the way a reader would.
type page struct {
	doc   *goquery.Document
	order []*html.Node
	index map[*html.Node]int
}

func newPage(root *html.Node) *page {
	p := &page{doc: goquery.NewDocumentFromNode(root), index: map[*html.Node]int{}}
	p.order = p.doc.Find("*").Nodes
	for i, n := range p.order {
		p.index[n] = i
	}
	return p
}

// following returns up to limit elements after from in document order that
// match selector. limit <= 0 means no limit.
func (p *page) following(from *html.Node, selector string, limit int) []*html.Node {
	m := cascadia.MustCompile(selector)
	start, ok := p.index[from]
	if !ok {
		return nil
	}
	var out []*html.Node
	for _, n := range p.order[start+1:] {
		if m.Match(n) {
			out = append(out, n)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func (p *page) anchor(name string) *html.Node {
	s := p.doc.Find(`a[name="` + name + `"]`)
	if s.Length() == 0 {
		return nil
	}
	return s.Get(0)
}

func text(n *html.Node) string {
	return element.NormalizeSpace(goquery.NewDocumentFromNode(n).Text())
}

// ExtractMetadata reads title, laboratory, composition, form and update
// date from an ANSM page. Missing fields take their documented defaults.
func ExtractMetadata(root *html.Node) Metadata {
	if root == nil {
		return Metadata{Title: UntitledDocument, UpdateDate: DateNotFound, Substances: []string{}, Dosages: []string{}}
	}
	p := newPage(root)
	md := Metadata{
		Title:      p.title(),
		Laboratory: p.laboratory(),
		UpdateDate: p.updateDate(),
	}
	md.Substances, md.Dosages = p.composition()
	md.Form = p.form(md.Title)
	return md
}

func (p *page) title() string {
	if a := p.anchor(AnchorDenomination); a != nil {
		if ns := p.following(a, `p[class*="AmmCorpsTexteGras"], p[class*="AmmDenomination"]`, 1); len(ns) > 0 {
			if t := text(ns[0]); t != "" {
				return t
			}
		}
	}

	if h1 := p.doc.Find("h1.textedeno").First(); h1.Length() > 0 {
		t := element.NormalizeSpace(h1.Text())
		if before, _, found := strings.Cut(t, " - "); found {
			t = strings.TrimSpace(before)
		}
		if t != "" {
			return t
		}
	}

	for _, cls := range []string{"AmmDenomination", "AmmCorpsTexteGras"} {
		var found string
		p.doc.Find("p." + cls).EachWithBreak(func(i int, s *goquery.Selection) bool {
			t := element.NormalizeSpace(s.Text())
			if len([]rune(t)) > 5 {
				found = t
				return false
			}
			return i < 2 // first three only
		})
		if found != "" {
			return found
		}
	}
	return UntitledDocument
}

var (
	postalCodeStart = regexp.MustCompile(`^\d{5}`)
	postalCodeWord  = regexp.MustCompile(`\b\d{5}\b`)
	postalCodeSpace = regexp.MustCompile(`\d{5}\s`)
	addressWord     = regexp.MustCompile(`(?i)\b(rue|avenue|boulevard|cedex)\b`)
)

func isSectionLabel(t string) bool {
	for _, prefix := range []string{"7.", "8.", "TITULAIRE", "DATE"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// laboratory scans the paragraphs after the marketing authorisation holder
// anchor: a bold span first, then a bold paragraph, then the first line that
// does not look like an address.
func (p *page) laboratory() string {
	a := p.anchor(AnchorTitulaire)
	if a == nil {
		return ""
	}
	from := a
	if a.Parent != nil {
		from = a.Parent
	}
	paragraphs := p.following(from, "p, div", 5)

	for _, para := range paragraphs {
		var found string
		goquery.NewDocumentFromNode(para).Find("span.gras").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := element.NormalizeSpace(s.Text())
			if t != "" && !postalCodeStart.MatchString(t) && !postalCodeSpace.MatchString(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	for _, para := range paragraphs {
		sel := goquery.NewDocumentFromNode(para)
		if !sel.HasClass("AmmCorpsTexteGras") && sel.Find("span.gras").Length() == 0 {
			continue
		}
		t := text(para)
		if !isSectionLabel(t) && !postalCodeStart.MatchString(t) {
			return t
		}
	}

	for _, para := range paragraphs {
		t := text(para)
		if t != "" && !isSectionLabel(t) && !postalCodeWord.MatchString(t) && !addressWord.MatchString(t) {
			return t
		}
	}
	return ""
}

// compositionLine matches "Paracétamol ........ 500 mg".
var compositionLine = regexp.MustCompile(`(?i)^(.*?)\.{3,}\s*([\d\s,]+(?:[.,]\d+)?\s*(?:mg|g|ml|µg|UI|U\.I\.|microgrammes|unités|%))\s*$`)

var parenthesized = regexp.MustCompile(`\s*\([^)]*\)`)

// composition reads the first active substance and its dosage from the
// first composition paragraph.
func (p *page) composition() (substances, dosages []string) {
	substances, dosages = []string{}, []string{}
	para := p.doc.Find("p.AmmComposition").First()
	if para.Length() == 0 {
		return substances, dosages
	}
	m := compositionLine.FindStringSubmatch(element.NormalizeSpace(para.Text()))
	if m == nil {
		return substances, dosages
	}
	substance := strings.TrimSpace(parenthesized.ReplaceAllString(m[1], ""))
	substances = append(substances, substance)
	dosages = append(dosages, strings.TrimSpace(m[2]))
	return substances, dosages
}

// form reads the pharmaceutical form after its anchor, falling back to the
// part of the title after the first comma.
func (p *page) form(title string) string {
	if a := p.anchor(AnchorFormePharm); a != nil {
		if ns := p.following(a, "p", 1); len(ns) > 0 {
			return strings.TrimRight(text(ns[0]), ".")
		}
	}
	if _, after, found := strings.Cut(title, ","); found {
		return strings.TrimSpace(after)
	}
	return ""
}

const updateMarker = "ANSM - Mis à jour le :"

func (p *page) updateDate() string {
	date := DateNotFound
	var marked string
	for _, n := range p.order {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && strings.Contains(c.Data, updateMarker) {
				marked = c.Data
				break
			}
		}
		if marked != "" {
			break
		}
	}

	if marked != "" {
		_, after, _ := strings.Cut(marked, updateMarker)
		date = strings.TrimSpace(after)
	} else if menu := p.doc.Find("div#menuhaut").First(); menu.Length() > 0 {
		date = element.NormalizeSpace(menu.Text())
		if _, after, found := strings.Cut(date, "mise à jour"); found {
			date = strings.TrimSpace(after)
		} else if _, after, found := strings.Cut(date, "mise"); found {
			date = strings.TrimSpace(after)
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(date, "le ", ""))
}
