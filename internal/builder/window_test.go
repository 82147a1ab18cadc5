package builder

import (
	"reflect"
	"testing"

	"github.com/medicsearch/rcpgest/internal/element"
)

func anchor(name string) element.Element {
	return element.Element{Kind: element.Ignorable, Tag: "a", Anchor: name}
}

func TestExtractBetween_StartAndStop(t *testing.T) {
	stream := []element.Element{
		p("navigation"),
		h(1, "Header outside"),
		anchor("RcpDenomination"),
		h(1, "1. DENOMINATION"),
		p("DOLIPRANE 500 mg"),
		h(1, "2. COMPOSITION"),
		anchor("RcpInstPrepRadioph"),
		h(1, "12. INSTRUCTIONS"),
		p("after stop"),
	}
	doc := ExtractBetween(stream, Anchor("RcpDenomination"), Anchor("RcpInstPrepRadioph"))

	var titles []string
	for _, r := range doc.Roots {
		titles = append(titles, r.Title)
	}
	if !reflect.DeepEqual(titles, []string{"1. DENOMINATION", "2. COMPOSITION"}) {
		t.Errorf("unexpected roots %v", titles)
	}
}

func TestExtractBetween_MarkerElementNotFed(t *testing.T) {
	start := element.Element{Kind: element.Paragraph, Text: "Date de notification", Classes: []string{"DateNotif"}}
	doc := ExtractBetween([]element.Element{start, p("body")}, Class("DateNotif"), nil)
	if len(doc.Roots) != 1 {
		t.Fatalf("expected one unsectioned root, got %d", len(doc.Roots))
	}
	if got := texts(doc.Roots[0].Content); !reflect.DeepEqual(got, []string{"body"}) {
		t.Errorf("expected the marker itself to be excluded, got %v", got)
	}
}

func TestExtractBetween_MissingStartYieldsEmptyDocument(t *testing.T) {
	doc := ExtractBetween([]element.Element{h(1, "A"), p("x")}, Anchor("nope"), nil)
	if doc.Roots == nil || len(doc.Roots) != 0 {
		t.Errorf("expected empty roots, got %#v", doc.Roots)
	}
}

func TestExtractBetween_NoStopRunsToEnd(t *testing.T) {
	doc := ExtractBetween([]element.Element{anchor("s"), h(1, "A"), h(1, "B")}, Anchor("s"), nil)
	if len(doc.Roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(doc.Roots))
	}
}

func TestExtractBetween_StartFirstMatchOnly(t *testing.T) {
	doc := ExtractBetween([]element.Element{anchor("s"), p("one"), anchor("s"), p("two")}, Anchor("s"), nil)
	if got := texts(doc.Roots[0].Content); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Errorf("a second start marker is ordinary input, got %v", got)
	}
}

func TestAnyOf(t *testing.T) {
	m := AnyOf(nil, Anchor("RcpDenomination"), Class("DateNotif"))
	if !m(anchor("RcpDenomination")) {
		t.Error("expected anchor to match")
	}
	if !m(element.Element{Classes: []string{"x", "DateNotif"}}) {
		t.Error("expected class to match")
	}
	if m(p("other")) {
		t.Error("expected no match")
	}
}

func TestHeadingBeyond(t *testing.T) {
	m := HeadingBeyond("6.6")
	tests := []struct {
		el   element.Element
		want bool
	}{
		{h(1, "6. DONNÉES PHARMACEUTIQUES"), false},
		{h(2, "6.6. Précautions particulières d'élimination"), false},
		{h(3, "6.6.1 Détail"), false},
		{h(2, "6.7. Autre"), true},
		{h(1, "7. TITULAIRE DE L'AUTORISATION"), true},
		{h(1, "12. INSTRUCTIONS"), true},
		{h(1, "ANNEXE"), false},
		{p("7. not a heading"), false},
	}
	for _, tt := range tests {
		if got := m(tt.el); got != tt.want {
			t.Errorf("HeadingBeyond(6.6)(%q) = %v, want %v", tt.el.Text, got, tt.want)
		}
	}
	if HeadingBeyond("abc")(h(1, "9. X")) {
		t.Error("an unparsable limit never matches")
	}
}

func TestSectionNumber(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		ok   bool
	}{
		{"4.2. Posologie", []int{4, 2}, true},
		{"  12. INSTRUCTIONS", []int{12}, true},
		{"6.6", []int{6, 6}, true},
		{"Posologie", nil, false},
	}
	for _, tt := range tests {
		got, ok := SectionNumber(tt.in)
		if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SectionNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
