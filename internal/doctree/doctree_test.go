package doctree

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func sample() Document {
	return Document{Roots: []Section{
		{
			Title:   "4. DONNEES CLINIQUES",
			Content: []ContentItem{TextItem("intro", Formatting{Alignment: AlignLeft})},
			Subsections: []Section{
				{
					Title: "4.2. Posologie",
					Content: []ContentItem{
						TableItem(TableBlock{Rows: [][]string{{"Poids", "Dose"}, {"> 50 kg", "1 g"}}}),
						TextItem("adulte", Formatting{Bold: true, Alignment: AlignLeft}),
					},
				},
			},
		},
		{Title: "5. PROPRIETES", Content: []ContentItem{UnparsedItem("image")}},
	}}
}

func TestWalk_Breadcrumbs(t *testing.T) {
	var got []string
	sample().Walk(func(bc []string, s *Section) {
		got = append(got, strings.Join(bc, " > "))
	})
	want := []string{
		"4. DONNEES CLINIQUES",
		"4. DONNEES CLINIQUES > 4.2. Posologie",
		"5. PROPRIETES",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSectionCount(t *testing.T) {
	if n := sample().SectionCount(); n != 3 {
		t.Errorf("expected 3 sections, got %d", n)
	}
	if n := (Document{}).SectionCount(); n != 0 {
		t.Errorf("expected 0 sections, got %d", n)
	}
}

func TestFlatten_DocumentOrder(t *testing.T) {
	items := sample().Flatten()
	var kinds []ItemKind
	for _, it := range items {
		kinds = append(kinds, it.Kind)
	}
	want := []ItemKind{KindText, KindTable, KindText, KindUnparsed}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("expected %v, got %v", want, kinds)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(sample())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"roots":[`, `"type":"table"`, `"rows":[["Poids","Dose"]`, `"reason":"image"`, `"bold":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"headers"`) {
		t.Errorf("absent headers must be omitted: %s", s)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	in := sample()
	in.Roots[1].Subsections = []Section{}
	in.Roots[0].Subsections[0].Subsections = []Section{}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("decoded document differs:\nin:  %+v\nout: %+v", in, out)
	}
}

func TestValidateJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing roots", `{}`},
		{"section without title", `{"roots":[{"content":[]}]}`},
		{"unknown item type", `{"roots":[{"title":"a","content":[{"type":"image"}]}]}`},
		{"text without text", `{"roots":[{"title":"a","content":[{"type":"text"}]}]}`},
		{"table without table", `{"roots":[{"title":"a","content":[{"type":"table"}]}]}`},
		{"non string cell", `{"roots":[{"title":"a","content":[{"type":"table","table":{"rows":[[1]]}}]}]}`},
		{"bad list type", `{"roots":[{"title":"a","content":[{"type":"text","text":"x","formatting":{"list_type":"roman"}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateJSON([]byte(tt.data)); err == nil {
				t.Errorf("expected validation error for %s", tt.data)
			}
		})
	}
}

func TestValidateJSON_AcceptsEmptyDocument(t *testing.T) {
	if err := ValidateJSON([]byte(`{"roots":[]}`)); err != nil {
		t.Errorf("expected empty document to validate: %v", err)
	}
}
