package chunker

import (
	"strings"
	"testing"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

func textSection(title, text string, children ...doctree.Section) doctree.Section {
	return doctree.Section{
		Title:       title,
		Content:     []doctree.ContentItem{doctree.TextItem(text, doctree.Formatting{})},
		Subsections: children,
	}
}

func TestChunkDocument_SmallSectionFitsOneChunk(t *testing.T) {
	doc := doctree.Document{Roots: []doctree.Section{
		textSection("Section", strings.Repeat("word ", 200)),
	}}

	cfg := Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     50,
	}
	chunks := ChunkDocument(doc, cfg)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if !strings.Contains(chunks[0].Text, "word") {
		t.Errorf("expected chunk text to contain 'word', got %q", chunks[0].Text)
	}
}

func TestChunkDocument_LargeSectionRequiresSplitting(t *testing.T) {
	// 2400 words, well over the target.
	largeText := strings.Repeat("Le paracétamol est un antalgique et un antipyrétique. ", 300)
	doc := doctree.Document{Roots: []doctree.Section{textSection("Big Section", largeText)}}

	cfg := Config{
		ChunkSize:    500,
		ChunkOverlap: 50,
		MinChunk:     10,
	}
	chunks := ChunkDocument(doc, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for large text, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		// Sentence boundaries allow slight overflows.
		if tokens := EstimateTokens(c.Text); tokens > cfg.ChunkSize*2 {
			t.Errorf("chunk %d: %d tokens exceeds 2x target %d", i, tokens, cfg.ChunkSize)
		}
	}
}

func TestChunkDocument_Breadcrumbs(t *testing.T) {
	doc := doctree.Document{Roots: []doctree.Section{
		{
			Title: "4. DONNEES CLINIQUES",
			Subsections: []doctree.Section{
				textSection("4.2. Posologie", "Un comprimé trois fois par jour."),
			},
		},
		textSection("5. PROPRIETES", "Antalgique."),
	}}

	chunks := ChunkDocument(doc, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, containers without content produce none; got %d", len(chunks))
	}

	want := [][]string{{"4. DONNEES CLINIQUES", "4.2. Posologie"}, {"5. PROPRIETES"}}
	for i, w := range want {
		bc := chunks[i].Breadcrumb
		if strings.Join(bc, "/") != strings.Join(w, "/") {
			t.Errorf("chunk %d: expected breadcrumb %v, got %v", i, w, bc)
		}
	}
}

func TestChunkDocument_MinChunkFiltering(t *testing.T) {
	doc := doctree.Document{Roots: []doctree.Section{textSection("Short", "Hi")}}
	cfg := Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
	if chunks := ChunkDocument(doc, cfg); len(chunks) != 0 {
		t.Errorf("expected 0 chunks (below MinChunk), got %d", len(chunks))
	}
}

func TestChunkDocument_EmptyDocument(t *testing.T) {
	if chunks := ChunkDocument(doctree.Document{}, DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestChunkDocument_DefaultConfigFallback(t *testing.T) {
	doc := doctree.Document{Roots: []doctree.Section{textSection("", "court")}}
	if chunks := ChunkDocument(doc, Config{}); len(chunks) != 1 {
		t.Errorf("expected 1 chunk with zero config (defaults applied), got %d", len(chunks))
	}
}

func TestSectionText_TablesAndUnparsed(t *testing.T) {
	s := doctree.Section{Content: []doctree.ContentItem{
		doctree.TextItem("Posologie usuelle :", doctree.Formatting{}),
		doctree.TableItem(doctree.TableBlock{
			Caption: "Adultes",
			Rows:    [][]string{{"Poids", "Dose"}, {"> 50 kg", "1 g"}},
		}),
		doctree.UnparsedItem("image"),
	}}
	want := "Posologie usuelle :\n\nAdultes\nPoids | Dose\n> 50 kg | 1 g"
	if got := SectionText(&s); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSentences_KeepsAbbreviationsAndDecimals(t *testing.T) {
	got := sentences("Prendre 0.5 mg par jour, cf. rubrique 4.2 pour les détails. Ne pas dépasser la dose! Fin")
	want := []string{
		"Prendre 0.5 mg par jour, cf. rubrique 4.2 pour les détails.",
		"Ne pas dépasser la dose!",
		"Fin",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitBlocks_LargeTableSplitsOnRows(t *testing.T) {
	var rows []string
	for i := 0; i < 60; i++ {
		rows = append(rows, "Effet indésirable fréquent | Très fréquent | Troubles digestifs")
	}
	table := strings.Join(rows, "\n")
	parts := splitBlocks([]string{"Intro courte.", table}, 100, 0)
	if len(parts) < 3 {
		t.Fatalf("expected the table to be split into several chunks, got %d", len(parts))
	}
	if parts[0] != "Intro courte." {
		t.Errorf("expected the short block to stay on its own, got %q", parts[0])
	}
	for i, p := range parts[1:] {
		for _, line := range strings.Split(p, "\n") {
			if strings.Count(line, "|") != 2 {
				t.Errorf("part %d: row cut mid-line: %q", i+1, line)
			}
		}
	}
}
