package dedup

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func cellSet(cells ...string) *CellSet {
	var s CellSet
	s.Add(cells...)
	return &s
}

// padTo extends s with filler words until it is exactly n characters long
// once trimmed. A cut landing on a space is closed with a period.
func padTo(t *testing.T, s string, n int) string {
	t.Helper()
	filler := " chez les patients traités au long cours"
	for utf8.RuneCountInString(s) < n {
		s += filler
	}
	r := []rune(s)[:n]
	if r[n-1] == ' ' {
		r[n-1] = '.'
	}
	out := string(r)
	if got := utf8.RuneCountInString(strings.TrimSpace(out)); got != n {
		t.Fatalf("padTo produced %d trimmed chars, want %d", got, n)
	}
	return out
}

func TestIsDuplicate_LongTextNeedsThreeCells(t *testing.T) {
	cells := cellSet("hypertension artérielle", "céphalées fréquentes", "nausées légères")

	two := padTo(t, "Ont été rapportés : hypertension artérielle, céphalées fréquentes", 160)
	if IsDuplicate(two, cells) {
		t.Errorf("160-char text with 2 of 3 cells must not be suppressed")
	}

	three := padTo(t, "Ont été rapportés : hypertension artérielle, céphalées fréquentes, nausées légères", 160)
	if !IsDuplicate(three, cells) {
		t.Errorf("160-char text with 3 of 3 cells must be suppressed")
	}
}

func TestIsDuplicate_LongTextIgnoresShortCells(t *testing.T) {
	// Cells of 5 characters or fewer never count towards the long-text rule.
	cells := cellSet("rare", "12 mg", "fièvre", "asthénie prolongée", "toux")
	text := padTo(t, "rare 12 mg toux fièvre asthénie prolongée", 200)
	if IsDuplicate(text, cells) {
		t.Errorf("only 2 significant cells matched; expected no suppression")
	}
}

func TestIsDuplicate_LongTextSkipsShortRules(t *testing.T) {
	// An exact match would apply to short text, but long text only counts cells.
	long := padTo(t, "x", LongTextLen+1)
	if IsDuplicate(long, cellSet(long)) {
		t.Errorf("a single matching cell is not enough for long text")
	}
}

func TestIsDuplicate_LongTextBoundary(t *testing.T) {
	atLimit := padTo(t, "x", LongTextLen)
	if !IsDuplicate(atLimit, cellSet(atLimit)) {
		t.Errorf("%d-char text is still short text and must match exactly", LongTextLen)
	}
	// Surrounding whitespace does not count towards the length.
	if !IsDuplicate("  "+atLimit+"  ", cellSet(atLimit)) {
		t.Errorf("trimmed %d-char text must stay on the short-text rules", LongTextLen)
	}

	over := padTo(t, "x", LongTextLen+1)
	if IsDuplicate(over, cellSet(over)) {
		t.Errorf("%d-char text must use the multi-cell rule", LongTextLen+1)
	}
}

func TestIsDuplicate_NumericNormalization(t *testing.T) {
	if !IsDuplicate("1,07 (0,92 - 1,23)", cellSet("1.07")) {
		t.Error("expected comma/point normalization and parenthetical truncation to match")
	}
	if !IsDuplicate("1.07", cellSet("1,07 (0,92 - 1,23)")) {
		t.Error("expected the match to hold with the parenthetical on the cell")
	}
	if !IsDuplicate("1 000,5", cellSet("1000.5")) {
		t.Error("expected inner spaces to be ignored for numeric values")
	}
	if IsDuplicate("1,08", cellSet("1.07", "résultat global")) {
		t.Error("different numbers must not match")
	}
}

func TestIsDuplicate_ExactMatchIsCaseInsensitive(t *testing.T) {
	if !IsDuplicate("x", cellSet("A", "B", "x", "y")) {
		t.Error("expected exact cell match")
	}
	if !IsDuplicate("HYPERTENSION ARTÉRIELLE", cellSet("hypertension artérielle")) {
		t.Error("expected case-insensitive match including accented letters")
	}
}

func TestIsDuplicate_ShortStringContainment(t *testing.T) {
	if !IsDuplicate("5 mg", cellSet("Comprimé 5 mg pelliculé")) {
		t.Error("short candidate contained in a cell must be a duplicate")
	}
	if IsDuplicate("dose", cellSet("aucune interaction rapportée ici")) {
		t.Error("unrelated cell must not match")
	}
	if !IsDuplicate("Voie orale stricte", cellSet("orale")) {
		t.Error("short cell contained in a short candidate must be a duplicate")
	}
	long := "une cellule nettement plus longue que vingt caractères"
	if IsDuplicate("voir la "+strings.Split(long, " ")[0], cellSet(long)) {
		t.Error("containment only applies to cells under 20 characters in that direction")
	}
}

func TestIsDuplicate_MidLengthTextNeedsExactMatch(t *testing.T) {
	// Between 20 and 150 characters only exact or numeric matches count.
	text := "La posologie est de 5 mg par jour."
	if IsDuplicate(text, cellSet("5 mg", "par jour")) {
		t.Error("mid-length text must not match by containment")
	}
	if !IsDuplicate(text, cellSet(strings.ToUpper(text))) {
		t.Error("mid-length text must match exactly")
	}
}

func TestIsDuplicate_EmptyInputs(t *testing.T) {
	if IsDuplicate("anything", nil) {
		t.Error("nil set never matches")
	}
	if IsDuplicate("anything", &CellSet{}) {
		t.Error("empty set never matches")
	}
	if IsDuplicate("   ", cellSet("a")) {
		t.Error("blank candidate never matches")
	}
}

func TestCellSet_AddResetLen(t *testing.T) {
	var s CellSet
	s.Add("Alpha", "alpha", " ", "", "beta")
	if s.Len() != 2 {
		t.Fatalf("expected 2 distinct cells, got %d", s.Len())
	}
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected empty set after reset, got %d", s.Len())
	}
	s.Add("alpha")
	if s.Len() != 1 {
		t.Fatalf("expected re-add after reset, got %d", s.Len())
	}
}

func TestIsNumeric(t *testing.T) {
	tests := map[string]bool{
		"1":                  true,
		"1,07":               true,
		"1.07 (0,92 - 1,23)": true,
		"-3,5":               true,
		"12 %":               false,
		"5 mg":               false,
		"nan":                false,
		"inf":                false,
		"":                   false,
		"(1,2)":              false,
	}
	for in, want := range tests {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"1,07 (0,92 - 1,23)": "1.07",
		"1,5 mg":             "1.5 mg",
		"texte (note)":       "texte (note)",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
