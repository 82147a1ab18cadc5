package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReadLinks(t *testing.T) {
	buf := workbook(t, [][]any{
		{"nom", " Liens "},
		{"DOLIPRANE", "https://base-donnees-publique.medicaments.gouv.fr/affichageDoc.php?specid=1&typedoc=R"},
		{"vide", ""},
		{"pas une url", "voir notice"},
		{"doublon", "https://base-donnees-publique.medicaments.gouv.fr/affichageDoc.php?specid=1&typedoc=R"},
		{"ADVIL", "http://example.org/rcp/2"},
	})

	links, err := ReadLinks(buf)
	if err != nil {
		t.Fatalf("ReadLinks: %v", err)
	}
	want := []string{
		"https://base-donnees-publique.medicaments.gouv.fr/affichageDoc.php?specid=1&typedoc=R",
		"http://example.org/rcp/2",
	}
	if len(links) != len(want) {
		t.Fatalf("got %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestReadLinks_MissingColumn(t *testing.T) {
	buf := workbook(t, [][]any{{"nom", "url"}, {"a", "https://example.org"}})
	if _, err := ReadLinks(buf); err == nil {
		t.Fatal("expected error for missing liens column")
	}
}

func TestReadLinks_NotAWorkbook(t *testing.T) {
	if _, err := ReadLinks(bytes.NewReader([]byte("liens\nhttps://example.org\n"))); err == nil {
		t.Fatal("expected error for csv input")
	}
}
