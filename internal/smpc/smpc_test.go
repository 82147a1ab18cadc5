package smpc

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/medicsearch/rcpgest/internal/element"
)

const ansmPage = `<html><body>
<div id="menuhaut">ANSM - Mis à jour le : 12/03/2024</div>
<h1 class="textedeno">DOLIPRANE 500 mg, comprimé - Résumé des caractéristiques</h1>
<p class="DateNotif">Date de notification</p>
<a name="RcpDenomination"></a>
<p class="AmmAnnexeTitre1">1. DENOMINATION DU MEDICAMENT</p>
<p class="AmmDenomination">DOLIPRANE   500 mg, comprimé</p>
<a name="RcpCompoQualiQuanti"></a>
<p class="AmmComposition">Paracétamol (sous forme micronisée)<span>........</span> 500 mg</p>
<p class="AmmComposition">Pour un comprimé.</p>
<p class="AmmAnnexeTitre1"><a name="RcpFormePharm"></a>3. FORME PHARMACEUTIQUE</p>
<p class="AmmCorpsTexte">Comprimé sécable.</p>
<p class="AmmAnnexeTitre1"><a name="RcpTitulaireAmm"></a>7. TITULAIRE DE L'AUTORISATION</p>
<p class="AmmCorpsTexte"><span class="gras">OPELLA HEALTHCARE FRANCE SAS</span></p>
<p class="AmmCorpsTexte">82 avenue Raspail</p>
<p class="AmmCorpsTexte">94250 GENTILLY</p>
<a name="RcpInstPrepRadioph"></a>
</body></html>`

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata(parse(t, ansmPage))

	if md.Title != "DOLIPRANE 500 mg, comprimé" {
		t.Errorf("unexpected title %q", md.Title)
	}
	if md.Laboratory != "OPELLA HEALTHCARE FRANCE SAS" {
		t.Errorf("unexpected laboratory %q", md.Laboratory)
	}
	if !reflect.DeepEqual(md.Substances, []string{"Paracétamol"}) {
		t.Errorf("unexpected substances %v", md.Substances)
	}
	if !reflect.DeepEqual(md.Dosages, []string{"500 mg"}) {
		t.Errorf("unexpected dosages %v", md.Dosages)
	}
	if md.Form != "Comprimé sécable" {
		t.Errorf("unexpected form %q", md.Form)
	}
	if md.UpdateDate != "12/03/2024" {
		t.Errorf("unexpected update date %q", md.UpdateDate)
	}
}

func TestExtractMetadata_Fallbacks(t *testing.T) {
	doc := parse(t, `<html><body>
<div id="menuhaut">Dernière mise à jour le 01/02/2023</div>
<h1 class="textedeno">ADVIL 200 mg, comprimé enrobé - RCP</h1>
</body></html>`)
	md := ExtractMetadata(doc)

	if md.Title != "ADVIL 200 mg, comprimé enrobé" {
		t.Errorf("expected h1 title, got %q", md.Title)
	}
	if md.Form != "comprimé enrobé" {
		t.Errorf("expected form from title, got %q", md.Form)
	}
	if md.UpdateDate != "01/02/2023" {
		t.Errorf("expected date from menu, got %q", md.UpdateDate)
	}
	if md.Laboratory != "" || len(md.Substances) != 0 || md.Dosages == nil {
		t.Errorf("expected empty laboratory and composition, got %+v", md)
	}
}

func TestExtractMetadata_Defaults(t *testing.T) {
	md := ExtractMetadata(parse(t, "<p>rien</p>"))
	if md.Title != UntitledDocument || md.UpdateDate != DateNotFound {
		t.Errorf("expected defaults, got %+v", md)
	}
	if md := ExtractMetadata(nil); md.Title != UntitledDocument {
		t.Errorf("expected defaults for nil tree, got %+v", md)
	}
}

func TestLaboratory_SkipsAddressLines(t *testing.T) {
	doc := parse(t, `<body>
<p><a name="RcpTitulaireAmm"></a>7. TITULAIRE</p>
<p>12 rue de la Paix</p>
<p>75002 PARIS</p>
<p>LABORATOIRES GILBERT</p>
</body>`)
	if got := ExtractMetadata(doc).Laboratory; got != "LABORATOIRES GILBERT" {
		t.Errorf("expected laboratory line, got %q", got)
	}
}

func el(kind element.Kind, text string) element.Element {
	return element.Element{Kind: kind, Text: text}
}

func TestProfileMarkers(t *testing.T) {
	p := DefaultProfile()
	start, stop := p.Start(), p.Stop()

	if !start(element.Element{Anchor: AnchorDenomination}) {
		t.Error("expected denomination anchor to start")
	}
	if !start(element.Element{Classes: []string{ClassDateNotif}}) {
		t.Error("expected notification date paragraph to start")
	}
	if !stop(element.Element{Anchor: AnchorInstPrepRadioph}) {
		t.Error("expected radiopharmaceutical anchor to stop")
	}
	if stop(el(element.Heading, "7. TITULAIRE")) {
		t.Error("cut-off must be off by default")
	}

	p.Cutoff = "6.6"
	if !p.Stop()(el(element.Heading, "7. TITULAIRE")) {
		t.Error("expected cut-off to stop past 6.6")
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	data := `
vocabulary:
  bold: [fort]
stop_anchors: [Fin]
cutoff: "6.6"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(p.Vocabulary.Bold, []string{"fort"}) {
		t.Errorf("expected bold override, got %v", p.Vocabulary.Bold)
	}
	if !reflect.DeepEqual(p.Vocabulary.HeadingFamilies, element.DefaultVocabulary().HeadingFamilies) {
		t.Errorf("expected default heading families, got %v", p.Vocabulary.HeadingFamilies)
	}
	if !reflect.DeepEqual(p.StartAnchors, []string{AnchorDenomination}) || p.Cutoff != "6.6" {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.UnsectionedTitle == "" {
		t.Error("expected default unsectioned title")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("cutoff: abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(bad); err == nil {
		t.Error("expected invalid cutoff to be rejected")
	}
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file error")
	}
}

func TestContentHash(t *testing.T) {
	a, b := ContentHash([]byte("x")), ContentHash([]byte("y"))
	if a == b || len(a) != 64 {
		t.Errorf("unexpected hashes %q %q", a, b)
	}
}
