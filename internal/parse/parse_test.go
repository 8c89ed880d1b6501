// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"errors"
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const sampleArticleHTML = `<!DOCTYPE html>
<html>
<head>
  <meta name="citation_title" content="Hydrothermal growth of ZnO nanowires">
  <meta name="citation_author" content="Grace Hopper">
  <meta name="citation_author" content="Alan Turing">
  <meta name="citation_journal_title" content="Journal of Crystal Growth">
  <meta name="citation_publication_date" content="2024/03/15">
</head>
<body>
<article>
  <h1>Hydrothermal growth of ZnO nanowires</h1>
  <h2>Abstract</h2>
  <p>Zinc oxide nanowires were grown on seeded substrates at low temperature.</p>
  <h2>1. Introduction</h2>
  <p>One-dimensional oxide nanostructures attract attention for optoelectronics.</p>
  <p>Hydrothermal routes offer low cost and mild processing conditions overall.</p>
  <h2>2. Experimental</h2>
  <h3>2.1 Synthesis of nanowires</h3>
  <p>Substrates were immersed in an equimolar zinc nitrate and HMTA solution.</p>
  <h3>2.2 Characterization</h3>
  <p>Morphology was examined with field emission scanning electron microscopy.</p>
  <h2>3. Results and discussion</h2>
  <table><tr><td>Growth rate data that must not appear in paragraphs</td></tr></table>
  <p>Aligned arrays formed within two hours of immersion in the growth bath.</p>
  <h2>References</h2>
  <p>1. A long reference entry that should be dropped with its whole section.</p>
</article>
</body>
</html>`

func parseSample(t *testing.T, format types.ArtifactFormat, data string) *types.StructuredDocument {
	t.Helper()
	p := New(types.ParseConfig{})
	doc, err := p.Parse(
		types.WorkIdentifier{ID: "10.1016/j.jcrysgro.2024.01.001", Batch: "zno-2024"},
		types.RawArtifact{Key: "k", Format: format, Data: []byte(data)},
	)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return doc
}

func TestParseHTMLSectionsInOrder(t *testing.T) {
	doc := parseSample(t, types.FormatHTML, sampleArticleHTML)

	wantTitles := []string{
		"Abstract",
		"1. Introduction",
		"2.1 Synthesis of nanowires",
		"2.2 Characterization",
		"3. Results and discussion",
	}
	if len(doc.Sections) != len(wantTitles) {
		t.Fatalf("sections = %d, want %d: %+v", len(doc.Sections), len(wantTitles), doc.Sections)
	}
	for i, want := range wantTitles {
		if doc.Sections[i].Title != want {
			t.Errorf("section %d title = %q, want %q", i, doc.Sections[i].Title, want)
		}
		if doc.Sections[i].Order != i {
			t.Errorf("section %d order = %d", i, doc.Sections[i].Order)
		}
	}
}

func TestParseHTMLSectionKinds(t *testing.T) {
	doc := parseSample(t, types.FormatHTML, sampleArticleHTML)

	kinds := map[string]types.SectionKind{}
	for _, s := range doc.Sections {
		kinds[s.Title] = s.Kind
	}

	if kinds["Abstract"] != types.SectionAbstract {
		t.Errorf("abstract kind = %v", kinds["Abstract"])
	}
	if kinds["1. Introduction"] != types.SectionIntro {
		t.Errorf("intro kind = %v", kinds["1. Introduction"])
	}
	if kinds["2.1 Synthesis of nanowires"] != types.SectionRecipe {
		t.Errorf("synthesis kind = %v", kinds["2.1 Synthesis of nanowires"])
	}
	if kinds["2.2 Characterization"] != types.SectionMethods {
		t.Errorf("characterization kind = %v", kinds["2.2 Characterization"])
	}
	if _, ok := kinds["References"]; ok {
		t.Error("references section survived null filtering")
	}
}

func TestParseHTMLStripsTables(t *testing.T) {
	doc := parseSample(t, types.FormatHTML, sampleArticleHTML)
	for _, s := range doc.Sections {
		for _, p := range s.Paragraphs {
			if p.Text == "" {
				t.Error("empty paragraph stored")
			}
			if containsAny(p.Text, []string{"Growth rate data"}) {
				t.Errorf("table text leaked into paragraph %q", p.Text)
			}
		}
	}
}

func TestParseHTMLMetadata(t *testing.T) {
	doc := parseSample(t, types.FormatHTML, sampleArticleHTML)

	if doc.Metadata.Title != "Hydrothermal growth of ZnO nanowires" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	if len(doc.Metadata.Authors) != 2 || doc.Metadata.Authors[0] != "Grace Hopper" {
		t.Errorf("authors = %v", doc.Metadata.Authors)
	}
	if doc.Metadata.Venue != "Journal of Crystal Growth" {
		t.Errorf("venue = %q", doc.Metadata.Venue)
	}
	if doc.Metadata.Year != 2024 {
		t.Errorf("year = %d", doc.Metadata.Year)
	}
	if doc.Metadata.Confidence <= 0 || doc.Metadata.Confidence > 1 {
		t.Errorf("confidence = %v, want within (0, 1]", doc.Metadata.Confidence)
	}
}

func TestParseHTMLNoHeadingsSyntheticBody(t *testing.T) {
	html := `<html><body>
<p>A single paragraph of prose with no headings anywhere in the page.</p>
<p>A second paragraph to confirm ordering is preserved within the body.</p>
</body></html>`

	doc := parseSample(t, types.FormatHTML, html)

	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(doc.Sections))
	}
	if doc.Sections[0].Title != "Body" {
		t.Errorf("title = %q, want %q", doc.Sections[0].Title, "Body")
	}
	if len(doc.Sections[0].Paragraphs) != 2 {
		t.Errorf("paragraphs = %d, want 2", len(doc.Sections[0].Paragraphs))
	}
}

func TestParseHTMLDropsShortParagraphs(t *testing.T) {
	html := `<html><body>
<p>Read more</p>
<p>This paragraph is long enough to survive the boilerplate length filter.</p>
</body></html>`

	doc := parseSample(t, types.FormatHTML, html)

	if n := doc.ParagraphCount(); n != 1 {
		t.Errorf("paragraphs = %d, want 1 (short link text dropped)", n)
	}
}

func TestParseEmptyContent(t *testing.T) {
	p := New(types.ParseConfig{})
	_, err := p.Parse(
		types.WorkIdentifier{ID: "10.1039/d4cc00009x"},
		types.RawArtifact{Format: types.FormatHTML, Data: []byte("<html><body></body></html>")},
	)
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	p := New(types.ParseConfig{})
	_, err := p.Parse(
		types.WorkIdentifier{ID: "10.1039/d4cc00010x"},
		types.RawArtifact{Format: types.FormatUnknown, Data: []byte("anything")},
	)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

const sampleElsevierXML = `<?xml version="1.0" encoding="UTF-8"?>
<full-text-retrieval-response xmlns:ce="http://www.elsevier.com/xml/common/dtd">
  <coredata>
    <ce:title>Sol-gel derived silica aerogels</ce:title>
    <ce:doi>10.1016/j.example.2024.01.002</ce:doi>
  </coredata>
  <ce:abstract>
    <ce:section-title>Abstract</ce:section-title>
    <ce:simple-para>Monolithic silica aerogels were prepared by supercritical drying.</ce:simple-para>
  </ce:abstract>
  <ce:sections>
    <ce:section>
      <ce:section-title>Introduction</ce:section-title>
      <ce:para>Aerogels combine low density with very low thermal conductivity.</ce:para>
    </ce:section>
    <ce:section>
      <ce:section-title>Results and discussion</ce:section-title>
      <ce:para>Drying above the critical point preserved the gel network intact.</ce:para>
      <ce:table><ce:para>tabulated densities that must not leak</ce:para></ce:table>
    </ce:section>
  </ce:sections>
  <ce:bibliography>
    <ce:para>Reference text that must be skipped entirely.</ce:para>
  </ce:bibliography>
</full-text-retrieval-response>`

func TestParseXML(t *testing.T) {
	doc := parseSample(t, types.FormatXML, sampleElsevierXML)

	if doc.Metadata.Title != "Sol-gel derived silica aerogels" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}

	wantTitles := []string{"Abstract", "Introduction", "Results and discussion"}
	if len(doc.Sections) != len(wantTitles) {
		t.Fatalf("sections = %d, want %d: %+v", len(doc.Sections), len(wantTitles), doc.Sections)
	}
	for i, want := range wantTitles {
		if doc.Sections[i].Title != want {
			t.Errorf("section %d title = %q, want %q", i, doc.Sections[i].Title, want)
		}
	}
	if doc.Sections[0].Kind != types.SectionAbstract {
		t.Errorf("abstract kind = %v", doc.Sections[0].Kind)
	}

	for _, s := range doc.Sections {
		for _, p := range s.Paragraphs {
			if containsAny(p.Text, []string{"tabulated densities", "Reference text"}) {
				t.Errorf("skipped subtree leaked: %q", p.Text)
			}
		}
	}
}

func TestPDFBlocks(t *testing.T) {
	text := "Abstract\nAerogels were prepared by a two step sol-gel route.\n\n1 Introduction\nLine one of the introduction\ncontinues on a second line.\n\n2.1 Synthesis\nPrecursor solutions were mixed at room temperature.\n"

	blocks := pdfBlocks(text)

	var headings []string
	var paras []string
	for _, b := range blocks {
		if b.heading {
			headings = append(headings, b.text)
		} else {
			paras = append(paras, b.text)
		}
	}

	wantHeadings := []string{"Abstract", "1 Introduction", "2.1 Synthesis"}
	if len(headings) != len(wantHeadings) {
		t.Fatalf("headings = %v, want %v", headings, wantHeadings)
	}
	for i, want := range wantHeadings {
		if headings[i] != want {
			t.Errorf("heading %d = %q, want %q", i, headings[i], want)
		}
	}

	if len(paras) != 3 {
		t.Fatalf("paragraphs = %v, want 3", paras)
	}
	if paras[1] != "Line one of the introduction continues on a second line." {
		t.Errorf("wrapped lines not joined: %q", paras[1])
	}
}

func TestIsPDFHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Abstract", true},
		{"1 Introduction", true},
		{"3.1 Synthesis of precursors", true},
		{"Results and discussion", true},
		{"The sample was dried at 80 degrees overnight.", false},
		{"A heading-length line that is not a known section nor numbered", false},
	}
	for _, tt := range tests {
		if got := isPDFHeading(tt.line); got != tt.want {
			t.Errorf("isPDFHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestPDFHeadingLevel(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"1 Introduction", 1},
		{"2.1 Synthesis", 2},
		{"4.2.1 XRD patterns", 3},
		{"Abstract", 1},
	}
	for _, tt := range tests {
		if got := pdfHeadingLevel(tt.line); got != tt.want {
			t.Errorf("pdfHeadingLevel(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}
