// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionKind classifies a section by its role in the paper. Kinds mirror
// the categories downstream analysis consumes; SectionNull marks sections
// (acknowledgements, references, funding) that are dropped before storage.
type SectionKind string

const (
	SectionAbstract    SectionKind = "abstract"
	SectionIntro       SectionKind = "intro"
	SectionResults     SectionKind = "results"
	SectionConclusions SectionKind = "conclusions"
	SectionRecipe      SectionKind = "recipe"
	SectionMethods     SectionKind = "nonrecipe_methods"
	SectionOther       SectionKind = "other"
	SectionNull        SectionKind = "null"
)

// Paragraph is one block of body text. Text is never empty or
// whitespace-only; Order matches source document order within the section.
type Paragraph struct {
	Order int    `json:"order" yaml:"order"`
	Text  string `json:"text" yaml:"text"`
}

// Section is an ordered run of paragraphs under one heading. Sections with
// no paragraphs are omitted from StructuredDocument.
type Section struct {
	Title      string      `json:"title" yaml:"title"`
	Kind       SectionKind `json:"kind" yaml:"kind"`
	Order      int         `json:"order" yaml:"order"`
	Paragraphs []Paragraph `json:"paragraphs" yaml:"paragraphs"`
}

// DocumentMetadata holds bibliographic fields plus the parse confidence.
// Bibliographic fields come from the artifact itself or from the CrossRef
// record fetched alongside the artifact; any of them may be empty.
type DocumentMetadata struct {
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors    []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Venue      string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Year       int      `json:"year,omitempty" yaml:"year,omitempty"`
	Publisher  string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// StructuredDocument is the canonical shape every parse strategy converges
// on: the identifier, ordered sections of ordered paragraphs, and metadata.
type StructuredDocument struct {
	Identifier string           `json:"identifier" yaml:"identifier"`
	Batch      string           `json:"batch,omitempty" yaml:"batch,omitempty"`
	Sections   []Section        `json:"sections" yaml:"sections"`
	Metadata   DocumentMetadata `json:"metadata" yaml:"metadata"`
}

// ParagraphCount returns the total paragraphs across all sections.
func (d *StructuredDocument) ParagraphCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Paragraphs)
	}
	return n
}
