// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse converts raw artifacts into structured documents.
//
// Each supported format has its own extraction strategy (HTML structure
// walk, Elsevier-style XML elements, PDF text layer); all strategies emit
// the same flat block stream, which a shared assembler turns into ordered
// sections of ordered paragraphs. Parsing is a pure transform of the
// artifact bytes with no network or storage side effects.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

var (
	// ErrEmptyContent means the artifact yielded zero non-empty paragraphs.
	ErrEmptyContent = errors.New("no extractable content")

	// ErrUnsupportedFormat means no strategy exists for the artifact format.
	ErrUnsupportedFormat = errors.New("unsupported artifact format")
)

const defaultMinParagraphChars = 20

// block is one unit of the flat stream a strategy emits: either a heading
// (with its nesting level) or a body paragraph.
type block struct {
	heading bool
	level   int
	text    string
}

// Parser dispatches artifacts to per-format extraction strategies.
type Parser struct {
	cfg types.ParseConfig
}

func New(cfg types.ParseConfig) *Parser {
	if cfg.MinParagraphChars <= 0 {
		cfg.MinParagraphChars = defaultMinParagraphChars
	}
	return &Parser{cfg: cfg}
}

// Parse extracts a structured document from the artifact. Section and
// paragraph order follow source order; sections classified as null
// (references, acknowledgements, funding) are dropped before assembly.
func (p *Parser) Parse(id types.WorkIdentifier, art types.RawArtifact) (*types.StructuredDocument, error) {
	var blocks []block
	var meta types.DocumentMetadata
	var err error

	switch art.Format {
	case types.FormatHTML:
		blocks, meta, err = p.extractHTML(art.Data)
	case types.FormatXML:
		blocks, meta, err = p.extractXML(art.Data)
	case types.FormatPDF:
		blocks, meta, err = p.extractPDF(art.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, art.Format)
	}
	if err != nil {
		return nil, err
	}

	sections := assemble(blocks)
	doc := &types.StructuredDocument{
		Identifier: id.ID,
		Batch:      id.Batch,
		Sections:   sections,
		Metadata:   meta,
	}
	if doc.ParagraphCount() == 0 {
		return nil, ErrEmptyContent
	}
	doc.Metadata.Confidence = confidence(len(art.Data), sections)
	return doc, nil
}

// assemble folds the block stream into sections. Paragraphs before the
// first heading (or in a heading-free document) land in a synthetic
// "Body" section. Empty sections and null-kind sections are omitted.
func assemble(blocks []block) []types.Section {
	type pending struct {
		title  string
		parent string
		paras  []string
	}

	var flat []pending
	cur := pending{}
	open := map[int]string{}

	for _, b := range blocks {
		text := collapseWhitespace(b.text)
		if text == "" {
			continue
		}
		if !b.heading {
			cur.paras = append(cur.paras, text)
			continue
		}

		flat = append(flat, cur)

		parent := ""
		for l := b.level - 1; l >= 1; l-- {
			if h, ok := open[l]; ok {
				parent = h
				break
			}
		}
		for l := b.level; l <= 6; l++ {
			delete(open, l)
		}
		open[b.level] = text
		cur = pending{title: text, parent: parent}
	}
	flat = append(flat, cur)

	var out []types.Section
	for _, s := range flat {
		if len(s.paras) == 0 {
			continue
		}
		kind := ClassifySection(s.title, s.parent)
		if kind == types.SectionNull {
			continue
		}
		title := s.title
		if title == "" {
			title = "Body"
		}
		sec := types.Section{Title: title, Kind: kind, Order: len(out)}
		for i, text := range s.paras {
			sec.Paragraphs = append(sec.Paragraphs, types.Paragraph{Order: i, Text: text})
		}
		out = append(out, sec)
	}
	return out
}

// confidence scores a parse from the fraction of artifact bytes retained
// as text and the number of detected boundaries. The score lands in
// [0, 1]; downstream consumers filter low-confidence parses without
// re-parsing.
func confidence(artifactSize int, sections []types.Section) float64 {
	if artifactSize == 0 {
		return 0
	}

	textBytes, paras := 0, 0
	for _, s := range sections {
		paras += len(s.Paragraphs)
		for _, p := range s.Paragraphs {
			textBytes += len(p.Text)
		}
	}

	// Markup-heavy formats retain a small fraction of their bytes as text,
	// so the fraction term saturates well below 1:1.
	frac := 5 * float64(textBytes) / float64(artifactSize)
	if frac > 1 {
		frac = 1
	}

	score := 0.6 * frac
	if len(sections) > 1 {
		score += 0.2
	}
	if paras >= 10 {
		score += 0.2
	} else {
		score += 0.02 * float64(paras)
	}
	if score > 1 {
		score = 1
	}
	return score
}

// collapseWhitespace trims the string and folds runs of whitespace
// (including newlines) into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
