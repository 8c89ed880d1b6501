// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// numberedHeading matches "2 Results", "3.1 Synthesis", "4.2.1 XRD".
var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)

// wellKnownHeadings are section names that appear as bare lines in paper
// text layers, lowercased for comparison.
var wellKnownHeadings = map[string]bool{
	"abstract":               true,
	"introduction":           true,
	"background":             true,
	"experimental":           true,
	"methods":                true,
	"methodology":            true,
	"materials and methods":  true,
	"results":                true,
	"results and discussion": true,
	"discussion":             true,
	"conclusion":             true,
	"conclusions":            true,
	"acknowledgements":       true,
	"acknowledgments":        true,
	"references":             true,
}

// extractPDF pulls the text layer and reconstructs structure with line
// heuristics: blank lines split paragraphs, and short lines that look
// like numbered or well-known section names become headings. The pdf
// reader panics on some malformed files, so the panic is converted to an
// error here.
func (p *Parser) extractPDF(data []byte) (blocks []block, meta types.DocumentMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks, err = nil, fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, meta, fmt.Errorf("opening pdf: %w", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, meta, fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, meta, fmt.Errorf("reading pdf text: %w", err)
	}

	return pdfBlocks(buf.String()), meta, nil
}

// pdfBlocks splits extracted text into heading and paragraph blocks.
func pdfBlocks(text string) []block {
	var blocks []block
	var para []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{text: strings.Join(para, " ")})
			para = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushPara()
			continue
		}
		if isPDFHeading(line) {
			flushPara()
			blocks = append(blocks, block{heading: true, level: pdfHeadingLevel(line), text: line})
			continue
		}
		para = append(para, line)
	}
	flushPara()
	return blocks
}

// isPDFHeading reports whether a line looks like a section heading: short,
// not ending a sentence, and either numbered or a well-known section name.
func isPDFHeading(line string) bool {
	if len(line) > 80 || strings.HasSuffix(line, ".") {
		return false
	}
	if wellKnownHeadings[strings.ToLower(line)] {
		return true
	}
	return numberedHeading.MatchString(line)
}

// pdfHeadingLevel derives nesting from the numeric prefix: "3.1 ..." is
// level 2, unnumbered headings are level 1.
func pdfHeadingLevel(line string) int {
	prefix, _, ok := strings.Cut(line, " ")
	if !ok {
		return 1
	}
	level := strings.Count(strings.TrimSuffix(prefix, "."), ".") + 1
	if !numberedHeading.MatchString(line) {
		return 1
	}
	return level
}
