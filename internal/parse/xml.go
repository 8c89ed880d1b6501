// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Element names whose whole subtree is skipped. Covers Elsevier ce:
// full-text markup; namespace prefixes are ignored so both "ce:table"
// and "table" match.
var xmlSkipElements = map[string]bool{
	"table":           true,
	"figure":          true,
	"ref-list":        true,
	"bibliography":    true,
	"references":      true,
	"further-reading": true,
	"cross-refs":      true,
}

// extractXML walks publisher XML full text in document order. Section
// titles come from section-title elements, paragraphs from para and
// simple-para, nesting depth from the section element stack. The article
// title and DOI are read from the head elements when present.
func (p *Parser) extractXML(data []byte) ([]block, types.DocumentMetadata, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false

	var (
		blocks    []block
		meta      types.DocumentMetadata
		capture   string
		text      strings.Builder
		skipDepth int
		secDepth  int
	)

	flush := func() {
		t := text.String()
		text.Reset()
		switch capture {
		case "section-title":
			level := secDepth
			if level < 1 {
				level = 1
			}
			blocks = append(blocks, block{heading: true, level: level, text: t})
		case "para", "simple-para":
			blocks = append(blocks, block{text: t})
		case "title":
			if meta.Title == "" {
				meta.Title = collapseWhitespace(t)
			}
		}
		capture = ""
	}

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, meta, fmt.Errorf("parsing xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			switch {
			case xmlSkipElements[name]:
				skipDepth = 1
			case name == "section":
				secDepth++
			case name == "section-title", name == "para", name == "simple-para":
				flush()
				capture = name
			case name == "title" && meta.Title == "":
				flush()
				capture = name
			}

		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			name := strings.ToLower(t.Name.Local)
			if name == "section" && secDepth > 0 {
				secDepth--
			}
			if capture == name {
				flush()
			}

		case xml.CharData:
			if skipDepth == 0 && capture != "" {
				text.Write(t)
			}
		}
	}
	flush()

	return blocks, meta, nil
}
