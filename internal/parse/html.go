// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Subtrees that never carry body prose. Removed before the walk so their
// text cannot leak into paragraphs.
const htmlStripSelector = "table, figure, figcaption, aside, footer, header, nav, script, style, code"

// extractHTML walks the article (or body) element in document order,
// treating h1-h3 as section boundaries and p elements as paragraphs.
// Paragraphs shorter than MinParagraphChars are dropped as boilerplate
// (link rows, button labels, cookie banners).
func (p *Parser) extractHTML(data []byte) ([]block, types.DocumentMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, types.DocumentMetadata{}, fmt.Errorf("parsing html: %w", err)
	}

	meta := htmlMetadata(doc)

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		return nil, meta, nil
	}
	root.Find(htmlStripSelector).Remove()

	var blocks []block
	root.Find("h1, h2, h3, p").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		switch name := goquery.NodeName(s); name {
		case "h1", "h2", "h3":
			level, _ := strconv.Atoi(name[1:])
			blocks = append(blocks, block{heading: true, level: level, text: text})
		default:
			if len(strings.TrimSpace(text)) < p.cfg.MinParagraphChars {
				return
			}
			blocks = append(blocks, block{text: text})
		}
	})
	return blocks, meta, nil
}

// htmlMetadata reads bibliographic meta tags. Google Scholar citation_*
// names are tried first, then Dublin Core, then Open Graph.
func htmlMetadata(doc *goquery.Document) types.DocumentMetadata {
	meta := types.DocumentMetadata{
		Title:     metaContent(doc, "citation_title", "dc.title", "DC.title", "og:title"),
		Publisher: metaContent(doc, "citation_publisher", "dc.publisher", "DC.publisher"),
		Venue:     metaContent(doc, "citation_journal_title", "prism.publicationName"),
	}

	doc.Find(`meta[name="citation_author"], meta[name="DC.Creator"], meta[name="dc.creator"]`).
		Each(func(_ int, s *goquery.Selection) {
			if name := strings.TrimSpace(s.AttrOr("content", "")); name != "" {
				meta.Authors = append(meta.Authors, name)
			}
		})

	if date := metaContent(doc, "citation_publication_date", "citation_date", "prism.publicationDate", "dc.date"); len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			meta.Year = y
		}
	}
	return meta
}

// metaContent returns the first non-empty content attribute among meta
// tags with the given names, checking both name= and property= forms.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, n := range names {
		sel := fmt.Sprintf(`meta[name=%q], meta[property=%q]`, n, n)
		if c := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); c != "" {
			return c
		}
	}
	return ""
}
