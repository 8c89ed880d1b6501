// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var crossrefAPIBase = "https://api.crossref.org/works/"

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Publisher      string           `json:"publisher"`
	Author         []crossrefAuthor `json:"author"`
	Created        crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// FetchMetadata retrieves bibliographic metadata for a DOI from the
// CrossRef API. The result carries full confidence since CrossRef is
// authoritative for DOI records; callers merge it over parser-derived
// metadata. Transient API responses are retried with backoff.
func FetchMetadata(ctx context.Context, client *http.Client, userAgent, doi string) (types.DocumentMetadata, error) {
	var meta types.DocumentMetadata

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+doi, nil)
	if err != nil {
		return meta, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return meta, fmt.Errorf("CrossRef API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return meta, fmt.Errorf("CrossRef API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return meta, fmt.Errorf("parsing CrossRef response: %w", err)
	}

	if len(cr.Message.Title) > 0 {
		meta.Title = cr.Message.Title[0]
	}
	if len(cr.Message.ContainerTitle) > 0 {
		meta.Venue = cr.Message.ContainerTitle[0]
	}
	meta.Publisher = cr.Message.Publisher

	for _, a := range cr.Message.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}

	if len(cr.Message.Created.DateParts) > 0 && len(cr.Message.Created.DateParts[0]) >= 1 {
		meta.Year = cr.Message.Created.DateParts[0][0]
	}

	meta.Confidence = 1.0
	return meta, nil
}
