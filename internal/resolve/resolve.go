// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps work identifiers to ordered access routes.
//
// Publishers are recognized by DOI prefix; each known publisher has a static
// preference-ordered route list. Identifiers with no publisher mapping get
// the default (most conservative) ordering. Resolution is a pure function of
// the identifier and the route table and never fails.
package resolve

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// doiPattern matches DOIs: "10.1016/j.actamat.2023.118842".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// prefixTable maps DOI registrant prefixes to publisher codes.
var prefixTable = map[string]string{
	"10.1016": "elsevier",
	"10.1006": "elsevier",
	"10.1205": "elsevier",
	"10.1007": "springer",
	"10.1140": "springer",
	"10.1891": "springer",
	"10.1617": "springer",
	"10.1023": "springer",
	"10.1186": "springer",
	"10.1039": "rsc",
	"10.1002": "wiley",
	"10.1111": "wiley",
}

// Publisher returns the publisher code for an identifier, or "" when the
// prefix is not mapped.
func Publisher(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if i := strings.IndexByte(identifier, '/'); i > 0 {
		return prefixTable[identifier[:i]]
	}
	return ""
}

// IsDOI reports whether the identifier looks like a DOI.
func IsDOI(identifier string) bool {
	return doiPattern.MatchString(strings.TrimSpace(identifier))
}

// Slug returns a filesystem-safe key for the identifier: "/" and ":" become
// "-". Scratch artifacts and sidecar files are named by this slug.
func Slug(identifier string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(strings.TrimSpace(identifier))
}

// Table is a publisher-to-routes mapping plus a default ordering. The zero
// value is unusable; construct with DefaultTable or Load.
type Table struct {
	Publishers map[string][]types.AccessRoute `yaml:"publishers"`
	Default    []types.AccessRoute            `yaml:"default"`
}

// DefaultTable returns the built-in route table. Every ordering ends with
// the manual route so resolution always has a last resort.
func DefaultTable() *Table {
	openAccess := types.AccessRoute{Kind: types.RouteOpenAccess, RateClass: "openalex", Format: types.FormatPDF}
	manual := types.AccessRoute{Kind: types.RouteManual, Format: types.FormatUnknown}

	return &Table{
		Publishers: map[string][]types.AccessRoute{
			"elsevier": {
				openAccess,
				{Kind: types.RoutePublisherAPI, Publisher: "elsevier", RateClass: "elsevier", Format: types.FormatXML},
				manual,
			},
			"springer": {
				openAccess,
				{Kind: types.RoutePublisherAPI, Publisher: "springer", RateClass: "springer", Format: types.FormatHTML},
				{Kind: types.RouteProxy, Publisher: "springer", RateClass: "proxy", Format: types.FormatHTML},
				manual,
			},
			"wiley": {
				openAccess,
				{Kind: types.RoutePublisherAPI, Publisher: "wiley", RateClass: "wiley", Format: types.FormatPDF},
				manual,
			},
			"rsc": {
				openAccess,
				{Kind: types.RouteProxy, Publisher: "rsc", RateClass: "proxy", Format: types.FormatHTML},
				manual,
			},
		},
		Default: []types.AccessRoute{
			openAccess,
			{Kind: types.RouteProxy, RateClass: "proxy", Format: types.FormatHTML},
			manual,
		},
	}
}

// Load reads a route table from a YAML file. Missing sections fall back to
// the built-in defaults, so a file may override only selected publishers.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route table %s: %w", path, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing route table %s: %w", path, err)
	}

	def := DefaultTable()
	if t.Publishers == nil {
		t.Publishers = def.Publishers
	} else {
		for pub, routes := range def.Publishers {
			if _, ok := t.Publishers[pub]; !ok {
				t.Publishers[pub] = routes
			}
		}
	}
	if len(t.Default) == 0 {
		t.Default = def.Default
	}
	return &t, nil
}

// Resolve returns the ordered candidate routes for an identifier. The list
// is never empty and always ends with the manual route.
func (t *Table) Resolve(id types.WorkIdentifier) []types.AccessRoute {
	routes, ok := t.Publishers[Publisher(id.ID)]
	if !ok {
		routes = t.Default
	}

	out := make([]types.AccessRoute, len(routes))
	copy(out, routes)
	if len(out) == 0 || out[len(out)-1].Kind != types.RouteManual {
		out = append(out, types.AccessRoute{Kind: types.RouteManual, Format: types.FormatUnknown})
	}
	return out
}
