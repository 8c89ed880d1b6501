// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ArtifactFormat identifies the byte format of a fetched artifact.
type ArtifactFormat string

const (
	FormatHTML    ArtifactFormat = "html"
	FormatPDF     ArtifactFormat = "pdf"
	FormatXML     ArtifactFormat = "xml"
	FormatUnknown ArtifactFormat = "unknown"
)

// RouteKind names a strategy for obtaining a work's full-text artifact.
// Ordering of routes encodes preference; the kinds themselves carry no order.
type RouteKind string

const (
	// RouteOpenAccess resolves an open-access copy via OpenAlex.
	RouteOpenAccess RouteKind = "open-access"

	// RoutePublisherAPI uses a publisher's full-text API (Elsevier article
	// API, Wiley TDM, Springer HTML endpoint).
	RoutePublisherAPI RouteKind = "publisher-api"

	// RouteProxy retrieves through an institutional proxy host.
	RouteProxy RouteKind = "institutional-proxy"

	// RouteManual reads a pre-staged artifact from the scratch cache.
	RouteManual RouteKind = "manual"
)

// AccessRoute is one candidate way to retrieve an identifier's artifact.
// Routes are statically known per publisher; the resolver returns them in
// preference order (cheapest and most reliable first).
type AccessRoute struct {
	// Kind selects the retrieval strategy.
	Kind RouteKind `json:"kind" yaml:"kind"`

	// Publisher is the publisher code this route serves ("elsevier",
	// "springer", "wiley", "rsc"), or empty for publisher-agnostic routes.
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`

	// RateClass scopes rate limiting. Routes sharing a class share one
	// limiter across all in-flight identifiers.
	RateClass string `json:"rate_class" yaml:"rate_class"`

	// Format is the artifact format this route is expected to deliver.
	Format ArtifactFormat `json:"format" yaml:"format"`
}

// Name returns a stable human-readable route name, e.g.
// "publisher-api/elsevier" or "open-access".
func (r AccessRoute) Name() string {
	if r.Publisher == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + "/" + r.Publisher
}
