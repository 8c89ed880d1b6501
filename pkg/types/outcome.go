// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FetchStatus is the overall result of driving one identifier through its
// candidate routes.
type FetchStatus string

const (
	// FetchSuccess: full artifact retrieved with the expected format.
	FetchSuccess FetchStatus = "success"

	// FetchPartial: an artifact was retrieved but its format mismatched or
	// the body looked truncated. The best such candidate is kept.
	FetchPartial FetchStatus = "partial"

	// FetchFailure: every route was exhausted without retrieving anything.
	FetchFailure FetchStatus = "failed"
)

// FailReason classifies why an attempt, route, or stage failed.
type FailReason string

const (
	// ReasonRouteUnavailable covers transient conditions: timeouts,
	// rate-limit waits that expired, and 5xx-class responses.
	ReasonRouteUnavailable FailReason = "route_unavailable"

	// ReasonRouteDenied covers authentication and permission failures and
	// not-found responses; terminal for the route, the next route is tried.
	ReasonRouteDenied FailReason = "route_denied"

	// ReasonTruncated marks an artifact that arrived shorter than its
	// declared length.
	ReasonTruncated FailReason = "artifact_truncated"

	// ReasonFormatMismatch marks an artifact whose detected format differs
	// from the route's expected format.
	ReasonFormatMismatch FailReason = "format_mismatch"

	// ReasonEmptyContent marks a parse that produced no non-empty paragraphs.
	ReasonEmptyContent FailReason = "empty_content"

	// ReasonUnsupportedFormat marks an artifact format no parse strategy
	// handles.
	ReasonUnsupportedFormat FailReason = "unsupported_format"

	// ReasonPersistence marks a corpus store error. Treated as potentially
	// systemic and surfaced immediately.
	ReasonPersistence FailReason = "persistence_error"
)

// RouteAttempt records the terminal result of one route during a fetch.
type RouteAttempt struct {
	Route  string     `json:"route" yaml:"route"`
	Reason FailReason `json:"reason" yaml:"reason"`
	Detail string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// FetchOutcome is the recorded result of fetching one identifier. Persisted
// so re-runs can skip identifiers that already resolved.
type FetchOutcome struct {
	Identifier string      `json:"identifier" yaml:"identifier"`
	Status     FetchStatus `json:"status" yaml:"status"`

	// Format and ArtifactKey are set on success and partial success.
	// ArtifactKey locates the raw bytes in scratch storage.
	Format      ArtifactFormat `json:"format,omitempty" yaml:"format,omitempty"`
	ArtifactKey string         `json:"artifact_key,omitempty" yaml:"artifact_key,omitempty"`

	// Route names the route that produced the artifact.
	Route string `json:"route,omitempty" yaml:"route,omitempty"`

	// Reason qualifies partial and failed outcomes.
	Reason FailReason `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Attempts lists every route that failed terminally, in attempt order.
	Attempts []RouteAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Retrievable reports whether the outcome left an artifact behind to parse.
func (o FetchOutcome) Retrievable() bool {
	return o.Status == FetchSuccess || o.Status == FetchPartial
}
