// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// WorkIdentifier is one unit of work for the ingestion pipeline: an external
// identifier (typically a DOI) plus the provenance of the search run that
// produced it. Immutable once enqueued.
type WorkIdentifier struct {
	// ID is the external identifier, e.g. "10.1016/j.actamat.2023.118842".
	ID string `json:"id" yaml:"id"`

	// Batch labels the search run that produced this identifier.
	Batch string `json:"batch" yaml:"batch"`

	// EnqueuedAt records when the identifier entered the queue.
	EnqueuedAt time.Time `json:"enqueued_at" yaml:"enqueued_at"`
}

// PipelineState tracks an identifier through the fetch → parse → store
// pipeline. Transitions are applied only after the preceding stage has
// committed its side effect.
type PipelineState string

const (
	StateQueued      PipelineState = "queued"
	StateFetching    PipelineState = "fetching"
	StateFetched     PipelineState = "fetched"
	StateFetchFailed PipelineState = "fetch_failed"
	StateParsing     PipelineState = "parsing"
	StateParsed      PipelineState = "parsed"
	StateParseFailed PipelineState = "parse_failed"
	StateStored      PipelineState = "stored"
)

// Terminal reports whether the state is a per-run end state.
func (s PipelineState) Terminal() bool {
	switch s {
	case StateStored, StateFetchFailed, StateParseFailed:
		return true
	}
	return false
}
