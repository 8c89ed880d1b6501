// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "corpus-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RateClassConfig bounds request flow for one rate-limit class. Routes
// sharing a class share these limits across all in-flight identifiers.
type RateClassConfig struct {
	// Concurrency is the maximum number of simultaneous in-flight requests.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MinInterval is the minimum spacing between request starts.
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ScratchDir is the base directory for raw artifacts and their sidecars.
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir"`

	// MaxAttemptsPerRoute caps retryable attempts on one route before the
	// orchestrator advances to the next route (default 3).
	MaxAttemptsPerRoute int `json:"max_attempts_per_route" yaml:"max_attempts_per_route"`

	// BackoffBase is the first retry delay; it doubles each attempt up to
	// BackoffMax (defaults 500ms and 30s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffMax  time.Duration `json:"backoff_max" yaml:"backoff_max"`

	// SlotTimeout bounds the wait for a rate-limit slot; expiry counts as a
	// retryable failure for that attempt (default 2m).
	SlotTimeout time.Duration `json:"slot_timeout" yaml:"slot_timeout"`

	// RateClasses configures per-class limits. Classes not listed get a
	// conservative default (1 concurrent, 1s spacing).
	RateClasses map[string]RateClassConfig `json:"rate_classes" yaml:"rate_classes"`
}

// ParseConfig holds settings for the parse stage.
type ParseConfig struct {
	// MinParagraphChars drops HTML paragraphs shorter than this many
	// characters (boilerplate links, button labels). Default 20.
	MinParagraphChars int `json:"min_paragraph_chars" yaml:"min_paragraph_chars"`
}

// StoreConfig holds settings for the corpus store.
type StoreConfig struct {
	// CorpusDir is the directory containing the SQLite corpus database.
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`
}

// PipelineConfig groups all stage configurations for an ingestion run.
type PipelineConfig struct {
	// Workers bounds pipeline parallelism across identifiers (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// RoutesFile optionally overrides the built-in publisher route table.
	RoutesFile string `json:"routes_file,omitempty" yaml:"routes_file,omitempty"`

	// ReportDir is where per-run outcome reports are written.
	ReportDir string `json:"report_dir" yaml:"report_dir"`

	// CleanScratch deletes an identifier's scratch artifact once its
	// document is stored.
	CleanScratch bool `json:"clean_scratch" yaml:"clean_scratch"`

	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
	Parse ParseConfig `json:"parse" yaml:"parse"`
	Store StoreConfig `json:"store" yaml:"store"`
}
