// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Result is one identifier's final state for a run.
type Result struct {
	Identifier string              `yaml:"identifier"`
	State      types.PipelineState `yaml:"state"`
	Reason     types.FailReason    `yaml:"reason,omitempty"`
	Detail     string              `yaml:"detail,omitempty"`
	Route      string              `yaml:"route,omitempty"`
	Sections   int                 `yaml:"sections,omitempty"`
	Paragraphs int                 `yaml:"paragraphs,omitempty"`
	Skipped    bool                `yaml:"skipped,omitempty"`
}

// Report is the structured outcome record for one run, written to the
// report directory so failed subsets can be re-run.
type Report struct {
	RunID      string    `yaml:"run_id"`
	Batch      string    `yaml:"batch,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Stored      int `yaml:"stored"`
	FetchFailed int `yaml:"fetch_failed"`
	ParseFailed int `yaml:"parse_failed"`
	Skipped     int `yaml:"skipped"`

	Results []Result `yaml:"results"`
}

// NewReport starts a report with a fresh run ID and the batch label of
// the incoming identifiers.
func NewReport(ids []types.WorkIdentifier) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	if len(ids) > 0 {
		r.Batch = ids[0].Batch
	}
	return r
}

// Add appends a result and updates the summary counters.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.Skipped:
		r.Skipped++
	case res.State == types.StateStored:
		r.Stored++
	case res.State == types.StateFetchFailed:
		r.FetchFailed++
	case res.State == types.StateParseFailed:
		r.ParseFailed++
	}
}

// HasFailures reports whether any identifier ended in a failed state.
func (r *Report) HasFailures() bool {
	return r.FetchFailed > 0 || r.ParseFailed > 0
}

// Write saves the report as YAML under dir, named by run ID, and returns
// the file path.
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	path := filepath.Join(dir, "run-"+r.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
