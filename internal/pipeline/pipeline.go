// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives identifiers end to end: resolve routes, fetch
// the artifact, parse it, and store the structured document.
//
// Identifiers are processed by a bounded worker pool; each one runs its
// whole fetch-parse-store pipeline independently, so one identifier's
// failure never aborts the batch. Only a persistence failure stops the
// run, since no identifier can complete without the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pdiddy/corpus-engine/internal/corpus"
	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/parse"
	"github.com/pdiddy/corpus-engine/internal/resolve"
	"github.com/pdiddy/corpus-engine/internal/scratch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const defaultWorkers = 4

// MetadataFunc fetches bibliographic metadata for a DOI. It is a field on
// Runner so tests can substitute a stub for the CrossRef client.
type MetadataFunc func(ctx context.Context, client *http.Client, userAgent, doi string) (types.DocumentMetadata, error)

// Runner wires the pipeline stages together for one or more runs.
type Runner struct {
	cfg      types.PipelineConfig
	client   *http.Client
	table    *resolve.Table
	scratch  *scratch.Store
	corpus   *corpus.Store
	orch     *fetch.Orchestrator
	parser   *parse.Parser
	w        io.Writer
	Metadata MetadataFunc

	mu     sync.Mutex
	runErr error
}

// New builds a runner from configuration: route table (file override or
// built-in), scratch store, fetch orchestrator, parser, and corpus store.
// The caller owns Close.
func New(client *http.Client, cfg types.PipelineConfig, creds fetch.Credentials, w io.Writer) (*Runner, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	table := resolve.DefaultTable()
	if cfg.RoutesFile != "" {
		var err error
		table, err = resolve.Load(cfg.RoutesFile)
		if err != nil {
			return nil, err
		}
	}

	scratchStore, err := scratch.NewStore(cfg.Fetch.ScratchDir)
	if err != nil {
		return nil, err
	}

	corpusStore, err := corpus.NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		client:   client,
		table:    table,
		scratch:  scratchStore,
		corpus:   corpusStore,
		orch:     fetch.New(client, cfg.Fetch, creds, scratchStore, w),
		parser:   parse.New(cfg.Parse),
		w:        w,
		Metadata: fetch.FetchMetadata,
	}, nil
}

// Close releases the corpus database.
func (r *Runner) Close() error {
	return r.corpus.Close()
}

// Corpus exposes the store for read-only reporting.
func (r *Runner) Corpus() *corpus.Store {
	return r.corpus
}

// Run processes a batch of identifiers and returns the per-identifier
// report. Cancellation stops feeding new identifiers; identifiers already
// in flight finish and are reported, the rest stay queued for a later
// run. A persistence failure cancels the run and is returned.
func (r *Runner) Run(ctx context.Context, ids []types.WorkIdentifier) (*Report, error) {
	report := NewReport(ids)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan types.WorkIdentifier)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				res, err := r.process(ctx, id)
				if err != nil {
					r.setRunErr(err)
					cancel()
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.Add(res)
	}
	report.FinishedAt = time.Now().UTC()

	fmt.Fprintf(r.w, "\nBatch summary: %d stored, %d fetch failed, %d parse failed, %d skipped (total: %d)\n",
		report.Stored, report.FetchFailed, report.ParseFailed, report.Skipped, len(report.Results))

	if dir := r.cfg.ReportDir; dir != "" {
		path, err := report.Write(dir)
		if err != nil {
			fmt.Fprintf(r.w, "warning: report write failed: %v\n", err)
		} else {
			fmt.Fprintf(r.w, "report: %s\n", path)
		}
	}

	r.mu.Lock()
	err := r.runErr
	r.mu.Unlock()
	return report, err
}

func (r *Runner) setRunErr(err error) {
	r.mu.Lock()
	if r.runErr == nil {
		r.runErr = err
	}
	r.mu.Unlock()
}

// process runs one identifier through fetch, parse, and store. The
// returned error is non-nil only for persistence failures; everything
// else lands in the result's state and reason.
func (r *Runner) process(ctx context.Context, id types.WorkIdentifier) (Result, error) {
	res := Result{Identifier: id.ID, State: types.StateQueued}

	if ctx.Err() != nil {
		res.Detail = "run canceled before start"
		return res, nil
	}

	// Once past the gate the identifier is in flight: its store writes
	// commit even if the run is canceled mid-processing.
	pctx := context.WithoutCancel(ctx)

	// Re-entry: an identifier stored by a prior run is not refetched.
	prior, ok, err := r.corpus.Outcome(pctx, id.ID)
	if err != nil {
		res.Reason = types.ReasonPersistence
		res.Detail = err.Error()
		return res, err
	}
	if ok && prior.Status == types.FetchSuccess {
		if _, derr := r.corpus.Document(pctx, id.ID); derr == nil {
			res.State = types.StateStored
			res.Skipped = true
			res.Route = prior.Route
			fmt.Fprintf(r.w, "skipped: %s (already stored)\n", id.ID)
			return res, nil
		}
	}

	res.State = types.StateFetching
	outcome := r.orch.Fetch(ctx, id, r.table.Resolve(id))
	if err := r.corpus.RecordOutcome(pctx, outcome); err != nil {
		res.Reason = types.ReasonPersistence
		res.Detail = err.Error()
		return res, err
	}

	if outcome.Status == types.FetchFailure {
		res.State = types.StateFetchFailed
		res.Reason = outcome.Reason
		return res, nil
	}
	res.State = types.StateFetched
	res.Route = outcome.Route

	art, err := r.scratch.Get(outcome.ArtifactKey)
	if err != nil {
		res.State = types.StateFetchFailed
		res.Reason = types.ReasonPersistence
		res.Detail = fmt.Sprintf("reading artifact: %v", err)
		return res, nil
	}

	res.State = types.StateParsing
	doc, err := r.parser.Parse(id, art)
	if err != nil {
		res.State = types.StateParseFailed
		res.Reason = parseReason(err)
		res.Detail = err.Error()
		fmt.Fprintf(r.w, "parse failed: %s (%v)\n", id.ID, err)
		return res, nil
	}
	res.State = types.StateParsed

	// CrossRef enrichment on full fetches; a metadata failure is only a
	// warning, the parser-derived fields stand.
	if outcome.Status == types.FetchSuccess && resolve.IsDOI(id.ID) && r.Metadata != nil {
		if meta, merr := r.Metadata(ctx, r.client, r.cfg.Fetch.UserAgent, id.ID); merr == nil {
			mergeMetadata(&doc.Metadata, meta)
		} else {
			fmt.Fprintf(r.w, "  warning: metadata fetch failed for %s: %v\n", id.ID, merr)
		}
	}

	if err := r.corpus.Upsert(pctx, doc); err != nil {
		res.Reason = types.ReasonPersistence
		res.Detail = err.Error()
		return res, err
	}

	res.State = types.StateStored
	res.Sections = len(doc.Sections)
	res.Paragraphs = doc.ParagraphCount()
	fmt.Fprintf(r.w, "stored: %s via %s (%d sections, %d paragraphs)\n",
		id.ID, res.Route, res.Sections, res.Paragraphs)

	if r.cfg.CleanScratch {
		if err := r.scratch.Delete(outcome.ArtifactKey); err != nil {
			fmt.Fprintf(r.w, "  warning: scratch cleanup failed for %s: %v\n", id.ID, err)
		}
	}
	return res, nil
}

// parseReason maps parser errors onto the failure taxonomy.
func parseReason(err error) types.FailReason {
	if errors.Is(err, parse.ErrEmptyContent) {
		return types.ReasonEmptyContent
	}
	return types.ReasonUnsupportedFormat
}

// mergeMetadata fills empty parser-derived fields from the CrossRef
// record. CrossRef wins for bibliographic fields it carries; the parse
// confidence is never overwritten.
func mergeMetadata(dst *types.DocumentMetadata, src types.DocumentMetadata) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if src.Venue != "" {
		dst.Venue = src.Venue
	}
	if src.Year != 0 {
		dst.Year = src.Year
	}
	if src.Publisher != "" {
		dst.Publisher = src.Publisher
	}
}
