// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/pipeline"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [identifiers...]",
	Short: "Fetch, parse, and store a batch of identifiers",
	Long: `Ingest runs the full pipeline for each identifier: resolve the
publisher's access routes, fetch the full-text artifact, parse it into
sections and paragraphs, and upsert the document into the corpus.
Identifiers already stored by a previous run are skipped.

Identifiers are taken from the arguments, from --file (one per line,
blank lines and # comments ignored), or both.`,
	RunE: runIngest,
}

func init() {
	addPipelineFlags(ingestCmd)
	ingestCmd.Flags().String("batch", "", "batch label recorded on every document (default: ingest-<date>)")
	ingestCmd.Flags().String("file", "", "file of identifiers, one per line")
	ingestCmd.Flags().Bool("clean-scratch", false, "delete scratch artifacts after their documents are stored")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ids, err := collectIdentifiers(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide one or more identifiers (as arguments or via --file)")
	}

	cfg := pipelineConfig(cmd)
	cfg.CleanScratch, _ = cmd.Flags().GetBool("clean-scratch")
	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	creds := fetch.CredentialsFromSecrets(loadedSecrets)

	runner, err := pipeline.New(client, cfg, creds, os.Stdout)
	if err != nil {
		return err
	}
	defer runner.Close()

	report, err := runner.Run(cmd.Context(), ids)
	if err != nil {
		return err
	}
	if report.HasFailures() {
		return fmt.Errorf("%d identifier(s) failed", report.FetchFailed+report.ParseFailed)
	}
	return nil
}

// collectIdentifiers merges argument and file identifiers into a batch,
// deduplicating while preserving first-seen order.
func collectIdentifiers(cmd *cobra.Command, args []string) ([]types.WorkIdentifier, error) {
	batch, _ := cmd.Flags().GetString("batch")
	if batch == "" {
		batch = "ingest-" + time.Now().UTC().Format("2006-01-02")
	}

	raw := append([]string{}, args...)
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		fromFile, err := readIdentifierFile(path)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool)
	var ids []types.WorkIdentifier
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		ids = append(ids, types.WorkIdentifier{ID: r, Batch: batch, EnqueuedAt: now})
	}
	return ids, nil
}

func readIdentifierFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identifier file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading identifier file: %w", err)
	}
	return out, nil
}
