// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/corpus"
	"github.com/pdiddy/corpus-engine/internal/parse"
	"github.com/pdiddy/corpus-engine/internal/resolve"
	"github.com/pdiddy/corpus-engine/internal/scratch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [identifiers...]",
	Short: "Parse staged artifacts and store the documents",
	Long: `Parse reads each identifier's artifact from scratch storage, converts
it into sections and paragraphs, and upserts the document into the
corpus. Artifacts must have been staged beforehand, either by fetch or
by hand (manual route staging).`,
	RunE: runParse,
}

func init() {
	addPipelineFlags(parseCmd)
	parseCmd.Flags().String("batch", "", "batch label recorded on every document")
	parseCmd.Flags().Int("min-paragraph-chars", 0, "drop paragraphs shorter than this (default 20)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more identifiers with staged artifacts")
	}

	cfg := pipelineConfig(cmd)
	batch, _ := cmd.Flags().GetString("batch")
	if minChars, _ := cmd.Flags().GetInt("min-paragraph-chars"); minChars > 0 {
		cfg.Parse.MinParagraphChars = minChars
	}

	scratchStore, err := scratch.NewStore(cfg.Fetch.ScratchDir)
	if err != nil {
		return err
	}
	corpusStore, err := corpus.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer corpusStore.Close()

	parser := parse.New(cfg.Parse)

	failed := 0
	for _, arg := range args {
		id := types.WorkIdentifier{ID: arg, Batch: batch}
		key := resolve.Slug(arg)

		art, err := scratchStore.Get(key)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (no staged artifact)\n", arg)
			failed++
			continue
		}

		doc, err := parser.Parse(id, art)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", arg, err)
			failed++
			continue
		}

		if err := corpusStore.Upsert(cmd.Context(), doc); err != nil {
			return fmt.Errorf("storing %s: %w", arg, err)
		}
		fmt.Fprintf(os.Stdout, "stored:  %s (%d sections, %d paragraphs)\n",
			arg, len(doc.Sections), doc.ParagraphCount())
	}
	if failed > 0 {
		return fmt.Errorf("%d identifier(s) failed to parse", failed)
	}
	return nil
}
