// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/corpus"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [identifiers...]",
	Short: "Inspect recorded fetch outcomes and stored documents",
	Long: `Report shows what the corpus knows about past runs. With no arguments it
lists every recorded fetch outcome and the stored document count. With
identifiers it prints each one's outcome in detail, including the per-route
attempt trail.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("corpus-dir", "corpus", "directory for the corpus database")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	corpusDir := stringSetting(cmd, "corpus-dir", "corpus_dir")
	store, err := corpus.NewStore(types.StoreConfig{CorpusDir: corpusDir})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if len(args) > 0 {
		return reportIdentifiers(cmd, store, args)
	}

	outs, err := store.Outcomes(ctx)
	if err != nil {
		return err
	}
	counts := map[types.FetchStatus]int{}
	for _, out := range outs {
		counts[out.Status]++
		line := fmt.Sprintf("%-8s %s", out.Status, out.Identifier)
		if out.Route != "" {
			line += " via " + out.Route
		}
		if out.Reason != "" {
			line += fmt.Sprintf(" (%s)", out.Reason)
		}
		fmt.Fprintln(os.Stdout, line)
	}

	docs, err := store.DocumentCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d outcome(s) recorded: %d success, %d partial, %d failed\n",
		len(outs), counts[types.FetchSuccess], counts[types.FetchPartial], counts[types.FetchFailure])
	fmt.Fprintf(os.Stdout, "%d document(s) stored\n", docs)
	return nil
}

func reportIdentifiers(cmd *cobra.Command, store *corpus.Store, ids []string) error {
	ctx := cmd.Context()
	for _, id := range ids {
		out, ok, err := store.Outcome(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(os.Stdout, "%s: no recorded outcome\n", id)
			continue
		}

		fmt.Fprintf(os.Stdout, "%s: %s", id, out.Status)
		if out.Route != "" {
			fmt.Fprintf(os.Stdout, " via %s", out.Route)
		}
		if out.Format != "" {
			fmt.Fprintf(os.Stdout, " (%s)", out.Format)
		}
		if out.Reason != "" {
			fmt.Fprintf(os.Stdout, ", reason %s", out.Reason)
		}
		fmt.Fprintf(os.Stdout, ", fetched %s\n", out.FetchedAt.Format("2006-01-02 15:04:05"))
		for _, att := range out.Attempts {
			fmt.Fprintf(os.Stdout, "  attempt %s: %s (%s)\n", att.Route, att.Reason, att.Detail)
		}

		doc, err := store.Document(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stdout, "  document: not stored\n")
			continue
		}
		fmt.Fprintf(os.Stdout, "  document: %q, %d sections, %d paragraphs\n",
			doc.Metadata.Title, len(doc.Sections), doc.ParagraphCount())
	}
	return nil
}
