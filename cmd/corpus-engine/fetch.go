// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/resolve"
	"github.com/pdiddy/corpus-engine/internal/scratch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Fetch raw artifacts into scratch storage without parsing",
	Long: `Fetch resolves each identifier's access routes and downloads the
full-text artifact into scratch storage. Nothing is parsed or stored in
the corpus; run parse or ingest afterwards. Useful for staging artifacts
and for debugging route behavior.`,
	RunE: runFetch,
}

func init() {
	addPipelineFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more identifiers")
	}

	cfg := pipelineConfig(cmd)

	table := resolve.DefaultTable()
	if cfg.RoutesFile != "" {
		var err error
		table, err = resolve.Load(cfg.RoutesFile)
		if err != nil {
			return err
		}
	}

	store, err := scratch.NewStore(cfg.Fetch.ScratchDir)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	creds := fetch.CredentialsFromSecrets(loadedSecrets)
	orch := fetch.New(client, cfg.Fetch, creds, store, os.Stdout)

	failed := 0
	for _, arg := range args {
		id := types.WorkIdentifier{ID: arg}
		outcome := orch.Fetch(cmd.Context(), id, table.Resolve(id))
		if outcome.Status == types.FetchFailure {
			failed++
			for _, att := range outcome.Attempts {
				fmt.Fprintf(os.Stdout, "  %s: %s (%s)\n", att.Route, att.Reason, att.Detail)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d identifier(s) failed to fetch", failed)
	}
	return nil
}
