// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the corpus-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/corpus-engine/internal/secrets"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "corpus-engine/0.1"

// loadedSecrets holds route credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the corpus-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "corpus-engine",
	Short: "Scientific paper ingestion pipeline",
	Long: `corpus-engine ingests scientific papers into a structured corpus. Given a
batch of work identifiers (DOIs), it resolves each publisher's access
routes, fetches the full-text artifact, parses it into ordered sections
and paragraphs, and upserts the result into a SQLite corpus.

Each pipeline stage is also exposed as its own subcommand: fetch stages
raw artifacts, parse converts staged artifacts, and ingest runs the whole
pipeline. report inspects recorded outcomes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./corpus-engine.yaml or ~/.config/corpus-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("corpus-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "corpus-engine"))
		}
	}

	viper.SetEnvPrefix("CORPUS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// addPipelineFlags registers the flags shared by the pipeline subcommands.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 4, "worker pool size")
	cmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")
	cmd.Flags().String("scratch-dir", "scratch", "directory for raw artifacts")
	cmd.Flags().String("corpus-dir", "corpus", "directory for the corpus database")
	cmd.Flags().String("report-dir", "reports", "directory for run reports")
	cmd.Flags().String("routes", "", "route table YAML overriding the built-in publisher routes")
}

// pipelineConfig builds the stage configuration from flags, with viper
// keys (config file or CORPUS_ENGINE_* environment) as fallback for flags
// left at their defaults.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	// CrossRef routes polite-pool traffic by a mailto in the User-Agent.
	userAgent := defaultUserAgent
	if mailto := loadedSecrets[secrets.KeyCrossrefMailto]; mailto != "" {
		userAgent = fmt.Sprintf("%s (mailto:%s)", defaultUserAgent, mailto)
	}

	return types.PipelineConfig{
		Workers:    workers,
		RoutesFile: stringSetting(cmd, "routes", "routes_file"),
		ReportDir:  stringSetting(cmd, "report-dir", "report_dir"),
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: userAgent,
			},
			ScratchDir: stringSetting(cmd, "scratch-dir", "scratch_dir"),
		},
		Store: types.StoreConfig{
			CorpusDir: stringSetting(cmd, "corpus-dir", "corpus_dir"),
		},
	}
}

// stringSetting reads a string flag, letting an explicit flag beat the
// viper key and the viper key beat the flag default.
func stringSetting(cmd *cobra.Command, flag, viperKey string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
