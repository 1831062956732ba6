// Package cli implements the evidentry command line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/logging"
)

var (
	jsonOutput bool
	rootCmd    = &cobra.Command{
		Use:   "evidentry",
		Short: "Evidentry - compliance evidence integrity and audit packaging",
		Long: `Evidentry manages compliance evidence: it matches documents against
framework requirements, tracks coverage gaps and evidence freshness,
keeps a tamper-evident provenance chain per document, and seals audit
packages with verifiable manifests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// outputJSON prints v as JSON if --json is set, otherwise does nothing.
func outputJSON(v any) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "evidentry: "+format+"\n", args...)
}

// requireStore discovers the repository from CWD, or exits.
func requireStore() *store.Store {
	cwd, err := os.Getwd()
	if err != nil {
		fmtErr("cannot get current directory: %v", err)
		os.Exit(1)
	}
	s, err := store.Discover(cwd)
	if err != nil {
		fmtErr("not an evidentry repository (run 'evidentry init' first): %v", err)
		os.Exit(1)
	}
	return s
}

// loadConfig loads the repository configuration and applies its log level.
func loadConfig(s *store.Store) *config.Config {
	cfg, err := config.Load(s.Root)
	if err != nil {
		fmtErr("load config: %v", err)
		os.Exit(1)
	}
	switch cfg.Logging.Level {
	case "debug":
		logging.SetGlobal(logging.NewLogger(logging.LevelDebug))
	case "warn":
		logging.SetGlobal(logging.NewLogger(logging.LevelWarn))
	case "error":
		logging.SetGlobal(logging.NewLogger(logging.LevelError))
	}
	return cfg
}
