package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new evidence repository",
	Long: `Initialize a new evidence repository in the given directory (default:
current directory).

This creates the .evidentry/ metadata directory: catalog, document and
content stores, provenance chains, package output, and a default
config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := os.Getwd()
		if len(args) == 1 {
			path = args[0]
			if !filepath.IsAbs(path) {
				cwd, _ := os.Getwd()
				path = filepath.Join(cwd, path)
			}
		}

		s, err := store.Init(path)
		if err != nil {
			fmtErr("initialize repository: %v", err)
			os.Exit(1)
		}
		if err := config.Save(path, config.Default()); err != nil {
			fmtErr("write default config: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"repo_root":      s.Root,
				"format_version": s.FormatVersion,
				"repo_id":        s.RepoID,
			})
		} else {
			fmt.Printf("Initialized evidence repository in %s\n", path)
			fmt.Printf("  Add framework catalogs under %s\n", filepath.Join(path, ".evidentry", "catalog"))
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
