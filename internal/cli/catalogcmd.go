package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/catalog"
)

var catalogFramework string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the loaded framework catalog",
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		cat, err := catalog.Load(s.Root)
		if err != nil {
			fmtErr("load catalog: %v", err)
			os.Exit(1)
		}

		if catalogFramework != "" {
			reqs, err := cat.Requirements(catalogFramework)
			if err != nil {
				fmtErr("catalog: %v", err)
				os.Exit(1)
			}
			if jsonOutput {
				outputJSON(reqs)
				return
			}
			for _, req := range reqs {
				fmt.Printf("%-16s %s\n", req.ID, req.Title)
			}
			return
		}

		frameworks := cat.Frameworks()
		if jsonOutput {
			outputJSON(frameworks)
			return
		}
		for _, fw := range frameworks {
			fmt.Printf("%-16s %-40s %d requirements\n", fw.ID, fw.Name, len(fw.Requirements))
		}
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFramework, "framework", "", "list requirements of one framework")
	rootCmd.AddCommand(catalogCmd)
}
