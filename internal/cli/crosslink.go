package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/analysis"
	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/crosslink"
)

var crosslinkCmd = &cobra.Command{
	Use:   "crosslink <primary-framework> <related-framework>",
	Short: "Discover cross-framework requirement links",
	Long: `Ask the analysis provider which requirements of the two frameworks
address the same control objective, and store the high-confidence links
in both directions.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		cfg := loadConfig(s)

		cat, err := catalog.Load(s.Root)
		if err != nil {
			fmtErr("load catalog: %v", err)
			os.Exit(1)
		}
		primary, err := cat.Requirements(args[0])
		if err != nil {
			fmtErr("%v", err)
			os.Exit(1)
		}
		related, err := cat.Requirements(args[1])
		if err != nil {
			fmtErr("%v", err)
			os.Exit(1)
		}

		provider := analysis.NewHTTPProvider(cfg.Provider, cfg.ProviderTimeout())
		linker := crosslink.New(provider, s, cfg.ProviderTimeout())

		links, err := linker.LinkFrameworks(context.Background(), primary, related)
		if err != nil {
			fmtErr("crosslink: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(links)
			return
		}
		fmt.Printf("Stored %d links between %s and %s\n", len(links), args[0], args[1])
		for _, link := range links {
			fmt.Printf("  %-22s %-12s %-22s confidence=%.2f\n",
				link.PrimaryRequirement, link.Type, link.RelatedRequirement, link.Confidence)
		}
	},
}

var linksCmd = &cobra.Command{
	Use:   "links [requirement-id]",
	Short: "Show stored cross-framework links",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()

		links, err := s.Links()
		if err != nil {
			fmtErr("list links: %v", err)
			os.Exit(1)
		}
		if len(args) == 1 {
			links, err = s.LinksForRequirement(args[0])
			if err != nil {
				fmtErr("list links: %v", err)
				os.Exit(1)
			}
		}

		if jsonOutput {
			outputJSON(links)
			return
		}
		for _, link := range links {
			fmt.Printf("%s (%s) -[%s %.2f]-> %s (%s)\n",
				link.PrimaryRequirement, link.PrimaryFramework,
				link.Type, link.Confidence,
				link.RelatedRequirement, link.RelatedFramework)
		}
	},
}

func init() {
	rootCmd.AddCommand(crosslinkCmd)
	rootCmd.AddCommand(linksCmd)
}
