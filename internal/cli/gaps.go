package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/gap"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

var (
	gapsFramework string
	gapsRecompute bool
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show evidence coverage gaps",
	Long: `List open evidence gaps. With --recompute, gap state is re-derived
from the current mappings first.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()

		if gapsRecompute {
			cat, err := catalog.Load(s.Root)
			if err != nil {
				fmtErr("load catalog: %v", err)
				os.Exit(1)
			}
			var requirements []model.Requirement
			if gapsFramework != "" {
				requirements, err = cat.Requirements(gapsFramework)
				if err != nil {
					fmtErr("%v", err)
					os.Exit(1)
				}
			} else {
				requirements = cat.AllRequirements()
			}
			analyzer := gap.NewAnalyzer(s, metrics.Default())
			if _, err := analyzer.AnalyzeAll(requirements); err != nil {
				fmtErr("recompute gaps: %v", err)
				os.Exit(1)
			}
		}

		all, err := s.Gaps()
		if err != nil {
			fmtErr("list gaps: %v", err)
			os.Exit(1)
		}
		var open []*model.EvidenceGap
		for _, g := range all {
			if g.Status != model.GapOpen {
				continue
			}
			if gapsFramework != "" && g.FrameworkID != gapsFramework {
				continue
			}
			open = append(open, g)
		}

		if jsonOutput {
			outputJSON(open)
			return
		}
		if len(open) == 0 {
			fmt.Println("No open gaps")
			return
		}
		for _, g := range open {
			fmt.Printf("%-10s %-24s %-22s %s\n", g.Severity, g.Type, g.RequirementID, g.Description)
		}
	},
}

func init() {
	gapsCmd.Flags().StringVar(&gapsFramework, "framework", "", "restrict to one framework")
	gapsCmd.Flags().BoolVar(&gapsRecompute, "recompute", false, "re-derive gaps from current mappings")
	rootCmd.AddCommand(gapsCmd)
}
