package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/analysis"
	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/gap"
	"github.com/evidentry-project/evidentry/internal/matcher"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

var matchFramework string

var matchCmd = &cobra.Command{
	Use:   "match <document-id>",
	Short: "Match a document against framework requirements",
	Long: `Send the document to the analysis provider for every requirement in
scope and persist the resulting evidence mappings. Gap state for the
affected requirements is recomputed afterwards.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		cfg := loadConfig(s)

		doc, err := s.Document(model.DocumentID(args[0]))
		if err != nil {
			fmtErr("load document: %v", err)
			os.Exit(1)
		}

		cat, err := catalog.Load(s.Root)
		if err != nil {
			fmtErr("load catalog: %v", err)
			os.Exit(1)
		}

		var requirements []model.Requirement
		if matchFramework != "" {
			requirements, err = cat.Requirements(matchFramework)
			if err != nil {
				fmtErr("%v", err)
				os.Exit(1)
			}
		} else if doc.FrameworkID != "" {
			requirements, err = cat.Requirements(doc.FrameworkID)
			if err != nil {
				fmtErr("%v", err)
				os.Exit(1)
			}
		} else {
			requirements = cat.AllRequirements()
		}
		if len(requirements) == 0 {
			fmtErr("no requirements in scope (is the catalog populated?)")
			os.Exit(1)
		}

		provider := analysis.NewHTTPProvider(cfg.Provider, cfg.ProviderTimeout())
		ledger := provenance.NewLedger(s, metrics.Default())
		m := matcher.New(provider, s, ledger, metrics.Default(), cfg.Provider.MaxConcurrent, cfg.ProviderTimeout())

		mappings, err := m.MatchDocument(context.Background(), doc, requirements)
		if err != nil {
			fmtErr("match: %v", err)
			os.Exit(1)
		}

		analyzer := gap.NewAnalyzer(s, metrics.Default())
		if _, err := analyzer.AnalyzeAll(requirements); err != nil {
			fmtErr("recompute gaps: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(mappings)
			return
		}
		fmt.Printf("Persisted %d mappings for %s\n", len(mappings), doc.ID.ShortID())
		for _, mp := range mappings {
			fmt.Printf("  %-16s confidence=%.2f quality=%.2f type=%s\n",
				mp.RequirementID, mp.Confidence, mp.QualityScore, mp.MappingType)
		}
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchFramework, "framework", "", "restrict matching to one framework")
	rootCmd.AddCommand(matchCmd)
}
