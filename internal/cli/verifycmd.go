package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/verify"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <package-id>",
	Short: "Verify a sealed package against its manifest",
	Long: `Open the sealed archive, recompute every file hash and the manifest
seal, and check that archive contents and declared documents agree
one-to-one. Any mismatch exits nonzero.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		v := verify.NewVerifier(s)

		result, err := v.VerifyPackage(model.PackageID(args[0]))
		if jsonOutput && result != nil {
			outputJSON(result)
		}
		if err != nil {
			if !jsonOutput {
				fmtErr("verification failed: %v", err)
				if result != nil {
					for _, m := range result.Mismatches {
						fmt.Fprintf(os.Stderr, "  - %s\n", m)
					}
				}
			}
			os.Exit(1)
		}
		if !jsonOutput {
			fmt.Printf("Package intact (%d files checked)\n", result.FilesChecked)
		}
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show process operation counters",
	Run: func(cmd *cobra.Command, args []string) {
		snap := metrics.Default().Snapshot()
		counters := map[string]int64{
			"match_calls":        snap.MatchCalls,
			"match_fallbacks":    snap.MatchFallbacks,
			"mappings_persisted": snap.MappingsPersisted,
			"gaps_opened":        snap.GapsOpened,
			"gaps_resolved":      snap.GapsResolved,
			"packages_sealed":    snap.PackagesSealed,
			"packages_failed":    snap.PackagesFailed,
			"bytes_packaged":     snap.BytesPackaged,
			"chain_appends":      snap.ChainAppends,
			"chain_verifies":     snap.ChainVerifies,
			"freshness_checks":   snap.FreshnessChecks,
			"notifications_sent": snap.NotificationsSent,
		}
		if jsonOutput {
			outputJSON(counters)
			return
		}
		for _, k := range []string{
			"match_calls", "match_fallbacks", "mappings_persisted",
			"gaps_opened", "gaps_resolved", "packages_sealed",
			"packages_failed", "bytes_packaged", "chain_appends",
			"chain_verifies", "freshness_checks", "notifications_sent",
		} {
			fmt.Printf("%-20s %d\n", k, counters[k])
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(metricsCmd)
}
