package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/notify"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/evidentry"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

var (
	pkgTitle      string
	pkgFrameworks []string
	pkgOwner      string
	pkgEvidence   bool
	pkgPolicies   bool
	pkgOutput     string
)

func newPackageClient(s *store.Store) *evidentry.Client {
	cfg := loadConfig(s)
	cat, err := catalog.Load(s.Root)
	if err != nil {
		fmtErr("load catalog: %v", err)
		os.Exit(1)
	}
	ledger := provenance.NewLedger(s, metrics.Default())
	var notifier assembler.PackageNotifier
	if cfg.Notifier.Enabled {
		notifier = notify.NewClient(cfg.Notifier)
	}
	a := assembler.New(s, cat, ledger, notifier, metrics.Default(), assembler.Options{
		PolicyGlobs: cfg.Packaging.PolicyGlobs,
		HashWorkers: cfg.Packaging.MaxHashWorkers,
		Timeout:     cfg.PackagingTimeout(),
	})
	return evidentry.NewClient(s, a)
}

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Generate and manage sealed audit packages",
}

var packageGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a sealed audit package",
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		c := newPackageClient(s)

		summary, err := c.GeneratePackage(context.Background(), pkgOwner, pkgTitle, pkgFrameworks, model.IncludeOptions{
			Evidence: pkgEvidence,
			Policies: pkgPolicies,
		})
		if err != nil {
			fmtErr("generate: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(summary)
		} else {
			fmt.Printf("Sealed package %s: %d documents, %d bytes\n",
				summary.ID.ShortID(), summary.DocCount, summary.SizeBytes)
		}
	},
}

var packageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit packages",
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		c := newPackageClient(s)

		summaries, err := c.ListPackages(pkgOwner)
		if err != nil {
			fmtErr("list: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(summaries)
			return
		}
		for _, sm := range summaries {
			fmt.Printf("%s  %-10s  %3d docs  %10d bytes  %s\n",
				sm.ID.ShortID(), sm.Status, sm.DocCount, sm.SizeBytes, sm.Title)
		}
	},
}

var packageGetCmd = &cobra.Command{
	Use:   "get <package-id>",
	Short: "Show a package and its items",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		c := newPackageClient(s)

		details, err := c.GetPackage(model.PackageID(args[0]), pkgOwner)
		if err != nil {
			fmtErr("get: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(details)
			return
		}
		pkg := details.Package
		fmt.Printf("Package %s  %s  (%s)\n", pkg.ID.ShortID(), pkg.Title, pkg.Status)
		for _, item := range details.Items {
			fmt.Printf("  %-12s %-40s %10d bytes\n", item.IncludedAs, item.ArchivePath, item.SizeBytes)
		}
	},
}

var packageDownloadCmd = &cobra.Command{
	Use:   "download <package-id>",
	Short: "Copy a sealed package archive out of the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		c := newPackageClient(s)

		rc, pkg, err := c.OpenArchive(model.PackageID(args[0]), pkgOwner)
		if err != nil {
			fmtErr("download: %v", err)
			os.Exit(1)
		}
		defer rc.Close()

		dest := pkgOutput
		if dest == "" {
			dest = fmt.Sprintf("%s.zip", pkg.ID.ShortID())
		}
		out, err := os.Create(dest)
		if err != nil {
			fmtErr("create %s: %v", dest, err)
			os.Exit(1)
		}
		defer out.Close()
		n, err := io.Copy(out, rc)
		if err != nil {
			fmtErr("write %s: %v", dest, err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]any{"path": dest, "size_bytes": n})
		} else {
			fmt.Printf("Wrote %s (%d bytes)\n", dest, n)
		}
	},
}

var packageArchiveCmd = &cobra.Command{
	Use:   "archive <package-id>",
	Short: "Soft-delete a sealed package",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		c := newPackageClient(s)

		if err := c.ArchivePackage(model.PackageID(args[0]), pkgOwner); err != nil {
			fmtErr("archive: %v", err)
			os.Exit(1)
		}
		if !jsonOutput {
			fmt.Println("Package archived (archive file retained)")
		}
	},
}

func init() {
	packageGenerateCmd.Flags().StringVar(&pkgTitle, "title", "", "package title (required)")
	packageGenerateCmd.Flags().StringSliceVar(&pkgFrameworks, "framework", nil, "framework to include (repeatable)")
	packageGenerateCmd.Flags().BoolVar(&pkgEvidence, "evidence", true, "include verified evidence documents")
	packageGenerateCmd.Flags().BoolVar(&pkgPolicies, "policies", false, "include policy files matched by configured globs")
	packageDownloadCmd.Flags().StringVarP(&pkgOutput, "output", "o", "", "destination path for the archive copy")
	packageCmd.PersistentFlags().StringVar(&pkgOwner, "owner", "local", "acting owner identity")

	packageCmd.AddCommand(packageGenerateCmd)
	packageCmd.AddCommand(packageListCmd)
	packageCmd.AddCommand(packageGetCmd)
	packageCmd.AddCommand(packageDownloadCmd)
	packageCmd.AddCommand(packageArchiveCmd)
	rootCmd.AddCommand(packageCmd)
}
