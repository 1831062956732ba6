package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

var (
	ingestFramework   string
	ingestRequirement string
	ingestOwner       string
	ingestMonths      int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest an evidence document",
	Long: `Copy a file into the immutable content store, hash it, and record the
document with a created/uploaded provenance chain.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()

		doc, err := s.IngestDocument(args[0], ingestOwner, ingestFramework, ingestRequirement, ingestMonths)
		if err != nil {
			fmtErr("ingest: %v", err)
			os.Exit(1)
		}

		ledger := provenance.NewLedger(s, metrics.Default())
		actor := model.Actor{ID: ingestOwner, Type: model.ActorUser}
		if _, err := ledger.Append(doc.ID, model.EventCreated, actor, nil); err != nil {
			fmtErr("record provenance: %v", err)
			os.Exit(1)
		}
		if _, err := ledger.Append(doc.ID, model.EventUploaded, actor, map[string]any{
			"file_name":    doc.FileName,
			"content_hash": string(doc.ContentHash),
		}); err != nil {
			fmtErr("record provenance: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(doc)
		} else {
			fmt.Printf("Ingested %s as %s (%d bytes, sha256 %s)\n",
				doc.FileName, doc.ID.ShortID(), doc.SizeBytes, doc.ContentHash[:12])
		}
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List evidence documents",
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		docs, err := s.Documents()
		if err != nil {
			fmtErr("list documents: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(docs)
			return
		}
		for _, doc := range docs {
			expiry := "no expiry"
			if doc.ValidUntil != nil {
				expiry = "valid until " + doc.ValidUntil.Format("2006-01-02")
			}
			fmt.Printf("%s  %-10s  %-30s  %s\n", doc.ID.ShortID(), doc.Status, doc.FileName, expiry)
		}
	},
}

var docStatusCmd = &cobra.Command{
	Use:   "doc-status <document-id> <pending|verified|rejected>",
	Short: "Set a document's verification status",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()

		doc, err := s.Document(model.DocumentID(args[0]))
		if err != nil {
			fmtErr("load document: %v", err)
			os.Exit(1)
		}
		status := model.DocumentStatus(args[1])
		if !status.Valid() {
			fmtErr("unknown status %q", args[1])
			os.Exit(1)
		}
		doc.Status = status
		if err := s.SaveDocument(doc); err != nil {
			fmtErr("save document: %v", err)
			os.Exit(1)
		}

		if status == model.DocumentVerified {
			ledger := provenance.NewLedger(s, metrics.Default())
			if _, err := ledger.Append(doc.ID, model.EventVerified, model.SystemActor, nil); err != nil {
				fmtErr("record provenance: %v", err)
				os.Exit(1)
			}
		}

		if jsonOutput {
			outputJSON(doc)
		} else {
			fmt.Printf("Document %s is now %s\n", doc.ID.ShortID(), status)
		}
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFramework, "framework", "", "framework the document evidences")
	ingestCmd.Flags().StringVar(&ingestRequirement, "requirement", "", "specific requirement the document evidences")
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "local", "owner identity")
	ingestCmd.Flags().IntVar(&ingestMonths, "freshness-months", 0, "validity window in months (0 = no expiry)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(docStatusCmd)
}
