package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evidentry-project/evidentry/internal/freshness"
	"github.com/evidentry-project/evidentry/internal/notify"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/pkg/metrics"
)

var freshnessWatch bool

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Run an evidence freshness check",
	Long: `Classify every verified document's validity window and send expiry
notifications for new transitions. With --watch, keep running: check on
the configured cadence and whenever document records change on disk.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := requireStore()
		cfg := loadConfig(s)

		ledger := provenance.NewLedger(s, metrics.Default())
		var notifier freshness.Notifier
		if cfg.Notifier.Enabled {
			notifier = notify.NewClient(cfg.Notifier)
		}
		tracker := freshness.NewTracker(s, ledger, notifier, metrics.Default(), cfg.NotifyDedupeWindow())

		if !freshnessWatch {
			transitions, err := tracker.CheckAll(context.Background(), time.Now())
			if err != nil {
				fmtErr("freshness check: %v", err)
				os.Exit(1)
			}
			if jsonOutput {
				outputJSON(transitions)
				return
			}
			if len(transitions) == 0 {
				fmt.Println("No freshness transitions")
				return
			}
			for _, tr := range transitions {
				note := ""
				if tr.Notified {
					note = " (notified)"
				}
				fmt.Printf("%s  %s -> %s%s\n", tr.DocumentID.ShortID(), tr.From, tr.To, note)
			}
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := freshness.NewService(tracker, nil, cfg.FreshnessCadence())
		svc.Start(ctx)
		defer svc.Stop()

		if cfg.Freshness.Watch || freshnessWatch {
			watcher := freshness.NewWatcher(tracker, s, nil)
			go func() {
				if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
					fmtErr("watch: %v", err)
				}
			}()
		}

		fmt.Printf("Freshness service running (cadence %s); Ctrl-C to stop\n", cfg.FreshnessCadence())
		<-ctx.Done()
	},
}

func init() {
	freshnessCmd.Flags().BoolVar(&freshnessWatch, "watch", false, "keep running and react to record changes")
	rootCmd.AddCommand(freshnessCmd)
}
