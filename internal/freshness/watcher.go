package freshness

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/logging"
)

// debounce coalesces bursts of record writes into one check.
const debounce = 2 * time.Second

// Watcher triggers a freshness check whenever document records change on
// disk, in addition to the scheduled cadence.
type Watcher struct {
	tracker *Tracker
	store   *store.Store
	clock   Clock
}

// NewWatcher creates a watcher over the store's documents directory.
func NewWatcher(tracker *Tracker, s *store.Store, clock Clock) *Watcher {
	if clock == nil {
		clock = realClock{}
	}
	return &Watcher{tracker: tracker, store: s, clock: clock}
}

// Run watches until ctx is cancelled. Blocking; callers run it in a
// goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Join(w.store.Root, ".evidentry", "documents")
	if err := fw.Add(dir); err != nil {
		return err
	}
	logging.Info("watching document records", map[string]any{"dir": dir})

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.ErrorErr("document watch error", err)
		case <-fire:
			timer = nil
			fire = nil
			if _, err := w.tracker.CheckAll(ctx, w.clock.Now()); err != nil {
				logging.ErrorErr("watch-triggered freshness check failed", err)
			}
		}
	}
}
