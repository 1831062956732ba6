// Package freshness classifies evidence validity windows and drives
// expiry notifications on a fixed cadence.
package freshness

import (
	"context"
	"time"

	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
)

const warningWindow = 30 * 24 * time.Hour

// Notifier delivers freshness alerts to the external collaborator.
type Notifier interface {
	NotifyFreshness(ctx context.Context, doc *model.Document, state model.FreshnessState) error
}

// Classify maps a validity window onto a freshness state at time now.
// A document with no validity window is always fresh.
func Classify(validUntil *time.Time, now time.Time) model.FreshnessState {
	if validUntil == nil {
		return model.FreshnessFresh
	}
	switch {
	case now.Before(validUntil.Add(-warningWindow)):
		return model.FreshnessFresh
	case now.Before(*validUntil):
		return model.FreshnessWarning
	case now.Before(validUntil.Add(warningWindow)):
		return model.FreshnessExpired
	default:
		return model.FreshnessOverdue
	}
}

// ValidUntil computes the end of a document's validity window from its
// upload time and declared freshness months. Returns nil when no window
// is declared.
func ValidUntil(doc *model.Document) *time.Time {
	if doc.ValidUntil != nil {
		return doc.ValidUntil
	}
	if doc.FreshnessMonths <= 0 {
		return nil
	}
	t := doc.UploadedAt.AddDate(0, doc.FreshnessMonths, 0)
	return &t
}

// Tracker runs freshness checks over the store.
type Tracker struct {
	store        *store.Store
	ledger       *provenance.Ledger
	notifier     Notifier
	metrics      *metrics.Registry
	dedupeWindow time.Duration
}

// NewTracker creates a tracker. notifier may be nil when notifications are
// disabled.
func NewTracker(s *store.Store, ledger *provenance.Ledger, notifier Notifier, reg *metrics.Registry, dedupeWindow time.Duration) *Tracker {
	if dedupeWindow <= 0 {
		dedupeWindow = 24 * time.Hour
	}
	return &Tracker{
		store:        s,
		ledger:       ledger,
		notifier:     notifier,
		metrics:      reg,
		dedupeWindow: dedupeWindow,
	}
}

// CheckAll runs a freshness check across every verified document.
func (t *Tracker) CheckAll(ctx context.Context, now time.Time) ([]model.StatusTransition, error) {
	docs, err := t.store.Documents()
	if err != nil {
		return nil, err
	}
	return t.Check(ctx, docs, now)
}

// Check classifies each verified document at time now, persists the
// updated freshness fields, and requests notifications for transitions
// into warning or beyond. Re-runs are idempotent: the same transition is
// not re-notified within the dedupe window.
func (t *Tracker) Check(ctx context.Context, docs []*model.Document, now time.Time) ([]model.StatusTransition, error) {
	var transitions []model.StatusTransition
	notified := 0

	for _, doc := range docs {
		if doc.Status != model.DocumentVerified {
			continue
		}

		validUntil := ValidUntil(doc)
		from := t.previousState(doc, validUntil)
		to := Classify(validUntil, now)

		checkTime := now.UTC()
		doc.ValidUntil = validUntil
		doc.IsExpired = stateExpired(to)
		doc.LastFreshnessCheck = &checkTime
		if err := t.store.SaveDocument(doc); err != nil {
			return transitions, err
		}

		if from == to {
			continue
		}

		transition := model.StatusTransition{
			DocumentID: doc.ID,
			From:       from,
			To:         to,
			ValidUntil: validUntil,
		}

		if t.ledger != nil {
			eventType := model.EventModified
			if to == model.FreshnessExpired || to == model.FreshnessOverdue {
				eventType = model.EventExpired
			}
			_, err := t.ledger.Append(doc.ID, eventType, model.SystemActor, map[string]any{
				"freshness_from": string(from),
				"freshness_to":   string(to),
			})
			if err != nil {
				return transitions, err
			}
		}

		if to != model.FreshnessFresh {
			sent, err := t.maybeNotify(ctx, doc, to, now)
			if err != nil {
				return transitions, err
			}
			transition.Notified = sent
			if sent {
				notified++
			}
		}
		transitions = append(transitions, transition)
	}

	if t.metrics != nil {
		t.metrics.RecordFreshness(notified)
	}
	return transitions, nil
}

// previousState reconstructs the state the document was in at its last
// check. Never-checked documents start fresh.
func (t *Tracker) previousState(doc *model.Document, validUntil *time.Time) model.FreshnessState {
	if doc.LastFreshnessCheck == nil {
		return model.FreshnessFresh
	}
	return Classify(validUntil, *doc.LastFreshnessCheck)
}

func (t *Tracker) maybeNotify(ctx context.Context, doc *model.Document, state model.FreshnessState, now time.Time) (bool, error) {
	if t.notifier == nil {
		return false, nil
	}
	recent, err := t.store.NotifiedWithin(doc.ID, state, t.dedupeWindow, now)
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}
	if err := t.notifier.NotifyFreshness(ctx, doc, state); err != nil {
		// Notification failure must not abort the sweep.
		logging.ErrorErr("freshness notification failed", err, map[string]any{
			"document_id": doc.ID.String(),
			"state":       string(state),
		})
		return false, nil
	}
	if err := t.store.RecordNotification(doc.ID, state, now); err != nil {
		return true, err
	}
	return true, nil
}

func stateExpired(s model.FreshnessState) bool {
	return s == model.FreshnessExpired || s == model.FreshnessOverdue
}
