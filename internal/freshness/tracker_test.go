package freshness_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evidentry-project/evidentry/internal/freshness"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []model.FreshnessState
}

func (n *recordingNotifier) NotifyFreshness(_ context.Context, _ *model.Document, state model.FreshnessState) error {
	n.sent = append(n.sent, state)
	return nil
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name       string
		validUntil *time.Time
		want       model.FreshnessState
	}{
		{"no validity window", nil, model.FreshnessFresh},
		{"far in the future", at(100 * 24 * time.Hour), model.FreshnessFresh},
		{"inside warning window", at(10 * 24 * time.Hour), model.FreshnessWarning},
		{"recently lapsed", at(-24 * time.Hour), model.FreshnessExpired},
		{"long lapsed", at(-40 * 24 * time.Hour), model.FreshnessOverdue},
		{"exactly at boundary", at(0), model.FreshnessExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, freshness.Classify(tc.validUntil, now))
		})
	}
}

func TestValidUntilFromFreshnessMonths(t *testing.T) {
	uploaded := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{UploadedAt: uploaded, FreshnessMonths: 12}

	got := freshness.ValidUntil(doc)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), *got)

	// No declared window means no expiry.
	assert.Nil(t, freshness.ValidUntil(&model.Document{UploadedAt: uploaded}))

	// A pre-set window is kept as-is.
	preset := uploaded.AddDate(0, 6, 0)
	doc = &model.Document{UploadedAt: uploaded, FreshnessMonths: 12, ValidUntil: &preset}
	assert.Equal(t, preset, *freshness.ValidUntil(doc))
}

func newTracker(t *testing.T, n freshness.Notifier) (*freshness.Tracker, *store.Store) {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	ledger := provenance.NewLedger(s, metrics.NewRegistry())
	return freshness.NewTracker(s, ledger, n, metrics.NewRegistry(), 24*time.Hour), s
}

func verifiedDoc(t *testing.T, s *store.Store, uploadedAt time.Time, months int) *model.Document {
	t.Helper()
	src := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(src, []byte("quarterly access review"), 0644))
	doc, err := s.IngestDocument(src, "user-1", "iso27001", "", months)
	require.NoError(t, err)
	doc.UploadedAt = uploadedAt
	doc.Status = model.DocumentVerified
	require.NoError(t, s.SaveDocument(doc))
	return doc
}

func TestCheckTransitionsAndPersists(t *testing.T) {
	n := &recordingNotifier{}
	tr, s := newTracker(t, n)

	uploaded := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	doc := verifiedDoc(t, s, uploaded, 12) // valid until 2026-08-01

	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC) // 9 days past
	transitions, err := tr.CheckAll(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, model.FreshnessFresh, transitions[0].From)
	assert.Equal(t, model.FreshnessExpired, transitions[0].To)
	assert.True(t, transitions[0].Notified)
	assert.Equal(t, []model.FreshnessState{model.FreshnessExpired}, n.sent)

	stored, err := s.Document(doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsExpired)
	require.NotNil(t, stored.ValidUntil)
	assert.Equal(t, uploaded.AddDate(0, 12, 0), *stored.ValidUntil)
	assert.NotNil(t, stored.LastFreshnessCheck)
}

func TestCheckIsIdempotent(t *testing.T) {
	n := &recordingNotifier{}
	tr, s := newTracker(t, n)
	verifiedDoc(t, s, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), 12)

	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	first, err := tr.CheckAll(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// An immediate re-run sees no state change and sends nothing.
	second, err := tr.CheckAll(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, n.sent, 1)
}

func TestCheckSkipsUnverifiedDocuments(t *testing.T) {
	n := &recordingNotifier{}
	tr, s := newTracker(t, n)

	src := filepath.Join(t.TempDir(), "draft.pdf")
	require.NoError(t, os.WriteFile(src, []byte("draft"), 0644))
	_, err := s.IngestDocument(src, "user-1", "iso27001", "", 1)
	require.NoError(t, err)

	transitions, err := tr.CheckAll(context.Background(), time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, transitions)
	assert.Empty(t, n.sent)
}

func TestExpiredProgressesToOverdue(t *testing.T) {
	n := &recordingNotifier{}
	tr, s := newTracker(t, n)
	doc := verifiedDoc(t, s, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), 12)

	// First check: just lapsed.
	_, err := tr.CheckAll(context.Background(), time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Second check: well past the grace window.
	transitions, err := tr.CheckAll(context.Background(), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, model.FreshnessExpired, transitions[0].From)
	assert.Equal(t, model.FreshnessOverdue, transitions[0].To)
	assert.Equal(t, []model.FreshnessState{model.FreshnessExpired, model.FreshnessOverdue}, n.sent)

	// Both transitions are on the provenance chain.
	ledger := provenance.NewLedger(s, metrics.NewRegistry())
	events, err := ledger.Events(doc.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
