package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// LastNotification returns the most recent notification record for a
// (document, state) pair, or nil if none was ever sent.
func (s *Store) LastNotification(id model.DocumentID, state model.FreshnessState) (*model.NotificationRecord, error) {
	data, err := os.ReadFile(s.notificationPath(id, state))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notification record: %w", err)
	}
	var rec model.NotificationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse notification record: %w", err)
	}
	return &rec, nil
}

// RecordNotification marks that a notification for (document, state) was
// sent at now. Overwrites the previous record.
func (s *Store) RecordNotification(id model.DocumentID, state model.FreshnessState, now time.Time) error {
	rec := model.NotificationRecord{DocumentID: id, State: state, CreatedAt: now.UTC()}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notification record: %w", err)
	}
	return fsutil.AtomicWrite(s.notificationPath(id, state), data, 0644)
}

// NotifiedWithin reports whether a notification for (document, state) was
// already recorded inside the dedupe window ending at now.
func (s *Store) NotifiedWithin(id model.DocumentID, state model.FreshnessState, window time.Duration, now time.Time) (bool, error) {
	rec, err := s.LastNotification(id, state)
	if err != nil || rec == nil {
		return false, err
	}
	return now.Sub(rec.CreatedAt) < window, nil
}

func (s *Store) notificationPath(id model.DocumentID, state model.FreshnessState) string {
	return filepath.Join(s.dir("notifications"), fmt.Sprintf("%s-%s.json", id, state))
}
