package model

import "time"

// NotificationRecord marks that a freshness notification was requested for
// a document. Used to keep scheduler re-runs idempotent: at most one
// notification per (document, state) pair within the dedupe window.
type NotificationRecord struct {
	DocumentID DocumentID     `json:"document_id"`
	State      FreshnessState `json:"state"`
	CreatedAt  time.Time      `json:"created_at"`
}

// StatusTransition reports one freshness state change produced by a check.
type StatusTransition struct {
	DocumentID DocumentID     `json:"document_id"`
	From       FreshnessState `json:"from"`
	To         FreshnessState `json:"to"`
	ValidUntil *time.Time     `json:"valid_until,omitempty"`
	Notified   bool           `json:"notified"`
}
