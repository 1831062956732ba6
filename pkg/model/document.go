package model

import "time"

// DocumentID is the unique identifier for an evidence document.
type DocumentID string

// String returns the full document ID as string.
func (id DocumentID) String() string {
	return string(id)
}

// ShortID returns the first 8 characters for display.
func (id DocumentID) ShortID() string {
	s := string(id)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

// DocumentStatus is the verification status of a document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentVerified DocumentStatus = "verified"
	DocumentRejected DocumentStatus = "rejected"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentVerified, DocumentRejected:
		return true
	}
	return false
}

// FreshnessState classifies a document's validity window relative to now.
type FreshnessState string

const (
	FreshnessFresh   FreshnessState = "fresh"
	FreshnessWarning FreshnessState = "warning"
	FreshnessExpired FreshnessState = "expired"
	FreshnessOverdue FreshnessState = "overdue"
)

// Valid reports whether s is a known freshness state.
func (s FreshnessState) Valid() bool {
	switch s {
	case FreshnessFresh, FreshnessWarning, FreshnessExpired, FreshnessOverdue:
		return true
	}
	return false
}

// Document is the stored metadata for one piece of evidence. Content is
// immutable once hashed; an edit produces a new Document.
type Document struct {
	ID                 DocumentID     `json:"document_id"`
	OwnerID            string         `json:"owner_id"`
	CompanyID          string         `json:"company_id,omitempty"`
	FileName           string         `json:"file_name"`
	FileType           string         `json:"file_type,omitempty"`
	SizeBytes          int64          `json:"size_bytes"`
	ContentHash        HashValue      `json:"content_hash"`
	UploadedAt         time.Time      `json:"uploaded_at"`
	FrameworkID        string         `json:"framework_id,omitempty"`
	RequirementID      string         `json:"requirement_id,omitempty"`
	Status             DocumentStatus `json:"status"`
	FreshnessMonths    int            `json:"freshness_months,omitempty"`
	ValidUntil         *time.Time     `json:"valid_until,omitempty"`
	IsExpired          bool           `json:"is_expired"`
	LastFreshnessCheck *time.Time     `json:"last_freshness_check,omitempty"`
}
