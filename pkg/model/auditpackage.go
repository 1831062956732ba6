package model

import "time"

// PackageID is the unique identifier for an audit package.
type PackageID string

// String returns the full package ID as string.
func (id PackageID) String() string {
	return string(id)
}

// ShortID returns the first 8 characters for display.
func (id PackageID) ShortID() string {
	s := string(id)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

// PackageStatus is the lifecycle state of an audit package.
//
// generating → sealed on success, generating → failed on error.
// sealed → archived is a soft delete; the archive file is kept.
type PackageStatus string

const (
	PackageGenerating PackageStatus = "generating"
	PackageSealed     PackageStatus = "sealed"
	PackageFailed     PackageStatus = "failed"
	PackageArchived   PackageStatus = "archived"
)

// Valid reports whether s is a known package status.
func (s PackageStatus) Valid() bool {
	switch s {
	case PackageGenerating, PackageSealed, PackageFailed, PackageArchived:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is permitted,
// except the sealed → archived soft delete.
func (s PackageStatus) Terminal() bool {
	return s == PackageFailed || s == PackageArchived
}

// IncludedAs classifies why a file is part of a package.
type IncludedAs string

const (
	IncludedEvidence IncludedAs = "evidence"
	IncludedPolicy   IncludedAs = "policy"
	IncludedOther    IncludedAs = "other"
)

// Valid reports whether c is a known inclusion class.
func (c IncludedAs) Valid() bool {
	switch c {
	case IncludedEvidence, IncludedPolicy, IncludedOther:
		return true
	}
	return false
}

// IncludeOptions selects which content classes a package collects.
type IncludeOptions struct {
	Evidence bool `json:"evidence"`
	Policies bool `json:"policies"`
}

// AuditPackage is the stored record of a sealed evidence bundle.
// Immutable once sealed: no item can be added, removed, or altered.
type AuditPackage struct {
	ID           PackageID     `json:"package_id"`
	OwnerID      string        `json:"owner_id"`
	CompanyID    string        `json:"company_id,omitempty"`
	Title        string        `json:"title"`
	FrameworkIDs []string      `json:"framework_ids"`
	Include      IncludeOptions `json:"include"`
	Status       PackageStatus `json:"status"`
	DocCount     int           `json:"doc_count"`
	SizeBytes    int64         `json:"size_bytes"`
	ArchivePath  string        `json:"archive_path,omitempty"`
	ManifestPath string        `json:"manifest_path,omitempty"`
	ManifestHash HashValue     `json:"manifest_hash,omitempty"`
	FailureCause string        `json:"failure_cause,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	SealedAt     *time.Time    `json:"sealed_at,omitempty"`
}

// AuditPackageItem records one file physically present in a sealed archive.
type AuditPackageItem struct {
	ID            string     `json:"item_id"`
	PackageID     PackageID  `json:"package_id"`
	DocumentID    DocumentID `json:"document_id"`
	RequirementID string     `json:"requirement_id,omitempty"`
	FileName      string     `json:"file_name"`
	ArchivePath   string     `json:"archive_path"`
	ContentHash   HashValue  `json:"content_hash"`
	SizeBytes     int64      `json:"size_bytes"`
	IncludedAs    IncludedAs `json:"included_as"`
	AddedAt       time.Time  `json:"added_at"`
}

// PackageSummary is the external listing view of a package (no items).
type PackageSummary struct {
	ID        PackageID     `json:"id"`
	Title     string        `json:"title"`
	Status    PackageStatus `json:"status"`
	DocCount  int           `json:"doc_count"`
	SizeBytes int64         `json:"size_bytes"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary returns the listing view of p.
func (p *AuditPackage) Summary() PackageSummary {
	return PackageSummary{
		ID:        p.ID,
		Title:     p.Title,
		Status:    p.Status,
		DocCount:  p.DocCount,
		SizeBytes: p.SizeBytes,
		CreatedAt: p.CreatedAt,
	}
}
