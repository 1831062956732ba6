package model

import "time"

// GapType classifies why a requirement lacks adequate evidence.
type GapType string

const (
	GapMissingEvidence      GapType = "missing_evidence"
	GapInsufficientEvidence GapType = "insufficient_evidence"
	GapOutdatedEvidence     GapType = "outdated_evidence"
	GapPoorQuality          GapType = "poor_quality"
)

// Valid reports whether t is a known gap type.
func (t GapType) Valid() bool {
	switch t {
	case GapMissingEvidence, GapInsufficientEvidence, GapOutdatedEvidence, GapPoorQuality:
		return true
	}
	return false
}

// GapSeverity ranks the urgency of a gap.
type GapSeverity string

const (
	SeverityCritical GapSeverity = "critical"
	SeverityHigh     GapSeverity = "high"
	SeverityMedium   GapSeverity = "medium"
	SeverityLow      GapSeverity = "low"
)

// Valid reports whether s is a known severity.
func (s GapSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// GapStatus is the lifecycle state of a gap.
type GapStatus string

const (
	GapOpen     GapStatus = "open"
	GapResolved GapStatus = "resolved"
)

// Valid reports whether s is a known gap status.
func (s GapStatus) Valid() bool {
	return s == GapOpen || s == GapResolved
}

// EvidenceGap is a derived record of absent or inadequate evidence for a
// requirement. At most one open gap exists per requirement.
type EvidenceGap struct {
	ID              string      `json:"gap_id"`
	RequirementID   string      `json:"requirement_id"`
	FrameworkID     string      `json:"framework_id"`
	Type            GapType     `json:"gap_type"`
	Severity        GapSeverity `json:"severity"`
	Description     string      `json:"description"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Status          GapStatus   `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
}
