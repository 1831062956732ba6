package model

import "time"

// MappingType classifies how a document relates to a requirement.
type MappingType string

const (
	MappingDirect         MappingType = "direct"
	MappingPartial        MappingType = "partial"
	MappingSupporting     MappingType = "supporting"
	MappingCrossReference MappingType = "cross_reference"
)

// Valid reports whether t is a known mapping type.
func (t MappingType) Valid() bool {
	switch t {
	case MappingDirect, MappingPartial, MappingSupporting, MappingCrossReference:
		return true
	}
	return false
}

// ValidationStatus is the human-validation state of a mapping.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
	ValidationRejected  ValidationStatus = "rejected"
)

// Valid reports whether s is a known validation status.
func (s ValidationStatus) Valid() bool {
	switch s {
	case ValidationPending, ValidationValidated, ValidationRejected:
		return true
	}
	return false
}

// QualityScores are the per-dimension sub-scores of a mapping, each in [0,1].
type QualityScores struct {
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Relevance    float64 `json:"relevance"`
	Specificity  float64 `json:"specificity"`
}

// Composite returns the arithmetic mean of the sub-scores.
func (q QualityScores) Composite() float64 {
	return (q.Completeness + q.Clarity + q.Relevance + q.Specificity) / 4
}

// EvidenceMapping is a scored association between one document and one
// requirement. Created only by the matcher; never deleted, only superseded
// via validation status.
type EvidenceMapping struct {
	ID               string           `json:"mapping_id"`
	DocumentID       DocumentID       `json:"document_id"`
	RequirementID    string           `json:"requirement_id"`
	FrameworkID      string           `json:"framework_id"`
	Confidence       float64          `json:"mapping_confidence"`
	QualityScore     float64          `json:"quality_score"`
	Quality          QualityScores    `json:"quality"`
	MappingType      MappingType      `json:"mapping_type"`
	Snippets         []string         `json:"snippets,omitempty"`
	Analysis         string           `json:"analysis,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	CreatedAt        time.Time        `json:"created_at"`
}
