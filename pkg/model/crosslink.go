package model

import "time"

// LinkType classifies the relation between requirements of different
// frameworks.
type LinkType string

const (
	LinkEquivalent LinkType = "equivalent"
	LinkSimilar    LinkType = "similar"
	LinkRelated    LinkType = "related"
	LinkSupporting LinkType = "supporting"
)

// Valid reports whether t is a known link type.
func (t LinkType) Valid() bool {
	switch t {
	case LinkEquivalent, LinkSimilar, LinkRelated, LinkSupporting:
		return true
	}
	return false
}

// CrossFrameworkMapping links a requirement to a related requirement of
// another framework. Stored directionally; symmetry is enforced by
// inserting both directions.
type CrossFrameworkMapping struct {
	ID                   string    `json:"link_id"`
	PrimaryRequirement   string    `json:"primary_requirement_id"`
	PrimaryFramework     string    `json:"primary_framework_id"`
	RelatedRequirement   string    `json:"related_requirement_id"`
	RelatedFramework     string    `json:"related_framework_id"`
	Type                 LinkType  `json:"mapping_type"`
	Confidence           float64   `json:"confidence"`
	Description          string    `json:"description,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}
