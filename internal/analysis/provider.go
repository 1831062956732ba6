// Package analysis isolates the external AI text-analysis capability
// behind a narrow interface so matching and linking logic can be tested
// with a deterministic fake.
package analysis

import (
	"context"

	"github.com/evidentry-project/evidentry/pkg/model"
)

// MatchRequest asks whether a document's text satisfies one requirement.
type MatchRequest struct {
	Requirement model.Requirement `json:"requirement"`
	DocumentID  model.DocumentID  `json:"document_id"`
	FileName    string            `json:"file_name"`
	Text        string            `json:"text"`
}

// MatchResult is the provider's relevance judgment for one pair.
type MatchResult struct {
	Confidence  float64             `json:"confidence"`
	Quality     model.QualityScores `json:"quality"`
	MappingType model.MappingType   `json:"mapping_type"`
	Snippets    []string            `json:"snippets,omitempty"`
	Analysis    string              `json:"analysis,omitempty"`
}

// LinkRequest asks whether two requirements of different frameworks
// address the same control objective.
type LinkRequest struct {
	Primary   model.Requirement `json:"primary"`
	Candidate model.Requirement `json:"candidate"`
}

// LinkResult is the provider's similarity judgment for two requirements.
type LinkResult struct {
	Confidence  float64        `json:"confidence"`
	Type        model.LinkType `json:"mapping_type"`
	Description string         `json:"description,omitempty"`
}

// Provider is the external analysis service. Implementations are fallible
// and non-deterministic; callers must degrade per item on error.
type Provider interface {
	Match(ctx context.Context, req MatchRequest) (*MatchResult, error)
	Link(ctx context.Context, req LinkRequest) (*LinkResult, error)
}
