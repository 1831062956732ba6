// Package gap derives evidence gaps from the mappings a requirement has
// accumulated. Analysis is a pure function of its inputs.
package gap

import (
	"fmt"
	"time"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

const (
	adequateMean    = 0.6
	poorQualityMean = 0.4
)

// Analyze decides whether a requirement has an evidence gap given its
// current mappings. Returns nil when coverage is adequate.
func Analyze(req model.Requirement, mappings []*model.EvidenceMapping) *model.EvidenceGap {
	if len(mappings) == 0 {
		severity := model.SeverityHigh
		if req.Priority == model.PriorityCritical {
			severity = model.SeverityCritical
		}
		return newGap(req, model.GapMissingEvidence, severity,
			fmt.Sprintf("no evidence is mapped to requirement %s", req.ID),
			[]string{
				"upload evidence documents covering this requirement",
				"run evidence matching after uploading",
			})
	}

	var qualitySum, confidenceSum float64
	for _, m := range mappings {
		qualitySum += m.QualityScore
		confidenceSum += m.Confidence
	}
	meanQuality := qualitySum / float64(len(mappings))
	meanConfidence := confidenceSum / float64(len(mappings))

	if meanQuality >= adequateMean && meanConfidence >= adequateMean {
		return nil
	}

	gapType := model.GapInsufficientEvidence
	if meanQuality < poorQualityMean {
		gapType = model.GapPoorQuality
	}
	severity := model.SeverityMedium
	if req.Priority == model.PriorityCritical {
		severity = model.SeverityHigh
	}
	return newGap(req, gapType, severity,
		fmt.Sprintf("evidence for requirement %s is below the adequacy threshold (mean quality %.2f, mean confidence %.2f)",
			req.ID, meanQuality, meanConfidence),
		[]string{
			"review the mapped documents for relevance",
			"replace low-quality evidence with more specific documentation",
		})
}

func newGap(req model.Requirement, gapType model.GapType, severity model.GapSeverity, description string, recommendations []string) *model.EvidenceGap {
	return &model.EvidenceGap{
		ID:              uuidutil.NewV4(),
		RequirementID:   req.ID,
		FrameworkID:     req.FrameworkID,
		Type:            gapType,
		Severity:        severity,
		Description:     description,
		Recommendations: recommendations,
		Status:          model.GapOpen,
		CreatedAt:       time.Now().UTC(),
	}
}

// Analyzer recomputes gaps against the store whenever mappings change.
type Analyzer struct {
	store   *store.Store
	metrics *metrics.Registry
}

// NewAnalyzer creates a store-backed analyzer.
func NewAnalyzer(s *store.Store, reg *metrics.Registry) *Analyzer {
	return &Analyzer{store: s, metrics: reg}
}

// AnalyzeRequirement recomputes the gap state of one requirement: opens a
// gap when coverage is inadequate (superseding any older open gap), or
// resolves the open gap when coverage became adequate.
func (a *Analyzer) AnalyzeRequirement(req model.Requirement) (*model.EvidenceGap, error) {
	mappings, err := a.store.MappingsForRequirement(req.ID)
	if err != nil {
		return nil, err
	}
	// Rejected mappings no longer count as coverage.
	active := mappings[:0]
	for _, m := range mappings {
		if m.ValidationStatus != model.ValidationRejected {
			active = append(active, m)
		}
	}

	gap := Analyze(req, active)
	if gap == nil {
		open, err := a.store.OpenGapForRequirement(req.ID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			if err := a.store.ResolveGap(open.ID); err != nil {
				return nil, err
			}
			if a.metrics != nil {
				a.metrics.RecordGap(false)
			}
			logging.Info("gap resolved", map[string]any{
				"requirement_id": req.ID,
				"gap_id":         open.ID,
			})
		}
		return nil, nil
	}

	if err := a.store.OpenGap(gap); err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.RecordGap(true)
	}
	logging.Info("gap opened", map[string]any{
		"requirement_id": req.ID,
		"gap_type":       string(gap.Type),
		"severity":       string(gap.Severity),
	})
	return gap, nil
}

// AnalyzeAll recomputes gaps for every requirement of the given frameworks.
func (a *Analyzer) AnalyzeAll(requirements []model.Requirement) ([]*model.EvidenceGap, error) {
	var out []*model.EvidenceGap
	for _, req := range requirements {
		gap, err := a.AnalyzeRequirement(req)
		if err != nil {
			return nil, err
		}
		if gap != nil {
			out = append(out, gap)
		}
	}
	return out, nil
}
