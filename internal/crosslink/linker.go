// Package crosslink discovers requirements of different frameworks that
// address the same control objective, so evidence satisfying one can be
// surfaced for the other.
package crosslink

import (
	"context"
	"time"

	"github.com/evidentry-project/evidentry/internal/analysis"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

// persistThreshold: false links are worse than missing links, so only
// high-confidence judgments are stored.
const persistThreshold = 0.7

// Linker asks the analysis provider for similarity judgments and stores
// the links that clear the threshold.
type Linker struct {
	provider    analysis.Provider
	store       *store.Store
	callTimeout time.Duration
}

// New creates a linker.
func New(provider analysis.Provider, s *store.Store, callTimeout time.Duration) *Linker {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Linker{provider: provider, store: s, callTimeout: callTimeout}
}

// Link judges primary against every candidate of a different framework and
// persists links with confidence above the threshold, both directions. On
// provider failure the candidate is skipped; no fallback link is invented.
func (l *Linker) Link(ctx context.Context, primary model.Requirement, candidates []model.Requirement) ([]*model.CrossFrameworkMapping, error) {
	var out []*model.CrossFrameworkMapping
	for _, candidate := range candidates {
		if candidate.FrameworkID == primary.FrameworkID {
			continue
		}
		if exists, err := l.store.HasLink(primary.ID, candidate.ID); err != nil {
			return out, err
		} else if exists {
			continue
		}

		result, err := l.judge(ctx, primary, candidate)
		if err != nil {
			logging.Warn("provider link failed, skipping candidate", map[string]any{
				"primary_id":   primary.ID,
				"candidate_id": candidate.ID,
				"error":        err.Error(),
			})
			continue
		}
		if result.Confidence <= persistThreshold {
			continue
		}

		link := &model.CrossFrameworkMapping{
			ID:                 uuidutil.NewV4(),
			PrimaryRequirement: primary.ID,
			PrimaryFramework:   primary.FrameworkID,
			RelatedRequirement: candidate.ID,
			RelatedFramework:   candidate.FrameworkID,
			Type:               result.Type,
			Confidence:         result.Confidence,
			Description:        result.Description,
			CreatedAt:          time.Now().UTC(),
		}
		if err := l.store.SaveLink(link); err != nil {
			return out, err
		}
		out = append(out, link)
	}
	return out, nil
}

// LinkFrameworks links every requirement of one framework against every
// requirement of another.
func (l *Linker) LinkFrameworks(ctx context.Context, primary, related []model.Requirement) ([]*model.CrossFrameworkMapping, error) {
	var out []*model.CrossFrameworkMapping
	for _, req := range primary {
		links, err := l.Link(ctx, req, related)
		out = append(out, links...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (l *Linker) judge(ctx context.Context, primary, candidate model.Requirement) (*analysis.LinkResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()
	return l.provider.Link(callCtx, analysis.LinkRequest{Primary: primary, Candidate: candidate})
}
