// Package matcher runs analysis-provider matching between documents and
// framework requirements and persists the resulting evidence mappings.
package matcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evidentry-project/evidentry/internal/analysis"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

const (
	// persistThreshold filters analysis noise; weaker signals are
	// discarded, not stored.
	persistThreshold = 0.1

	// textBudget bounds the analysis request size, in runes.
	textBudget = 12000

	headShare     = 0.7
	elisionMarker = "\n[... content elided ...]\n"

	fallbackNote = "analysis provider unavailable: manual review required"
)

// TruncateText bounds text to the analysis budget, keeping the head and
// tail so both structural preamble and closing sections survive.
func TruncateText(text string, budget int) string {
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return text
	}
	head := int(float64(budget) * headShare)
	tail := budget - head
	return string(runes[:head]) + elisionMarker + string(runes[len(runes)-tail:])
}

// Matcher matches one document against requirement sets.
type Matcher struct {
	provider      analysis.Provider
	store         *store.Store
	ledger        *provenance.Ledger
	metrics       *metrics.Registry
	maxConcurrent int
	callTimeout   time.Duration
}

// New creates a matcher. maxConcurrent bounds parallel provider calls;
// callTimeout caps each individual call.
func New(provider analysis.Provider, s *store.Store, ledger *provenance.Ledger, reg *metrics.Registry, maxConcurrent int, callTimeout time.Duration) *Matcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Matcher{
		provider:      provider,
		store:         s,
		ledger:        ledger,
		metrics:       reg,
		maxConcurrent: maxConcurrent,
		callTimeout:   callTimeout,
	}
}

// MatchDocument matches one document against every requirement in scope
// and persists the mappings that clear the confidence threshold. Provider
// failures never abort the batch: the failed requirement gets a
// zero-confidence mapping flagged for manual review and the rest proceed.
func (m *Matcher) MatchDocument(ctx context.Context, doc *model.Document, requirements []model.Requirement) ([]*model.EvidenceMapping, error) {
	content, err := m.store.ReadContent(doc.ID)
	if err != nil {
		return nil, err
	}
	text := TruncateText(string(content), textBudget)

	var mu sync.Mutex
	var persisted []*model.EvidenceMapping

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrent)
	for _, req := range requirements {
		req := req
		g.Go(func() error {
			mapping := m.matchOne(gctx, doc, req, text)
			if mapping == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if err := m.store.SaveMapping(mapping); err != nil {
				return err
			}
			persisted = append(persisted, mapping)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return persisted, err
	}

	if m.ledger != nil && len(persisted) > 0 {
		_, err := m.ledger.Append(doc.ID, model.EventAnalyzed, model.SystemActor, map[string]any{
			"mappings": len(persisted),
		})
		if err != nil {
			return persisted, err
		}
	}
	return persisted, nil
}

// matchOne returns the mapping to persist for one (document, requirement)
// pair, or nil when the signal is below the persistence threshold.
func (m *Matcher) matchOne(ctx context.Context, doc *model.Document, req model.Requirement, text string) *model.EvidenceMapping {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	result, err := m.provider.Match(callCtx, analysis.MatchRequest{
		Requirement: req,
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		Text:        text,
	})
	if err != nil {
		logging.Warn("provider match failed", map[string]any{
			"document_id":    doc.ID.String(),
			"requirement_id": req.ID,
			"error":          err.Error(),
		})
		if m.metrics != nil {
			m.metrics.RecordMatch(true, true)
		}
		return m.fallbackMapping(doc, req)
	}

	if result.Confidence <= persistThreshold {
		if m.metrics != nil {
			m.metrics.RecordMatch(false, false)
		}
		return nil
	}
	if m.metrics != nil {
		m.metrics.RecordMatch(false, true)
	}
	return &model.EvidenceMapping{
		ID:               uuidutil.NewV4(),
		DocumentID:       doc.ID,
		RequirementID:    req.ID,
		FrameworkID:      req.FrameworkID,
		Confidence:       result.Confidence,
		QualityScore:     result.Quality.Composite(),
		Quality:          result.Quality,
		MappingType:      result.MappingType,
		Snippets:         result.Snippets,
		Analysis:         result.Analysis,
		ValidationStatus: model.ValidationPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func (m *Matcher) fallbackMapping(doc *model.Document, req model.Requirement) *model.EvidenceMapping {
	return &model.EvidenceMapping{
		ID:               uuidutil.NewV4(),
		DocumentID:       doc.ID,
		RequirementID:    req.ID,
		FrameworkID:      req.FrameworkID,
		Confidence:       0,
		QualityScore:     0,
		MappingType:      model.MappingSupporting,
		Analysis:         fallbackNote,
		ValidationStatus: model.ValidationPending,
		CreatedAt:        time.Now().UTC(),
	}
}
