package crosslink_test

import (
	"context"
	"testing"
	"time"

	"github.com/evidentry-project/evidentry/internal/analysis"
	"github.com/evidentry-project/evidentry/internal/crosslink"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinkProvider struct {
	results map[string]*analysis.LinkResult
	fail    map[string]bool
	calls   int
}

func (f *fakeLinkProvider) Match(_ context.Context, _ analysis.MatchRequest) (*analysis.MatchResult, error) {
	return nil, errclass.ErrProviderUnavailable
}

func (f *fakeLinkProvider) Link(_ context.Context, req analysis.LinkRequest) (*analysis.LinkResult, error) {
	f.calls++
	if f.fail[req.Candidate.ID] {
		return nil, errclass.ErrProviderUnavailable.WithMessage("injected failure")
	}
	if r, ok := f.results[req.Candidate.ID]; ok {
		return r, nil
	}
	return &analysis.LinkResult{Confidence: 0.2, Type: model.LinkRelated}, nil
}

func iso(id string) model.Requirement {
	return model.Requirement{ID: id, FrameworkID: "iso27001"}
}

func soc(id string) model.Requirement {
	return model.Requirement{ID: id, FrameworkID: "soc2"}
}

func TestLinkPersistsHighConfidence(t *testing.T) {
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	p := &fakeLinkProvider{
		results: map[string]*analysis.LinkResult{
			"CC6.1": {Confidence: 0.92, Type: model.LinkEquivalent, Description: "same control objective"},
			"CC6.2": {Confidence: 0.55, Type: model.LinkSimilar},
		},
		fail: map[string]bool{},
	}
	l := crosslink.New(p, s, time.Second)

	links, err := l.Link(context.Background(), iso("A.9.2.1"), []model.Requirement{soc("CC6.1"), soc("CC6.2")})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "CC6.1", links[0].RelatedRequirement)
	assert.Equal(t, model.LinkEquivalent, links[0].Type)

	// The reverse direction was stored too.
	reverse, err := s.HasLink("CC6.1", "A.9.2.1")
	require.NoError(t, err)
	assert.True(t, reverse)
}

func TestLinkSkipsSameFramework(t *testing.T) {
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	p := &fakeLinkProvider{fail: map[string]bool{}}
	l := crosslink.New(p, s, time.Second)

	links, err := l.Link(context.Background(), iso("A.9.2.1"), []model.Requirement{iso("A.9.2.2")})
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Zero(t, p.calls)
}

func TestLinkSkipsFailedCandidates(t *testing.T) {
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	p := &fakeLinkProvider{
		results: map[string]*analysis.LinkResult{
			"CC6.2": {Confidence: 0.8, Type: model.LinkSimilar},
		},
		fail: map[string]bool{"CC6.1": true},
	}
	l := crosslink.New(p, s, time.Second)

	links, err := l.Link(context.Background(), iso("A.9.2.1"), []model.Requirement{soc("CC6.1"), soc("CC6.2")})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "CC6.2", links[0].RelatedRequirement)

	// No fallback link was invented for the failed candidate.
	exists, err := s.HasLink("A.9.2.1", "CC6.1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLinkIsIdempotent(t *testing.T) {
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	p := &fakeLinkProvider{
		results: map[string]*analysis.LinkResult{
			"CC6.1": {Confidence: 0.9, Type: model.LinkEquivalent},
		},
		fail: map[string]bool{},
	}
	l := crosslink.New(p, s, time.Second)

	_, err = l.Link(context.Background(), iso("A.9.2.1"), []model.Requirement{soc("CC6.1")})
	require.NoError(t, err)
	again, err := l.Link(context.Background(), iso("A.9.2.1"), []model.Requirement{soc("CC6.1")})
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, p.calls)

	all, err := s.Links()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
