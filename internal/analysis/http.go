package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// HTTPProvider talks to the analysis service over HTTP. One endpoint,
// request kind selects the judgment.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPProvider creates a provider client from configuration. The API
// key is read from the environment variable named in the config.
func NewHTTPProvider(cfg config.ProviderConfig, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   os.Getenv(cfg.APIKeyEnv),
		http:     &http.Client{Timeout: timeout},
	}
}

type wireRequest struct {
	Kind  string `json:"kind"`
	Match *MatchRequest `json:"match,omitempty"`
	Link  *LinkRequest  `json:"link,omitempty"`
}

// Match implements Provider.
func (p *HTTPProvider) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	var result MatchResult
	if err := p.call(ctx, wireRequest{Kind: "match", Match: &req}, &result); err != nil {
		return nil, err
	}
	if !inUnit(result.Confidence) || !qualityInUnit(result.Quality) {
		return nil, errclass.ErrProviderUnavailable.WithMessage("match scores out of range")
	}
	if !result.MappingType.Valid() {
		return nil, errclass.ErrProviderUnavailable.WithMessagef("unknown mapping type %q", result.MappingType)
	}
	return &result, nil
}

// Link implements Provider.
func (p *HTTPProvider) Link(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	var result LinkResult
	if err := p.call(ctx, wireRequest{Kind: "link", Link: &req}, &result); err != nil {
		return nil, err
	}
	if !inUnit(result.Confidence) {
		return nil, errclass.ErrProviderUnavailable.WithMessage("link confidence out of range")
	}
	if !result.Type.Valid() {
		return nil, errclass.ErrProviderUnavailable.WithMessagef("unknown link type %q", result.Type)
	}
	return &result, nil
}

func (p *HTTPProvider) call(ctx context.Context, req wireRequest, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return errclass.ErrProviderUnavailable.WithMessagef("analysis call: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errclass.ErrProviderUnavailable.WithMessagef("read analysis response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errclass.ErrProviderUnavailable.WithMessagef("analysis http %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errclass.ErrProviderUnavailable.WithMessagef("malformed analysis response: %v", err)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

func qualityInUnit(q model.QualityScores) bool {
	return inUnit(q.Completeness) && inUnit(q.Clarity) && inUnit(q.Relevance) && inUnit(q.Specificity)
}
