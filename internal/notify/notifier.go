// Package notify delivers evidentry events to configured webhook targets.
// Payloads are signed with HMAC-SHA256 when the hook carries a secret.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// EventType identifies the evidentry event carried by a webhook payload.
type EventType string

const (
	EventFreshnessWarning EventType = "freshness.warning"
	EventFreshnessExpired EventType = "freshness.expired"
	EventFreshnessOverdue EventType = "freshness.overdue"
	EventPackageSealed    EventType = "package.sealed"
	EventPackageFailed    EventType = "package.failed"
	EventChainBroken      EventType = "chain.broken"
)

// Event is the webhook payload.
type Event struct {
	Event      EventType        `json:"event"`
	Timestamp  string           `json:"timestamp"`
	DocumentID model.DocumentID `json:"document_id,omitempty"`
	PackageID  model.PackageID  `json:"package_id,omitempty"`
	FileName   string           `json:"file_name,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// Client sends events to every enabled hook whose event filter matches.
type Client struct {
	cfg        config.NotifierConfig
	http       *http.Client
	retryDelay time.Duration
}

// NewClient creates a webhook client from configuration.
func NewClient(cfg config.NotifierConfig) *Client {
	delay := 5 * time.Second
	if d, err := time.ParseDuration(cfg.RetryDelay); err == nil && d > 0 {
		delay = d
	}
	return &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: 30 * time.Second},
		retryDelay: delay,
	}
}

// NotifyFreshness implements the freshness tracker's collaborator contract.
func (c *Client) NotifyFreshness(ctx context.Context, doc *model.Document, state model.FreshnessState) error {
	var eventType EventType
	switch state {
	case model.FreshnessWarning:
		eventType = EventFreshnessWarning
	case model.FreshnessExpired:
		eventType = EventFreshnessExpired
	case model.FreshnessOverdue:
		eventType = EventFreshnessOverdue
	default:
		return nil
	}
	event := Event{
		Event:      eventType,
		DocumentID: doc.ID,
		FileName:   doc.FileName,
	}
	if doc.ValidUntil != nil {
		event.Detail = fmt.Sprintf("valid until %s", doc.ValidUntil.Format(time.RFC3339))
	}
	return c.Send(ctx, event)
}

// NotifyPackage reports a package generation outcome.
func (c *Client) NotifyPackage(ctx context.Context, pkg *model.AuditPackage) error {
	eventType := EventPackageSealed
	detail := ""
	if pkg.Status == model.PackageFailed {
		eventType = EventPackageFailed
		detail = pkg.FailureCause
	}
	return c.Send(ctx, Event{
		Event:     eventType,
		PackageID: pkg.ID,
		Detail:    detail,
		Metadata: map[string]any{
			"doc_count":  pkg.DocCount,
			"size_bytes": pkg.SizeBytes,
		},
	})
}

// NotifyChainBroken reports a provenance integrity failure.
func (c *Client) NotifyChainBroken(ctx context.Context, id model.DocumentID, detail string) error {
	return c.Send(ctx, Event{Event: EventChainBroken, DocumentID: id, Detail: detail})
}

// Send delivers an event to all matching hooks with retries. The last
// delivery error is returned after all hooks were attempted.
func (c *Client) Send(ctx context.Context, event Event) error {
	if !c.cfg.Enabled {
		return nil
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for _, hook := range c.cfg.Hooks {
		if !hook.Enabled || !matchesEvent(hook, event.Event) {
			continue
		}
		if err := c.deliver(ctx, hook, payload); err != nil {
			logging.ErrorErr("webhook delivery failed", err, map[string]any{
				"url":   hook.URL,
				"event": string(event.Event),
			})
			lastErr = err
		}
	}
	return lastErr
}

func (c *Client) deliver(ctx context.Context, hook config.HookConfig, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Evidentry-Webhook/1.0")
		if hook.Secret != "" {
			req.Header.Set("X-Evidentry-Signature", sign(payload, hook.Secret))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return lastErr
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func matchesEvent(hook config.HookConfig, event EventType) bool {
	for _, e := range hook.Events {
		if e == string(event) || e == "*" {
			return true
		}
	}
	return false
}
