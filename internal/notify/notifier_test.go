package notify_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evidentry-project/evidentry/internal/notify"
	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hookConfig(url, secret string, events ...string) config.NotifierConfig {
	return config.NotifierConfig{
		Enabled:    true,
		MaxRetries: 2,
		RetryDelay: "10ms",
		Hooks: []config.HookConfig{
			{URL: url, Secret: secret, Events: events, Enabled: true},
		},
	}
}

func TestSendSignsPayload(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Evidentry-Signature")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := notify.NewClient(hookConfig(srv.URL, "topsecret", "*"))
	err := c.Send(context.Background(), notify.Event{Event: notify.EventChainBroken, DocumentID: "doc-1"})
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(gotBody)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)

	var event notify.Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, notify.EventChainBroken, event.Event)
	assert.NotEmpty(t, event.Timestamp)
}

func TestSendFiltersByEvent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := notify.NewClient(hookConfig(srv.URL, "", "freshness.expired"))
	require.NoError(t, c.Send(context.Background(), notify.Event{Event: notify.EventPackageSealed}))
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, c.Send(context.Background(), notify.Event{Event: notify.EventFreshnessExpired}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	c := notify.NewClient(hookConfig(srv.URL, "", "*"))
	err := c.Send(context.Background(), notify.Event{Event: notify.EventPackageFailed})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDisabledClientIsNoop(t *testing.T) {
	c := notify.NewClient(config.NotifierConfig{Enabled: false})
	assert.NoError(t, c.Send(context.Background(), notify.Event{Event: notify.EventPackageSealed}))
}

func TestNotifyFreshnessMapsStates(t *testing.T) {
	var events []notify.EventType
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e notify.Event
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &e)
		events = append(events, e.Event)
	}))
	defer srv.Close()

	c := notify.NewClient(hookConfig(srv.URL, "", "*"))
	until := time.Now().UTC()
	doc := &model.Document{ID: "doc-1", FileName: "report.pdf", ValidUntil: &until}

	for _, state := range []model.FreshnessState{model.FreshnessWarning, model.FreshnessExpired, model.FreshnessOverdue} {
		require.NoError(t, c.NotifyFreshness(context.Background(), doc, state))
	}
	// Fresh never notifies.
	require.NoError(t, c.NotifyFreshness(context.Background(), doc, model.FreshnessFresh))

	assert.Equal(t, []notify.EventType{
		notify.EventFreshnessWarning,
		notify.EventFreshnessExpired,
		notify.EventFreshnessOverdue,
	}, events)
}
