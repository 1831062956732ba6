// Package provenance maintains one append-only, hash-linked JSONL chain of
// lifecycle events per document. Every line carries the hash of the previous
// line; verification recomputes each hash from the stored bytes.
package provenance

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/jsonutil"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

// Ledger appends and verifies per-document provenance chains.
type Ledger struct {
	store   *store.Store
	metrics *metrics.Registry

	mu    sync.Mutex
	locks map[model.DocumentID]*sync.Mutex
}

// NewLedger creates a ledger over an opened store.
func NewLedger(s *store.Store, reg *metrics.Registry) *Ledger {
	return &Ledger{
		store:   s,
		metrics: reg,
		locks:   make(map[model.DocumentID]*sync.Mutex),
	}
}

func (l *Ledger) lockFor(id model.DocumentID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

func (l *Ledger) chainPath(id model.DocumentID) string {
	return filepath.Join(l.store.Root, ".evidentry", "provenance", string(id)+".jsonl")
}

// Append adds one event to a document's chain and returns it. Writers are
// serialized per document, in-process by mutex and cross-process by flock.
func (l *Ledger) Append(id model.DocumentID, eventType model.EventType, actor model.Actor, payload map[string]any) (*model.ProvenanceEvent, error) {
	if !eventType.Valid() {
		return nil, errclass.ErrValidation.WithMessagef("unknown event type %q", eventType)
	}

	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	path := l.chainPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create provenance dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open provenance chain: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return nil, fmt.Errorf("flock provenance chain: %w", err)
	}
	defer unlockFile(file)

	prevHash, err := lastChainHashLocked(file)
	if err != nil {
		return nil, fmt.Errorf("read last chain hash: %w", err)
	}

	event := &model.ProvenanceEvent{
		ID:         uuidutil.NewV4(),
		DocumentID: id,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
		ActorID:    actor.ID,
		ActorType:  actor.Type,
		Payload:    payload,
		PrevHash:   prevHash,
	}

	chainHash, err := computeChainHash(event)
	if err != nil {
		return nil, fmt.Errorf("compute chain hash: %w", err)
	}
	event.ChainHash = chainHash

	line, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal provenance event: %w", err)
	}

	if _, err := file.Seek(0, 2); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write provenance event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync provenance chain: %w", err)
	}

	if l.metrics != nil {
		l.metrics.RecordChainAppend()
	}
	logging.Debug("provenance event appended", map[string]any{
		"document_id": id.String(),
		"event_type":  string(eventType),
		"chain_hash":  string(chainHash),
	})
	return event, nil
}

// Events returns a document's chain in append order. An empty chain is not
// an error.
func (l *Ledger) Events(id model.DocumentID) ([]*model.ProvenanceEvent, error) {
	file, err := os.Open(l.chainPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open provenance chain: %w", err)
	}
	defer file.Close()

	var events []*model.ProvenanceEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var event model.ProvenanceEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			// Represent unreadable lines as empty events so Verify can
			// point at them; Events callers see the raw chain length.
			events = append(events, &model.ProvenanceEvent{DocumentID: id})
			continue
		}
		events = append(events, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan provenance chain: %w", err)
	}
	return events, nil
}

// VerifyResult reports the outcome of a chain verification.
type VerifyResult struct {
	DocumentID  model.DocumentID `json:"document_id"`
	EventCount  int              `json:"event_count"`
	Valid       bool             `json:"valid"`
	FirstBadIdx int              `json:"first_bad_index,omitempty"`
	Detail      string           `json:"detail,omitempty"`
}

// Verify recomputes every hash in a document's chain. A mismatch anywhere
// invalidates the chain from that event on; the result names the first bad
// index and the returned error wraps the chain-broken class.
func (l *Ledger) Verify(id model.DocumentID) (*VerifyResult, error) {
	events, err := l.Events(id)
	if err != nil {
		return nil, err
	}
	if l.metrics != nil {
		l.metrics.RecordChainVerify()
	}

	result := &VerifyResult{DocumentID: id, EventCount: len(events), Valid: true, FirstBadIdx: -1}
	var prev model.HashValue
	for i, event := range events {
		if event.ID == "" {
			return l.broken(result, i, "unreadable event line")
		}
		if event.PrevHash != prev {
			return l.broken(result, i, fmt.Sprintf("prev hash mismatch at event %d", i))
		}
		computed, err := computeChainHash(event)
		if err != nil {
			return nil, fmt.Errorf("compute chain hash: %w", err)
		}
		if computed != event.ChainHash {
			return l.broken(result, i, fmt.Sprintf("chain hash mismatch at event %d", i))
		}
		prev = event.ChainHash
	}
	return result, nil
}

func (l *Ledger) broken(result *VerifyResult, idx int, detail string) (*VerifyResult, error) {
	result.Valid = false
	result.FirstBadIdx = idx
	result.Detail = detail
	logging.Warn("provenance chain broken", map[string]any{
		"document_id": result.DocumentID.String(),
		"first_bad":   idx,
	})
	return result, errclass.ErrChainBroken.WithMessage(detail)
}

// computeChainHash hashes the canonical JSON of the event with the chain
// hash field blanked.
func computeChainHash(event *model.ProvenanceEvent) (model.HashValue, error) {
	hashEvent := *event
	hashEvent.ChainHash = ""

	data, err := jsonutil.CanonicalMarshal(&hashEvent)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}
	sum := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(sum[:])), nil
}

func lastChainHashLocked(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}

	var last model.HashValue
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var event model.ProvenanceEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		last = event.ChainHash
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan provenance chain: %w", err)
	}
	return last, nil
}
