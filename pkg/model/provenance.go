package model

import "time"

// EventType identifies a document lifecycle event.
type EventType string

const (
	EventCreated    EventType = "created"
	EventUploaded   EventType = "uploaded"
	EventAnalyzed   EventType = "analyzed"
	EventVerified   EventType = "verified"
	EventSuperseded EventType = "superseded"
	EventExpired    EventType = "expired"
	EventAccessed   EventType = "accessed"
	EventModified   EventType = "modified"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUploaded, EventAnalyzed, EventVerified,
		EventSuperseded, EventExpired, EventAccessed, EventModified:
		return true
	}
	return false
}

// ProvenanceEvent is a single line in a document's provenance chain
// (JSONL format). Events for one document form a strictly ordered,
// hash-linked chain; append-only.
type ProvenanceEvent struct {
	ID         string         `json:"event_id"`
	DocumentID DocumentID     `json:"document_id"`
	EventType  EventType      `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	ActorType  ActorType      `json:"actor_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	PrevHash   HashValue      `json:"prev_chain_hash"`
	ChainHash  HashValue      `json:"chain_hash"`
}
