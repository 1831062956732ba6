package model

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// Priority is the declared priority of a requirement.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ActorType identifies who performed a provenance-relevant action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorAI     ActorType = "ai"
)

// Valid reports whether a is a known actor type.
func (a ActorType) Valid() bool {
	switch a {
	case ActorUser, ActorSystem, ActorAI:
		return true
	}
	return false
}

// Actor is the identity attached to provenance events.
type Actor struct {
	ID   string    `json:"id"`
	Type ActorType `json:"type"`
}

// SystemActor is the actor recorded for automated state changes.
var SystemActor = Actor{ID: "system", Type: ActorSystem}
