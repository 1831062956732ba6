package model

// Framework is a named compliance framework (e.g. iso27001).
type Framework struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Version      string        `json:"version,omitempty" yaml:"version,omitempty"`
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
}

// Requirement is a framework-scoped control obligation.
type Requirement struct {
	ID            string   `json:"id" yaml:"id"`
	FrameworkID   string   `json:"framework_id" yaml:"framework_id"`
	Title         string   `json:"title" yaml:"title"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Priority      Priority `json:"priority" yaml:"priority"`
	EvidenceTypes []string `json:"evidence_types,omitempty" yaml:"evidence_types,omitempty"`
}
