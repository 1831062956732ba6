package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// SaveMapping atomically writes an evidence mapping record.
func (s *Store) SaveMapping(m *model.EvidenceMapping) error {
	if m.Confidence < 0 || m.Confidence > 1 || m.QualityScore < 0 || m.QualityScore > 1 {
		return errclass.ErrValidation.WithMessagef("mapping %s has scores out of [0,1]", m.ID)
	}
	if !m.MappingType.Valid() || !m.ValidationStatus.Valid() {
		return errclass.ErrValidation.WithMessagef("mapping %s has unknown enum value", m.ID)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.dir("mappings"), m.ID+".json"), data, 0644)
}

// Mapping loads one mapping record.
func (s *Store) Mapping(id string) (*model.EvidenceMapping, error) {
	data, err := os.ReadFile(filepath.Join(s.dir("mappings"), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("mapping %s", id)
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var m model.EvidenceMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", id, err)
	}
	return &m, nil
}

// Mappings returns all mapping records sorted by creation time (oldest first).
func (s *Store) Mappings() ([]*model.EvidenceMapping, error) {
	entries, err := os.ReadDir(s.dir("mappings"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mappings directory: %w", err)
	}

	var out []*model.EvidenceMapping
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		m, err := s.Mapping(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MappingsForRequirement returns all mappings targeting one requirement.
func (s *Store) MappingsForRequirement(requirementID string) ([]*model.EvidenceMapping, error) {
	all, err := s.Mappings()
	if err != nil {
		return nil, err
	}
	var out []*model.EvidenceMapping
	for _, m := range all {
		if m.RequirementID == requirementID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MappingsForDocument returns all mappings produced for one document.
func (s *Store) MappingsForDocument(id model.DocumentID) ([]*model.EvidenceMapping, error) {
	all, err := s.Mappings()
	if err != nil {
		return nil, err
	}
	var out []*model.EvidenceMapping
	for _, m := range all {
		if m.DocumentID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

// SetValidationStatus records a human validation decision on a mapping.
// Mappings are never deleted; rejection supersedes them.
func (s *Store) SetValidationStatus(id string, status model.ValidationStatus) (*model.EvidenceMapping, error) {
	if !status.Valid() {
		return nil, errclass.ErrValidation.WithMessagef("unknown validation status %q", status)
	}
	m, err := s.Mapping(id)
	if err != nil {
		return nil, err
	}
	m.ValidationStatus = status
	if err := s.SaveMapping(m); err != nil {
		return nil, err
	}
	return m, nil
}
