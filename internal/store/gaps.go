package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// OpenGap persists a new open gap for a requirement. Any previously open
// gap for the same requirement is resolved first, so at most one live gap
// exists per requirement.
func (s *Store) OpenGap(gap *model.EvidenceGap) error {
	if !gap.Type.Valid() || !gap.Severity.Valid() {
		return errclass.ErrValidation.WithMessagef("gap %s has unknown enum value", gap.ID)
	}
	existing, err := s.OpenGapForRequirement(gap.RequirementID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := s.ResolveGap(existing.ID); err != nil {
			return err
		}
	}
	gap.Status = model.GapOpen
	return s.saveGap(gap)
}

// ResolveGap marks a gap resolved.
func (s *Store) ResolveGap(id string) error {
	gap, err := s.Gap(id)
	if err != nil {
		return err
	}
	if gap.Status == model.GapResolved {
		return nil
	}
	now := time.Now().UTC()
	gap.Status = model.GapResolved
	gap.ResolvedAt = &now
	return s.saveGap(gap)
}

// ResolveGapForRequirement resolves the open gap for a requirement, if any.
func (s *Store) ResolveGapForRequirement(requirementID string) error {
	gap, err := s.OpenGapForRequirement(requirementID)
	if err != nil || gap == nil {
		return err
	}
	return s.ResolveGap(gap.ID)
}

// Gap loads one gap record.
func (s *Store) Gap(id string) (*model.EvidenceGap, error) {
	data, err := os.ReadFile(filepath.Join(s.dir("gaps"), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("gap %s", id)
		}
		return nil, fmt.Errorf("read gap: %w", err)
	}
	var gap model.EvidenceGap
	if err := json.Unmarshal(data, &gap); err != nil {
		return nil, fmt.Errorf("parse gap %s: %w", id, err)
	}
	return &gap, nil
}

// Gaps returns all gap records sorted by creation time (newest first).
func (s *Store) Gaps() ([]*model.EvidenceGap, error) {
	entries, err := os.ReadDir(s.dir("gaps"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read gaps directory: %w", err)
	}

	var out []*model.EvidenceGap
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		gap, err := s.Gap(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, gap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// OpenGapForRequirement returns the live gap for a requirement, or nil.
func (s *Store) OpenGapForRequirement(requirementID string) (*model.EvidenceGap, error) {
	all, err := s.Gaps()
	if err != nil {
		return nil, err
	}
	for _, gap := range all {
		if gap.RequirementID == requirementID && gap.Status == model.GapOpen {
			return gap, nil
		}
	}
	return nil, nil
}

func (s *Store) saveGap(gap *model.EvidenceGap) error {
	data, err := json.MarshalIndent(gap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gap: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.dir("gaps"), gap.ID+".json"), data, 0644)
}
