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
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

// SaveLink persists a cross-framework mapping together with its reverse
// direction, so lookups from either side see the relation.
func (s *Store) SaveLink(link *model.CrossFrameworkMapping) error {
	if link.PrimaryFramework == link.RelatedFramework {
		return errclass.ErrValidation.WithMessagef(
			"link %s joins requirements of the same framework %s", link.ID, link.PrimaryFramework)
	}
	if !link.Type.Valid() {
		return errclass.ErrValidation.WithMessagef("link %s has unknown mapping type %q", link.ID, link.Type)
	}
	if link.Confidence < 0 || link.Confidence > 1 {
		return errclass.ErrValidation.WithMessagef("link %s confidence out of [0,1]", link.ID)
	}

	reverse := &model.CrossFrameworkMapping{
		ID:                 uuidutil.NewV4(),
		PrimaryRequirement: link.RelatedRequirement,
		PrimaryFramework:   link.RelatedFramework,
		RelatedRequirement: link.PrimaryRequirement,
		RelatedFramework:   link.PrimaryFramework,
		Type:               link.Type,
		Confidence:         link.Confidence,
		Description:        link.Description,
		CreatedAt:          link.CreatedAt,
	}
	if err := s.writeLink(link); err != nil {
		return err
	}
	return s.writeLink(reverse)
}

// Links returns all stored cross-framework mappings, both directions,
// sorted by creation time then id.
func (s *Store) Links() ([]*model.CrossFrameworkMapping, error) {
	entries, err := os.ReadDir(s.dir("links"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read links directory: %w", err)
	}

	var out []*model.CrossFrameworkMapping
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir("links"), entry.Name()))
		if err != nil {
			continue
		}
		var link model.CrossFrameworkMapping
		if err := json.Unmarshal(data, &link); err != nil {
			continue
		}
		out = append(out, &link)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LinksForRequirement returns the mappings whose primary side is the given
// requirement.
func (s *Store) LinksForRequirement(requirementID string) ([]*model.CrossFrameworkMapping, error) {
	all, err := s.Links()
	if err != nil {
		return nil, err
	}
	var out []*model.CrossFrameworkMapping
	for _, link := range all {
		if link.PrimaryRequirement == requirementID {
			out = append(out, link)
		}
	}
	return out, nil
}

// HasLink reports whether a mapping already joins the two requirements in
// the given direction.
func (s *Store) HasLink(primaryRequirement, relatedRequirement string) (bool, error) {
	links, err := s.LinksForRequirement(primaryRequirement)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.RelatedRequirement == relatedRequirement {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) writeLink(link *model.CrossFrameworkMapping) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(link, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.dir("links"), link.ID+".json"), data, 0644)
}
