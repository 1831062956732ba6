// Package catalog loads the requirement catalog: the static reference data
// describing frameworks and their control requirements.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/pathutil"
)

// Catalog is a read-only set of frameworks keyed by id.
type Catalog struct {
	frameworks map[string]*model.Framework
}

// Load reads every framework file under .evidentry/catalog/.
func Load(root string) (*Catalog, error) {
	return LoadDir(filepath.Join(root, config.DirName, "catalog"))
}

// LoadDir reads every *.yaml framework file in dir.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{frameworks: map[string]*model.Framework{}}, nil
		}
		return nil, fmt.Errorf("read catalog directory: %w", err)
	}

	cat := &Catalog{frameworks: make(map[string]*model.Framework)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		fw, err := loadFramework(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load framework %s: %w", entry.Name(), err)
		}
		if _, dup := cat.frameworks[fw.ID]; dup {
			return nil, errclass.ErrValidation.WithMessagef("duplicate framework id %q", fw.ID)
		}
		cat.frameworks[fw.ID] = fw
	}
	return cat, nil
}

func loadFramework(path string) (*model.Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read framework file: %w", err)
	}

	var fw model.Framework
	if err := yaml.Unmarshal(data, &fw); err != nil {
		return nil, fmt.Errorf("parse framework file: %w", err)
	}
	if err := pathutil.ValidateFrameworkID(fw.ID); err != nil {
		return nil, err
	}

	for i := range fw.Requirements {
		req := &fw.Requirements[i]
		if req.ID == "" {
			return nil, errclass.ErrValidation.WithMessagef("framework %s: requirement %d has no id", fw.ID, i)
		}
		req.FrameworkID = fw.ID
		if req.Priority == "" {
			req.Priority = model.PriorityMedium
		}
		if !req.Priority.Valid() {
			return nil, errclass.ErrValidation.WithMessagef(
				"framework %s: requirement %s has unknown priority %q", fw.ID, req.ID, req.Priority)
		}
	}
	return &fw, nil
}

// Framework returns the framework with the given id.
func (c *Catalog) Framework(id string) (*model.Framework, error) {
	fw, ok := c.frameworks[id]
	if !ok {
		return nil, errclass.ErrNotFound.WithMessagef("framework %s", id)
	}
	return fw, nil
}

// Frameworks returns all frameworks sorted by id.
func (c *Catalog) Frameworks() []*model.Framework {
	out := make([]*model.Framework, 0, len(c.frameworks))
	for _, fw := range c.frameworks {
		out = append(out, fw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Requirements returns the requirements of one framework.
func (c *Catalog) Requirements(frameworkID string) ([]model.Requirement, error) {
	fw, err := c.Framework(frameworkID)
	if err != nil {
		return nil, err
	}
	return fw.Requirements, nil
}

// Requirement returns one requirement by framework and requirement id.
func (c *Catalog) Requirement(frameworkID, requirementID string) (*model.Requirement, error) {
	fw, err := c.Framework(frameworkID)
	if err != nil {
		return nil, err
	}
	for i := range fw.Requirements {
		if fw.Requirements[i].ID == requirementID {
			return &fw.Requirements[i], nil
		}
	}
	return nil, errclass.ErrNotFound.WithMessagef("requirement %s in framework %s", requirementID, frameworkID)
}

// AllRequirements returns every requirement across all frameworks.
func (c *Catalog) AllRequirements() []model.Requirement {
	var out []model.Requirement
	for _, fw := range c.Frameworks() {
		out = append(out, fw.Requirements...)
	}
	return out
}
