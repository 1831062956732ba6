package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

const (
	packageRecordFile   = "record.json"
	packageManifestFile = "manifest.json"
	packageArchiveFile  = "package.zip"
	packageItemsFile    = "items.json"
)

// PackageDir returns the directory holding one package's record, manifest,
// archive, and item list.
func (s *Store) PackageDir(id model.PackageID) string {
	return filepath.Join(s.dir("packages"), string(id))
}

// PackageArchivePath returns the sealed archive location for a package.
func (s *Store) PackageArchivePath(id model.PackageID) string {
	return filepath.Join(s.PackageDir(id), packageArchiveFile)
}

// PackageManifestPath returns the manifest location for a package.
func (s *Store) PackageManifestPath(id model.PackageID) string {
	return filepath.Join(s.PackageDir(id), packageManifestFile)
}

// SavePackage atomically writes the package record. Sealed packages accept
// only the archive transition; failed and archived packages reject all
// writes.
func (s *Store) SavePackage(pkg *model.AuditPackage) error {
	if !pkg.Status.Valid() {
		return errclass.ErrValidation.WithMessagef("unknown package status %q", pkg.Status)
	}
	prev, err := s.Package(pkg.ID)
	if err == nil {
		if prev.Status.Terminal() {
			return errclass.ErrPackageImmutable.WithMessagef(
				"package %s is %s", pkg.ID.ShortID(), prev.Status)
		}
		if prev.Status == model.PackageSealed && pkg.Status != model.PackageArchived {
			return errclass.ErrPackageImmutable.WithMessagef(
				"package %s is sealed", pkg.ID.ShortID())
		}
	}

	if err := os.MkdirAll(s.PackageDir(pkg.ID), 0755); err != nil {
		return errclass.ErrStorage.WithMessagef("create package directory: %v", err)
	}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal package: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.PackageDir(pkg.ID), packageRecordFile), data, 0644)
}

// Package loads one package record.
func (s *Store) Package(id model.PackageID) (*model.AuditPackage, error) {
	data, err := os.ReadFile(filepath.Join(s.PackageDir(id), packageRecordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("package %s", id)
		}
		return nil, fmt.Errorf("read package: %w", err)
	}
	var pkg model.AuditPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package %s: %w", id, err)
	}
	return &pkg, nil
}

// Packages returns all package records sorted by creation time (newest
// first).
func (s *Store) Packages() ([]*model.AuditPackage, error) {
	entries, err := os.ReadDir(s.dir("packages"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read packages directory: %w", err)
	}

	var out []*model.AuditPackage
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkg, err := s.Package(model.PackageID(entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SavePackageItems writes the item list for a package in one shot.
// Called once at seal time.
func (s *Store) SavePackageItems(id model.PackageID, items []*model.AuditPackageItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal package items: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.PackageDir(id), packageItemsFile), data, 0644)
}

// PackageItems loads the item list of a package.
func (s *Store) PackageItems(id model.PackageID) ([]*model.AuditPackageItem, error) {
	data, err := os.ReadFile(filepath.Join(s.PackageDir(id), packageItemsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read package items: %w", err)
	}
	var items []*model.AuditPackageItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse package items for %s: %w", id, err)
	}
	return items, nil
}

// SaveManifest writes the sealed manifest document for a package.
func (s *Store) SaveManifest(id model.PackageID, manifest *model.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return fsutil.AtomicWrite(s.PackageManifestPath(id), data, 0644)
}

// Manifest loads the sealed manifest of a package.
func (s *Store) Manifest(id model.PackageID) (*model.Manifest, error) {
	data, err := os.ReadFile(s.PackageManifestPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("manifest for package %s", id)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest for %s: %w", id, err)
	}
	return &m, nil
}
