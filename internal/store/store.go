// Package store is the on-disk evidence repository. Every record is one
// JSON file written atomically; provenance chains are JSONL per document.
//
// Layout under <root>/.evidentry/:
//
//	repo_id           identity of this repository
//	format_version    on-disk format version
//	config.yaml       configuration (pkg/config)
//	catalog/          framework requirement files (internal/catalog)
//	documents/        one JSON file per document
//	content/          immutable document bytes, named by document id
//	mappings/         one JSON file per evidence mapping
//	gaps/             one JSON file per gap
//	links/            one JSON file per cross-framework link
//	provenance/       one JSONL chain per document
//	notifications/    freshness notification dedupe ledger
//	packages/<id>/    record.json, manifest.json, package.zip, items/
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evidentry-project/evidentry/pkg/config"
	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

const (
	FormatVersion     = 1
	formatVersionFile = "format_version"
	repoIDFile        = "repo_id"
)

var recordDirs = []string{
	"catalog",
	"documents",
	"content",
	"mappings",
	"gaps",
	"links",
	"provenance",
	"notifications",
	"packages",
}

// Store is an opened evidence repository.
type Store struct {
	Root          string
	FormatVersion int
	RepoID        string
}

func (s *Store) dir(kind string) string {
	return filepath.Join(s.Root, config.DirName, kind)
}

// Init creates a new evidence repository at path.
func Init(path string) (*Store, error) {
	base := filepath.Join(path, config.DirName)
	for _, d := range recordDirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	if err := os.WriteFile(filepath.Join(base, formatVersionFile), []byte("1\n"), 0644); err != nil {
		return nil, fmt.Errorf("write format_version: %w", err)
	}

	repoID := uuidutil.NewV4()
	if err := os.WriteFile(filepath.Join(base, repoIDFile), []byte(repoID+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write repo_id: %w", err)
	}

	if err := fsutil.FsyncDir(path); err != nil {
		return nil, fmt.Errorf("fsync store root: %w", err)
	}

	return &Store{Root: path, FormatVersion: FormatVersion, RepoID: repoID}, nil
}

// Open opens an existing repository at path.
func Open(path string) (*Store, error) {
	base := filepath.Join(path, config.DirName)
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("no evidence repository at %s (missing %s/)", path, config.DirName)
	}

	version, err := readFormatVersion(base)
	if err != nil {
		return nil, err
	}
	if version > FormatVersion {
		return nil, fmt.Errorf("format version %d > supported %d", version, FormatVersion)
	}
	repoID, _ := readRepoID(base)
	return &Store{Root: path, FormatVersion: version, RepoID: repoID}, nil
}

// Discover walks up from cwd to find the repository root.
func Discover(cwd string) (*Store, error) {
	path := cwd
	for {
		if s, err := Open(path); err == nil {
			return s, nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return nil, fmt.Errorf("no evidence repository found (no %s/ in parent directories)", config.DirName)
		}
		path = parent
	}
}

func readFormatVersion(base string) (int, error) {
	data, err := os.ReadFile(filepath.Join(base, formatVersionFile))
	if err != nil {
		return 0, fmt.Errorf("read format_version: %w", err)
	}
	var version int
	if _, err := fmt.Sscanf(string(data), "%d", &version); err != nil {
		return 0, fmt.Errorf("parse format_version: %w", err)
	}
	return version, nil
}

func readRepoID(base string) (string, error) {
	data, err := os.ReadFile(filepath.Join(base, repoIDFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
