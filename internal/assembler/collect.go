package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/pathutil"
)

// candidate is one file selected for packaging, before hashing.
type candidate struct {
	DocumentID    model.DocumentID
	FileName      string
	ArchivePath   string
	SourcePath    string
	IncludedAs    model.IncludedAs
	FrameworkID   string
	RequirementID string
	UploadedAt    time.Time
	StoredHash    model.HashValue

	// filled by the hashing stage
	Hash model.HashValue
	Size int64
}

// collect gathers the eligible files for a package: verified evidence
// documents matching the frameworks, and policy files matched by the
// configured globs. De-duplicated by document id and archive path.
func (a *Assembler) collect(frameworkIDs []string, include model.IncludeOptions) ([]*candidate, error) {
	var out []*candidate
	seenPaths := make(map[string]bool)

	if include.Evidence {
		docs, err := a.store.VerifiedDocuments(frameworkIDs)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			archivePath := path.Join("evidence", doc.FrameworkID, doc.ID.ShortID()+"_"+doc.FileName)
			if err := pathutil.ValidateArchivePath(archivePath); err != nil {
				logging.Warn("skipping document with unsafe archive path", map[string]any{
					"document_id": doc.ID.String(),
					"error":       err.Error(),
				})
				continue
			}
			if seenPaths[archivePath] {
				continue
			}
			seenPaths[archivePath] = true
			out = append(out, &candidate{
				DocumentID:    doc.ID,
				FileName:      doc.FileName,
				ArchivePath:   archivePath,
				SourcePath:    a.store.ContentPath(doc.ID),
				IncludedAs:    model.IncludedEvidence,
				FrameworkID:   doc.FrameworkID,
				RequirementID: doc.RequirementID,
				UploadedAt:    doc.UploadedAt,
				StoredHash:    doc.ContentHash,
			})
		}
	}

	if include.Policies {
		policies, err := a.collectPolicies()
		if err != nil {
			return nil, err
		}
		for _, p := range policies {
			if seenPaths[p.ArchivePath] {
				continue
			}
			seenPaths[p.ArchivePath] = true
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ArchivePath < out[j].ArchivePath })
	return out, nil
}

// collectPolicies matches the configured globs against the repository
// working tree. Matches inside the metadata directory are ignored.
func (a *Assembler) collectPolicies() ([]*candidate, error) {
	fsys := os.DirFS(a.store.Root)
	var out []*candidate
	for _, glob := range a.policyGlobs {
		matches, err := doublestar.Glob(fsys, glob)
		if err != nil {
			logging.Warn("bad policy glob", map[string]any{"glob": glob, "error": err.Error()})
			continue
		}
		for _, m := range matches {
			if m == "." || pathHasPrefix(m, ".evidentry") {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			archivePath := path.Join("policies", m)
			if err := pathutil.ValidateArchivePath(archivePath); err != nil {
				continue
			}
			out = append(out, &candidate{
				FileName:    path.Base(m),
				ArchivePath: archivePath,
				SourcePath:  filepath.Join(a.store.Root, filepath.FromSlash(m)),
				IncludedAs:  model.IncludedPolicy,
				UploadedAt:  info.ModTime().UTC(),
			})
		}
	}
	return out, nil
}

func pathHasPrefix(p, prefix string) bool {
	return p == prefix || len(p) > len(prefix) && p[:len(prefix)+1] == prefix+"/"
}

// hashFile recomputes a candidate's content hash and size from the actual
// bytes on disk.
func hashFile(sourcePath string) (model.HashValue, int64, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", 0, err
	}
	sum := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(sum[:])), int64(len(data)), nil
}
