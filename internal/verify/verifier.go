// Package verify re-checks sealed audit packages: every item must be
// present in the archive with matching bytes, every archive file must be
// declared, and the manifest seal must recompute to the recorded value.
package verify

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// Result reports one package verification.
type Result struct {
	PackageID     model.PackageID `json:"package_id"`
	ManifestValid bool            `json:"manifest_valid"`
	FilesChecked  int             `json:"files_checked"`
	Mismatches    []string        `json:"mismatches,omitempty"`
}

// Verifier validates sealed packages against their manifests.
type Verifier struct {
	store *store.Store
}

// NewVerifier creates a verifier over an opened store.
func NewVerifier(s *store.Store) *Verifier {
	return &Verifier{store: s}
}

// VerifyPackage checks one sealed package. Any mismatch is an integrity
// failure: the result lists every finding and the returned error wraps the
// manifest-mismatch class.
func (v *Verifier) VerifyPackage(id model.PackageID) (*Result, error) {
	pkg, err := v.store.Package(id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != model.PackageSealed && pkg.Status != model.PackageArchived {
		return nil, errclass.ErrPackageNotSealed.WithMessagef("package %s is %s", id.ShortID(), pkg.Status)
	}

	result := &Result{PackageID: id, ManifestValid: true}

	zr, err := zip.OpenReader(v.store.PackageArchivePath(id))
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("open archive: %v", err)
	}
	defer zr.Close()

	manifest, err := readArchiveManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}

	// The manifest seal must recompute to the recorded value.
	computed, err := assembler.ManifestHash(manifest)
	if err != nil {
		return nil, err
	}
	if computed != manifest.Integrity.ManifestHash {
		result.mismatch("manifest hash does not recompute")
	}
	if pkg.ManifestHash != "" && manifest.Integrity.ManifestHash != pkg.ManifestHash {
		result.mismatch("archive manifest hash differs from package record")
	}

	declared := make(map[string]model.ManifestDocument, len(manifest.Documents))
	for _, d := range manifest.Documents {
		declared[d.FilePath] = d
	}

	// Every archive file must be declared, with matching bytes.
	seen := make(map[string]bool, len(declared))
	for _, f := range zr.File {
		if f.Name == "manifest.json" || f.FileInfo().IsDir() {
			continue
		}
		entry, ok := declared[f.Name]
		if !ok {
			result.mismatch(fmt.Sprintf("undeclared file in archive: %s", f.Name))
			continue
		}
		seen[f.Name] = true
		result.FilesChecked++

		hash, size, err := hashEntry(f)
		if err != nil {
			result.mismatch(fmt.Sprintf("unreadable archive entry: %s", f.Name))
			continue
		}
		if hash != entry.SHA256 {
			result.mismatch(fmt.Sprintf("hash mismatch: %s", f.Name))
		}
		if size != entry.SizeBytes {
			result.mismatch(fmt.Sprintf("size mismatch: %s", f.Name))
		}
	}

	// Every declared file must be in the archive.
	for path := range declared {
		if !seen[path] {
			result.mismatch(fmt.Sprintf("declared file missing from archive: %s", path))
		}
	}

	// Items persisted at seal time must agree with the manifest.
	items, err := v.store.PackageItems(id)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		entry, ok := declared[item.ArchivePath]
		if !ok {
			result.mismatch(fmt.Sprintf("item not in manifest: %s", item.ArchivePath))
			continue
		}
		if entry.SHA256 != item.ContentHash {
			result.mismatch(fmt.Sprintf("item hash differs from manifest: %s", item.ArchivePath))
		}
	}

	if !result.ManifestValid {
		logging.Warn("package verification failed", map[string]any{
			"package_id": id.String(),
			"mismatches": len(result.Mismatches),
		})
		return result, errclass.ErrManifestMismatch.WithMessagef(
			"package %s: %d integrity findings", id.ShortID(), len(result.Mismatches))
	}
	return result, nil
}

func (r *Result) mismatch(detail string) {
	r.ManifestValid = false
	r.Mismatches = append(r.Mismatches, detail)
}

func readArchiveManifest(zr *zip.Reader) (*model.Manifest, error) {
	for _, f := range zr.File {
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errclass.ErrStorage.WithMessagef("open manifest entry: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, 64<<20))
		if err != nil {
			return nil, errclass.ErrStorage.WithMessagef("read manifest entry: %v", err)
		}
		var m model.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errclass.ErrManifestMismatch.WithMessagef("manifest is not valid JSON: %v", err)
		}
		return &m, nil
	}
	return nil, errclass.ErrManifestMismatch.WithMessage("archive has no manifest.json")
}

func hashEntry(f *zip.File) (model.HashValue, int64, error) {
	rc, err := f.Open()
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	h := sha256.New()
	n, err := io.Copy(h, rc)
	if err != nil {
		return "", 0, err
	}
	return model.HashValue(hex.EncodeToString(h.Sum(nil))), n, nil
}
