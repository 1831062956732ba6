package assembler_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const isoCatalog = `id: iso27001
name: ISO/IEC 27001
requirements:
  - id: A.9.2.1
    title: User registration and de-registration
    priority: critical
`

func newAssembler(t *testing.T, opts assembler.Options) (*assembler.Assembler, *store.Store) {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)

	catDir := filepath.Join(s.Root, ".evidentry", "catalog")
	require.NoError(t, os.WriteFile(filepath.Join(catDir, "iso27001.yaml"), []byte(isoCatalog), 0644))
	cat, err := catalog.Load(s.Root)
	require.NoError(t, err)

	ledger := provenance.NewLedger(s, metrics.NewRegistry())
	return assembler.New(s, cat, ledger, nil, metrics.NewRegistry(), opts), s
}

func addVerified(t *testing.T, s *store.Store, name, content string) *model.Document {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	doc, err := s.IngestDocument(src, "user-1", "iso27001", "A.9.2.1", 12)
	require.NoError(t, err)
	doc.Status = model.DocumentVerified
	require.NoError(t, s.SaveDocument(doc))
	return doc
}

func TestGenerateSealsPackage(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{})
	d1 := addVerified(t, s, "access-review.pdf", "quarterly access review")
	d2 := addVerified(t, s, "policy.md", "joiners and leavers process")
	d3 := addVerified(t, s, "screenshot.png", "png-bytes")

	pkg, err := a.Generate(context.Background(), "user-1", "Q3 ISO audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)
	assert.Equal(t, model.PackageSealed, pkg.Status)
	assert.Equal(t, 3, pkg.DocCount)
	assert.NotEmpty(t, string(pkg.ManifestHash))
	assert.NotNil(t, pkg.SealedAt)
	assert.Positive(t, pkg.SizeBytes)

	// The archive holds manifest.json plus exactly one entry per document.
	zr, err := zip.OpenReader(s.PackageArchivePath(pkg.ID))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 4)
	assert.Equal(t, "manifest.json", zr.File[0].Name)

	var manifest model.Manifest
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &manifest))

	assert.Equal(t, pkg.ID, manifest.PackageInfo.ID)
	assert.Equal(t, 3, manifest.Integrity.TotalDocuments)
	assert.Equal(t, pkg.ManifestHash, manifest.Integrity.ManifestHash)
	require.Len(t, manifest.Frameworks, 1)
	assert.Equal(t, "ISO/IEC 27001", manifest.Frameworks[0].Name)
	assert.Equal(t, 3, manifest.Frameworks[0].DocumentCount)

	// Manifest entries and items agree one-to-one with the documents.
	ids := map[model.DocumentID]bool{d1.ID: true, d2.ID: true, d3.ID: true}
	for _, entry := range manifest.Documents {
		assert.True(t, ids[entry.ID], "unexpected manifest entry %s", entry.ID)
		delete(ids, entry.ID)
	}
	assert.Empty(t, ids)

	items, err := s.PackageItems(pkg.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	a, _ := newAssembler(t, assembler.Options{})

	_, err := a.Generate(context.Background(), "user-1", "  ", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	assert.True(t, errors.Is(err, errclass.ErrValidation))

	_, err = a.Generate(context.Background(), "user-1", "Q3 audit", nil, model.IncludeOptions{Evidence: true})
	assert.True(t, errors.Is(err, errclass.ErrValidation))
}

func TestGenerateExcludesUnreadableFile(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{})
	keep := addVerified(t, s, "keep.pdf", "kept evidence")
	gone := addVerified(t, s, "gone.pdf", "missing evidence")
	require.NoError(t, os.Remove(s.ContentPath(gone.ID)))

	pkg, err := a.Generate(context.Background(), "user-1", "partial", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)
	assert.Equal(t, model.PackageSealed, pkg.Status)
	assert.Equal(t, 1, pkg.DocCount)

	items, err := s.PackageItems(pkg.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].DocumentID)
}

func TestGenerateExcludesTamperedContent(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{})
	tampered := addVerified(t, s, "tampered.pdf", "original content")
	require.NoError(t, os.WriteFile(s.ContentPath(tampered.ID), []byte("altered content"), 0644))
	addVerified(t, s, "clean.pdf", "clean content")

	pkg, err := a.Generate(context.Background(), "user-1", "audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)
	assert.Equal(t, 1, pkg.DocCount)

	// The tamper is on the document's provenance chain.
	ledger := provenance.NewLedger(s, metrics.NewRegistry())
	events, err := ledger.Events(tampered.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModified, events[0].EventType)
}

func TestGenerateIncludesPolicies(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{PolicyGlobs: []string{"policies/**/*.md"}})
	addVerified(t, s, "evidence.pdf", "evidence bytes")

	policyDir := filepath.Join(s.Root, "policies", "security")
	require.NoError(t, os.MkdirAll(policyDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(policyDir, "access.md"), []byte("# Access Policy"), 0644))

	pkg, err := a.Generate(context.Background(), "user-1", "with policies", []string{"iso27001"}, model.IncludeOptions{Evidence: true, Policies: true})
	require.NoError(t, err)
	assert.Equal(t, 2, pkg.DocCount)

	items, err := s.PackageItems(pkg.ID)
	require.NoError(t, err)
	var kinds []model.IncludedAs
	for _, item := range items {
		kinds = append(kinds, item.IncludedAs)
	}
	assert.Contains(t, kinds, model.IncludedEvidence)
	assert.Contains(t, kinds, model.IncludedPolicy)
}

func TestGenerateTimeoutFailsTerminally(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{Timeout: time.Nanosecond})
	addVerified(t, s, "evidence.pdf", "evidence bytes")

	pkg, err := a.Generate(context.Background(), "user-1", "too slow", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.Error(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, model.PackageFailed, pkg.Status)
	assert.NotEmpty(t, pkg.FailureCause)

	stored, err := s.Package(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PackageFailed, stored.Status)

	// No orphaned archive or manifest on disk.
	_, statErr := os.Stat(s.PackageArchivePath(pkg.ID))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(s.PackageManifestPath(pkg.ID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestManifestHashIsReproducible(t *testing.T) {
	a, s := newAssembler(t, assembler.Options{})
	addVerified(t, s, "evidence.pdf", "evidence bytes")

	pkg, err := a.Generate(context.Background(), "user-1", "audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)

	manifest, err := s.Manifest(pkg.ID)
	require.NoError(t, err)
	recomputed, err := assembler.ManifestHash(manifest)
	require.NoError(t, err)
	assert.Equal(t, manifest.Integrity.ManifestHash, recomputed)
}
