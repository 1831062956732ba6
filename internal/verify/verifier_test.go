package verify_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/internal/verify"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedPackage(t *testing.T) (*store.Store, *model.AuditPackage) {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)

	for _, f := range []struct{ name, content string }{
		{"review.pdf", "quarterly access review"},
		{"log-export.csv", "id,action\n1,login\n"},
	} {
		src := filepath.Join(t.TempDir(), f.name)
		require.NoError(t, os.WriteFile(src, []byte(f.content), 0644))
		doc, err := s.IngestDocument(src, "user-1", "iso27001", "A.9.2.1", 12)
		require.NoError(t, err)
		doc.Status = model.DocumentVerified
		require.NoError(t, s.SaveDocument(doc))
	}

	a := assembler.New(s, nil, nil, nil, metrics.NewRegistry(), assembler.Options{})
	pkg, err := a.Generate(context.Background(), "user-1", "audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)
	return s, pkg
}

func TestVerifySealedPackage(t *testing.T) {
	s, pkg := sealedPackage(t)
	v := verify.NewVerifier(s)

	result, err := v.VerifyPackage(pkg.ID)
	require.NoError(t, err)
	assert.True(t, result.ManifestValid)
	assert.Equal(t, 2, result.FilesChecked)
	assert.Empty(t, result.Mismatches)
}

func TestVerifyRejectsUnsealedPackage(t *testing.T) {
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	pkg := &model.AuditPackage{
		ID:           model.NewPackageID(),
		OwnerID:      "user-1",
		Title:        "in progress",
		FrameworkIDs: []string{"iso27001"},
		Status:       model.PackageGenerating,
	}
	require.NoError(t, s.SavePackage(pkg))

	_, err = verify.NewVerifier(s).VerifyPackage(pkg.ID)
	assert.True(t, errors.Is(err, errclass.ErrPackageNotSealed))
}

func TestVerifyDetectsTamperedArchive(t *testing.T) {
	s, pkg := sealedPackage(t)

	// Rebuild the archive with one file's bytes changed but the original
	// manifest entry untouched.
	archivePath := s.PackageArchivePath(pkg.ID)
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)

	tmpPath := archivePath + ".tmp"
	out, err := os.Create(tmpPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	tampered := false
	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		if !tampered && f.Name != "manifest.json" {
			data = append(data, []byte(" tampered")...)
			tampered = true
		}
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.True(t, tampered)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	require.NoError(t, zr.Close())
	require.NoError(t, os.Rename(tmpPath, archivePath))

	result, err := verify.NewVerifier(s).VerifyPackage(pkg.ID)
	assert.True(t, errors.Is(err, errclass.ErrManifestMismatch))
	require.NotNil(t, result)
	assert.False(t, result.ManifestValid)
	assert.NotEmpty(t, result.Mismatches)
}

func TestVerifyDetectsMissingFile(t *testing.T) {
	s, pkg := sealedPackage(t)

	archivePath := s.PackageArchivePath(pkg.ID)
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)

	// Rewrite the archive dropping one declared file.
	tmpPath := archivePath + ".tmp"
	out, err := os.Create(tmpPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	dropped := false
	for _, f := range zr.File {
		if !dropped && f.Name != "manifest.json" {
			dropped = true
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		rc.Close()
		require.NoError(t, err)
	}
	require.True(t, dropped)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	require.NoError(t, zr.Close())
	require.NoError(t, os.Rename(tmpPath, archivePath))

	result, err := verify.NewVerifier(s).VerifyPackage(pkg.ID)
	assert.True(t, errors.Is(err, errclass.ErrManifestMismatch))
	found := false
	for _, m := range result.Mismatches {
		if len(m) > 0 && m[:8] == "declared" {
			found = true
		}
	}
	assert.True(t, found)
}
