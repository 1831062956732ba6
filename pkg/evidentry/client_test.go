package evidentry_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/evidentry"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*evidentry.Client, *store.Store) {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "review.pdf")
	require.NoError(t, os.WriteFile(src, []byte("quarterly access review"), 0644))
	doc, err := s.IngestDocument(src, "alice", "iso27001", "A.9.2.1", 12)
	require.NoError(t, err)
	doc.Status = model.DocumentVerified
	require.NoError(t, s.SaveDocument(doc))

	a := assembler.New(s, nil, nil, nil, metrics.NewRegistry(), assembler.Options{})
	return evidentry.NewClient(s, a), s
}

func TestGenerateAndList(t *testing.T) {
	c, _ := newClient(t)

	summary, err := c.GeneratePackage(context.Background(), "alice", "Q3 audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)
	assert.Equal(t, model.PackageSealed, summary.Status)
	assert.Equal(t, 1, summary.DocCount)

	mine, err := c.ListPackages("alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, summary.ID, mine[0].ID)

	others, err := c.ListPackages("bob")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestGenerateValidation(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.GeneratePackage(context.Background(), "alice", "", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	assert.True(t, errors.Is(err, errclass.ErrValidation))

	_, err = c.GeneratePackage(context.Background(), "alice", "title", nil, model.IncludeOptions{Evidence: true})
	assert.True(t, errors.Is(err, errclass.ErrValidation))
}

func TestGetPackageEnforcesOwnership(t *testing.T) {
	c, _ := newClient(t)
	summary, err := c.GeneratePackage(context.Background(), "alice", "Q3 audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)

	details, err := c.GetPackage(summary.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, details.Items, 1)

	_, err = c.GetPackage(summary.ID, "mallory")
	assert.True(t, errors.Is(err, errclass.ErrNotOwner))

	_, err = c.GetPackage("nonexistent", "alice")
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}

func TestOpenArchive(t *testing.T) {
	c, _ := newClient(t)
	summary, err := c.GeneratePackage(context.Background(), "alice", "Q3 audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)

	rc, pkg, err := c.OpenArchive(summary.ID, "alice")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, model.PackageSealed, pkg.Status)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "manifest.json", zr.File[0].Name)
}

func TestOpenArchiveRefusals(t *testing.T) {
	c, s := newClient(t)
	summary, err := c.GeneratePackage(context.Background(), "alice", "Q3 audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)

	_, _, err = c.OpenArchive(summary.ID, "mallory")
	assert.True(t, errors.Is(err, errclass.ErrNotOwner))

	// Missing archive file refuses the download even for a sealed record.
	require.NoError(t, os.Remove(s.PackageArchivePath(summary.ID)))
	_, _, err = c.OpenArchive(summary.ID, "alice")
	assert.True(t, errors.Is(err, errclass.ErrPackageNotSealed))
}

func TestArchivePackageSoftDeletes(t *testing.T) {
	c, s := newClient(t)
	summary, err := c.GeneratePackage(context.Background(), "alice", "Q3 audit", []string{"iso27001"}, model.IncludeOptions{Evidence: true})
	require.NoError(t, err)

	require.NoError(t, c.ArchivePackage(summary.ID, "alice"))

	pkg, err := s.Package(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PackageArchived, pkg.Status)

	// The archive file survives the soft delete.
	_, err = os.Stat(s.PackageArchivePath(summary.ID))
	assert.NoError(t, err)

	// Archived packages can no longer be downloaded.
	_, _, err = c.OpenArchive(summary.ID, "alice")
	assert.True(t, errors.Is(err, errclass.ErrPackageNotSealed))
}
