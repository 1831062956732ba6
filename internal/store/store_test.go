package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	return s
}

func ingest(t *testing.T, s *store.Store, name, content string) *model.Document {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	doc, err := s.IngestDocument(src, "user-1", "iso27001", "A.9.2.1", 12)
	require.NoError(t, err)
	return doc
}

func TestInitAndDiscover(t *testing.T) {
	root := t.TempDir()
	s, err := store.Init(root)
	require.NoError(t, err)
	assert.NotEmpty(t, s.RepoID)
	assert.Equal(t, store.FormatVersion, s.FormatVersion)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := store.Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found.Root)
	assert.Equal(t, s.RepoID, found.RepoID)
}

func TestDiscoverOutsideRepo(t *testing.T) {
	_, err := store.Discover(t.TempDir())
	assert.Error(t, err)
}

func TestIngestDocument(t *testing.T) {
	s := newStore(t)
	doc := ingest(t, s, "policy.pdf", "access control policy")

	assert.Equal(t, "policy.pdf", doc.FileName)
	assert.Equal(t, "pdf", doc.FileType)
	assert.Equal(t, int64(21), doc.SizeBytes)
	assert.Equal(t, model.DocumentPending, doc.Status)
	assert.Len(t, string(doc.ContentHash), 64)

	loaded, err := s.Document(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ContentHash, loaded.ContentHash)

	content, err := s.ReadContent(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "access control policy", string(content))
}

func TestIngestRejectsBadFileName(t *testing.T) {
	s := newStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "..")
	_, err := s.IngestDocument(src, "user-1", "iso27001", "", 0)
	assert.Error(t, err)
}

func TestDocumentNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Document("missing")
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}

func TestVerifiedDocumentsFilters(t *testing.T) {
	s := newStore(t)
	verified := ingest(t, s, "a.pdf", "aaa")
	verified.Status = model.DocumentVerified
	require.NoError(t, s.SaveDocument(verified))

	pending := ingest(t, s, "b.pdf", "bbb")
	_ = pending

	other := ingest(t, s, "c.pdf", "ccc")
	other.Status = model.DocumentVerified
	other.FrameworkID = "soc2"
	require.NoError(t, s.SaveDocument(other))

	docs, err := s.VerifiedDocuments([]string{"iso27001"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, verified.ID, docs[0].ID)
}

func TestGapSupersedesOpenGap(t *testing.T) {
	s := newStore(t)

	first := &model.EvidenceGap{
		ID:            uuidutil.NewV4(),
		RequirementID: "A.9.2.1",
		FrameworkID:   "iso27001",
		Type:          model.GapMissingEvidence,
		Severity:      model.SeverityCritical,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.OpenGap(first))

	second := &model.EvidenceGap{
		ID:            uuidutil.NewV4(),
		RequirementID: "A.9.2.1",
		FrameworkID:   "iso27001",
		Type:          model.GapPoorQuality,
		Severity:      model.SeverityHigh,
		CreatedAt:     time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, s.OpenGap(second))

	open, err := s.OpenGapForRequirement("A.9.2.1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, second.ID, open.ID)

	old, err := s.Gap(first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GapResolved, old.Status)
	assert.NotNil(t, old.ResolvedAt)
}

func TestResolveGapForRequirement(t *testing.T) {
	s := newStore(t)
	gap := &model.EvidenceGap{
		ID:            uuidutil.NewV4(),
		RequirementID: "CC6.1",
		FrameworkID:   "soc2",
		Type:          model.GapMissingEvidence,
		Severity:      model.SeverityHigh,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.OpenGap(gap))
	require.NoError(t, s.ResolveGapForRequirement("CC6.1"))

	open, err := s.OpenGapForRequirement("CC6.1")
	require.NoError(t, err)
	assert.Nil(t, open)

	// Resolving again is a no-op.
	require.NoError(t, s.ResolveGapForRequirement("CC6.1"))
}

func TestSaveLinkInsertsBothDirections(t *testing.T) {
	s := newStore(t)
	link := &model.CrossFrameworkMapping{
		ID:                 uuidutil.NewV4(),
		PrimaryRequirement: "A.9.2.1",
		PrimaryFramework:   "iso27001",
		RelatedRequirement: "CC6.1",
		RelatedFramework:   "soc2",
		Type:               model.LinkEquivalent,
		Confidence:         0.9,
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, s.SaveLink(link))

	forward, err := s.HasLink("A.9.2.1", "CC6.1")
	require.NoError(t, err)
	assert.True(t, forward)

	backward, err := s.HasLink("CC6.1", "A.9.2.1")
	require.NoError(t, err)
	assert.True(t, backward)
}

func TestSaveLinkRejectsSameFramework(t *testing.T) {
	s := newStore(t)
	link := &model.CrossFrameworkMapping{
		ID:                 uuidutil.NewV4(),
		PrimaryRequirement: "A.9.2.1",
		PrimaryFramework:   "iso27001",
		RelatedRequirement: "A.9.2.2",
		RelatedFramework:   "iso27001",
		Type:               model.LinkRelated,
		Confidence:         0.8,
	}
	err := s.SaveLink(link)
	assert.True(t, errors.Is(err, errclass.ErrValidation))
}

func TestSealedPackageIsImmutable(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	pkg := &model.AuditPackage{
		ID:           model.NewPackageID(),
		OwnerID:      "user-1",
		Title:        "Q3 audit",
		FrameworkIDs: []string{"iso27001"},
		Status:       model.PackageGenerating,
		CreatedAt:    now,
	}
	require.NoError(t, s.SavePackage(pkg))

	pkg.Status = model.PackageSealed
	pkg.SealedAt = &now
	require.NoError(t, s.SavePackage(pkg))

	pkg.Title = "edited"
	pkg.Status = model.PackageSealed
	err := s.SavePackage(pkg)
	assert.True(t, errors.Is(err, errclass.ErrPackageImmutable))

	// The archive soft delete is still permitted.
	pkg.Status = model.PackageArchived
	require.NoError(t, s.SavePackage(pkg))

	// But nothing after that.
	pkg.Status = model.PackageSealed
	err = s.SavePackage(pkg)
	assert.True(t, errors.Is(err, errclass.ErrPackageImmutable))
}

func TestMappingRoundTripAndValidation(t *testing.T) {
	s := newStore(t)
	m := &model.EvidenceMapping{
		ID:            uuidutil.NewV4(),
		DocumentID:    "doc-1",
		RequirementID: "A.9.2.1",
		FrameworkID:   "iso27001",
		Confidence:    0.82,
		QualityScore:  0.75,
		Quality: model.QualityScores{
			Completeness: 0.8, Clarity: 0.7, Relevance: 0.8, Specificity: 0.7,
		},
		MappingType:      model.MappingDirect,
		ValidationStatus: model.ValidationPending,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.SaveMapping(m))

	byReq, err := s.MappingsForRequirement("A.9.2.1")
	require.NoError(t, err)
	require.Len(t, byReq, 1)
	assert.Equal(t, m.ID, byReq[0].ID)

	updated, err := s.SetValidationStatus(m.ID, model.ValidationRejected)
	require.NoError(t, err)
	assert.Equal(t, model.ValidationRejected, updated.ValidationStatus)

	bad := *m
	bad.ID = uuidutil.NewV4()
	bad.Confidence = 1.5
	assert.True(t, errors.Is(s.SaveMapping(&bad), errclass.ErrValidation))
}

func TestNotificationDedupe(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	id := model.DocumentID("doc-1")

	within, err := s.NotifiedWithin(id, model.FreshnessWarning, 24*time.Hour, now)
	require.NoError(t, err)
	assert.False(t, within)

	require.NoError(t, s.RecordNotification(id, model.FreshnessWarning, now))

	within, err = s.NotifiedWithin(id, model.FreshnessWarning, 24*time.Hour, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, within)

	within, err = s.NotifiedWithin(id, model.FreshnessWarning, 24*time.Hour, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.False(t, within)

	// A different state has its own window.
	within, err = s.NotifiedWithin(id, model.FreshnessExpired, 24*time.Hour, now)
	require.NoError(t, err)
	assert.False(t, within)
}
