// Package assembler generates sealed audit packages: collect, hash,
// manifest, archive, seal. A sealed package is immutable; a failed one is
// terminal and leaves no partial files behind.
package assembler

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/provenance"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/logging"
	"github.com/evidentry-project/evidentry/pkg/metrics"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/pathutil"
	"github.com/evidentry-project/evidentry/pkg/uuidutil"
)

// PackageNotifier reports package outcomes to the external collaborator.
type PackageNotifier interface {
	NotifyPackage(ctx context.Context, pkg *model.AuditPackage) error
}

// Assembler generates audit packages from the evidence store.
type Assembler struct {
	store       *store.Store
	catalog     *catalog.Catalog
	ledger      *provenance.Ledger
	notifier    PackageNotifier
	metrics     *metrics.Registry
	policyGlobs []string
	hashWorkers int
	timeout     time.Duration
}

// Options configure an assembler beyond its collaborators.
type Options struct {
	PolicyGlobs []string
	HashWorkers int
	Timeout     time.Duration
}

// New creates an assembler. ledger and notifier may be nil.
func New(s *store.Store, cat *catalog.Catalog, ledger *provenance.Ledger, notifier PackageNotifier, reg *metrics.Registry, opts Options) *Assembler {
	if opts.HashWorkers < 1 {
		opts.HashWorkers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Assembler{
		store:       s,
		catalog:     cat,
		ledger:      ledger,
		notifier:    notifier,
		metrics:     reg,
		policyGlobs: opts.PolicyGlobs,
		hashWorkers: opts.HashWorkers,
		timeout:     opts.Timeout,
	}
}

// Generate runs the full packaging pipeline and returns the sealed
// package. Per-file failures exclude the file; pipeline failures move the
// package to the terminal failed state and clean up partial output.
func (a *Assembler) Generate(ctx context.Context, ownerID, title string, frameworkIDs []string, include model.IncludeOptions) (*model.AuditPackage, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errclass.ErrValidation.WithMessage("package title must not be empty")
	}
	if len(frameworkIDs) == 0 {
		return nil, errclass.ErrValidation.WithMessage("at least one framework must be selected")
	}
	for _, id := range frameworkIDs {
		if err := pathutil.ValidateFrameworkID(id); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	pkg := &model.AuditPackage{
		ID:           model.NewPackageID(),
		OwnerID:      ownerID,
		Title:        title,
		FrameworkIDs: frameworkIDs,
		Include:      include,
		Status:       model.PackageGenerating,
		CreatedAt:    start.UTC(),
	}
	if err := a.store.SavePackage(pkg); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	sealed, err := a.run(runCtx, pkg)
	if err != nil {
		a.fail(pkg, err)
		if a.metrics != nil {
			a.metrics.RecordPackage(false, time.Since(start), 0)
		}
		return pkg, err
	}

	if a.metrics != nil {
		a.metrics.RecordPackage(true, time.Since(start), sealed.SizeBytes)
	}
	if a.notifier != nil {
		if err := a.notifier.NotifyPackage(ctx, sealed); err != nil {
			logging.ErrorErr("package notification failed", err, map[string]any{
				"package_id": sealed.ID.String(),
			})
		}
	}
	return sealed, nil
}

func (a *Assembler) run(ctx context.Context, pkg *model.AuditPackage) (*model.AuditPackage, error) {
	candidates, err := a.collect(pkg.FrameworkIDs, pkg.Include)
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("collect package content: %v", err)
	}

	hashed, err := a.hashAll(ctx, candidates)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	manifest, err := buildManifest(pkg, a.catalog, hashed, now)
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("build manifest: %v", err)
	}

	if err := a.store.SaveManifest(pkg.ID, manifest); err != nil {
		return nil, errclass.ErrStorage.WithMessagef("write manifest: %v", err)
	}

	archivePath := a.store.PackageArchivePath(pkg.ID)
	size, err := writeArchive(archivePath, manifest, hashed)
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("write archive: %v", err)
	}

	items := make([]*model.AuditPackageItem, 0, len(hashed))
	for _, c := range hashed {
		items = append(items, &model.AuditPackageItem{
			ID:            uuidutil.NewV4(),
			PackageID:     pkg.ID,
			DocumentID:    c.DocumentID,
			RequirementID: c.RequirementID,
			FileName:      c.FileName,
			ArchivePath:   c.ArchivePath,
			ContentHash:   c.Hash,
			SizeBytes:     c.Size,
			IncludedAs:    c.IncludedAs,
			AddedAt:       now,
		})
	}
	if err := a.store.SavePackageItems(pkg.ID, items); err != nil {
		return nil, errclass.ErrStorage.WithMessagef("persist package items: %v", err)
	}

	pkg.Status = model.PackageSealed
	pkg.DocCount = len(hashed)
	pkg.SizeBytes = size
	pkg.ArchivePath = archivePath
	pkg.ManifestPath = a.store.PackageManifestPath(pkg.ID)
	pkg.ManifestHash = manifest.Integrity.ManifestHash
	pkg.SealedAt = &now
	if err := a.store.SavePackage(pkg); err != nil {
		return nil, err
	}

	logging.Info("package sealed", map[string]any{
		"package_id":    pkg.ID.String(),
		"doc_count":     pkg.DocCount,
		"size_bytes":    pkg.SizeBytes,
		"manifest_hash": string(pkg.ManifestHash),
	})
	return pkg, nil
}

// hashAll recomputes every candidate's hash in parallel; the manifest
// stage only starts after the join. Unreadable files and stored-hash
// mismatches exclude the file without aborting the package.
func (a *Assembler) hashAll(ctx context.Context, candidates []*candidate) ([]*candidate, error) {
	var mu sync.Mutex
	survivors := make([]*candidate, 0, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.hashWorkers)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hash, size, err := hashFile(c.SourcePath)
			if err != nil {
				logging.Warn("excluding unreadable file from package", map[string]any{
					"archive_path": c.ArchivePath,
					"error":        err.Error(),
				})
				return nil
			}
			if c.StoredHash != "" && hash != c.StoredHash {
				logging.Warn("excluding file whose content no longer matches its recorded hash", map[string]any{
					"document_id":  c.DocumentID.String(),
					"archive_path": c.ArchivePath,
				})
				if a.ledger != nil && c.DocumentID != "" {
					_, _ = a.ledger.Append(c.DocumentID, model.EventModified, model.SystemActor, map[string]any{
						"recorded_hash": string(c.StoredHash),
						"actual_hash":   string(hash),
					})
				}
				return nil
			}
			c.Hash = hash
			c.Size = size
			mu.Lock()
			survivors = append(survivors, c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errclass.ErrStorage.WithMessagef("hash package content: %v", err)
	}

	// Restore deterministic archive order after the parallel stage.
	mu.Lock()
	defer mu.Unlock()
	ordered := survivors[:0]
	for _, c := range candidates {
		if c.Hash != "" {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// fail moves a package to its terminal failed state and removes any
// partial manifest or archive, so no dangling generating record survives.
func (a *Assembler) fail(pkg *model.AuditPackage, cause error) {
	os.Remove(a.store.PackageArchivePath(pkg.ID))
	os.Remove(a.store.PackageManifestPath(pkg.ID))

	pkg.Status = model.PackageFailed
	pkg.FailureCause = cause.Error()
	if err := a.store.SavePackage(pkg); err != nil {
		logging.ErrorErr("failed to record package failure", err, map[string]any{
			"package_id": pkg.ID.String(),
		})
	}
	logging.ErrorErr("package generation failed", cause, map[string]any{
		"package_id": pkg.ID.String(),
	})
	if a.notifier != nil {
		if err := a.notifier.NotifyPackage(context.Background(), pkg); err != nil {
			logging.ErrorErr("package failure notification failed", err)
		}
	}
}
