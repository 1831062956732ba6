package evidentry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/evidentry-project/evidentry/internal/assembler"
	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/internal/store"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// Client exposes the audit-package operations over one repository.
type Client struct {
	store     *store.Store
	assembler *assembler.Assembler
}

// NewClient creates a client over an opened store. The assembler carries
// the packaging configuration.
func NewClient(s *store.Store, a *assembler.Assembler) *Client {
	return &Client{store: s, assembler: a}
}

// Open discovers the repository containing dir and returns a client with
// default packaging options.
func Open(dir string) (*Client, error) {
	s, err := store.Discover(dir)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(s.Root)
	if err != nil {
		return nil, err
	}
	a := assembler.New(s, cat, nil, nil, nil, assembler.Options{})
	return NewClient(s, a), nil
}

// GeneratePackage validates the request and runs the packaging pipeline.
// Returns the summary of the sealed (or failed) package.
func (c *Client) GeneratePackage(ctx context.Context, ownerID, title string, frameworkIDs []string, include model.IncludeOptions) (*model.PackageSummary, error) {
	pkg, err := c.assembler.Generate(ctx, ownerID, title, frameworkIDs, include)
	if err != nil {
		if pkg != nil {
			summary := pkg.Summary()
			return &summary, err
		}
		return nil, err
	}
	summary := pkg.Summary()
	return &summary, nil
}

// ListPackages returns summaries of the requester's packages, newest
// first. Items are never included in listings.
func (c *Client) ListPackages(ownerID string) ([]model.PackageSummary, error) {
	all, err := c.store.Packages()
	if err != nil {
		return nil, err
	}
	var out []model.PackageSummary
	for _, pkg := range all {
		if pkg.OwnerID == ownerID {
			out = append(out, pkg.Summary())
		}
	}
	return out, nil
}

// PackageDetails is the full view of one package.
type PackageDetails struct {
	Package model.AuditPackage        `json:"package"`
	Items   []*model.AuditPackageItem `json:"items"`
}

// GetPackage returns one package with its items. Requesters who do not own
// the package are rejected.
func (c *Client) GetPackage(id model.PackageID, requesterID string) (*PackageDetails, error) {
	pkg, err := c.store.Package(id)
	if err != nil {
		return nil, err
	}
	if pkg.OwnerID != requesterID {
		return nil, errclass.ErrNotOwner.WithMessagef("package %s belongs to another owner", id.ShortID())
	}
	items, err := c.store.PackageItems(id)
	if err != nil {
		return nil, err
	}
	return &PackageDetails{Package: *pkg, Items: items}, nil
}

// OpenArchive returns a reader over the sealed archive bytes. Refused
// unless the package is sealed and the archive file is present on disk.
func (c *Client) OpenArchive(id model.PackageID, requesterID string) (io.ReadCloser, *model.AuditPackage, error) {
	pkg, err := c.store.Package(id)
	if err != nil {
		return nil, nil, err
	}
	if pkg.OwnerID != requesterID {
		return nil, nil, errclass.ErrNotOwner.WithMessagef("package %s belongs to another owner", id.ShortID())
	}
	if pkg.Status != model.PackageSealed {
		return nil, nil, errclass.ErrPackageNotSealed.WithMessagef("package %s is %s", id.ShortID(), pkg.Status)
	}
	f, err := os.Open(c.store.PackageArchivePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errclass.ErrPackageNotSealed.WithMessagef("archive for package %s is missing", id.ShortID())
		}
		return nil, nil, errclass.ErrStorage.WithMessagef("open archive: %v", err)
	}
	return f, pkg, nil
}

// ArchivePackage soft-deletes a sealed package. The archive file stays on
// disk.
func (c *Client) ArchivePackage(id model.PackageID, requesterID string) error {
	pkg, err := c.store.Package(id)
	if err != nil {
		return err
	}
	if pkg.OwnerID != requesterID {
		return errclass.ErrNotOwner.WithMessagef("package %s belongs to another owner", id.ShortID())
	}
	if pkg.Status != model.PackageSealed {
		return errclass.ErrPackageNotSealed.WithMessagef("only sealed packages can be archived; package %s is %s", id.ShortID(), pkg.Status)
	}
	pkg.Status = model.PackageArchived
	return c.store.SavePackage(pkg)
}

// WaitSealed polls until the package leaves the generating state or the
// context expires. Useful for callers driving generation asynchronously.
func (c *Client) WaitSealed(ctx context.Context, id model.PackageID, interval time.Duration) (*model.AuditPackage, error) {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		pkg, err := c.store.Package(id)
		if err != nil {
			return nil, err
		}
		if pkg.Status != model.PackageGenerating {
			return pkg, nil
		}
		select {
		case <-ctx.Done():
			return pkg, ctx.Err()
		case <-time.After(interval):
		}
	}
}
