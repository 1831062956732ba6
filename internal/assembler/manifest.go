package assembler

import (
	"fmt"
	"sort"
	"time"

	"github.com/evidentry-project/evidentry/internal/catalog"
	"github.com/evidentry-project/evidentry/pkg/jsonutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

// buildManifest assembles the manifest for the hashed candidates and seals
// it with the manifest hash.
func buildManifest(pkg *model.AuditPackage, cat *catalog.Catalog, items []*candidate, generatedAt time.Time) (*model.Manifest, error) {
	var totalSize int64
	perFramework := make(map[string]int)

	docs := make([]model.ManifestDocument, 0, len(items))
	for _, item := range items {
		totalSize += item.Size
		if item.FrameworkID != "" {
			perFramework[item.FrameworkID]++
		}
		docs = append(docs, model.ManifestDocument{
			ID:            item.DocumentID,
			FileName:      item.FileName,
			FilePath:      item.ArchivePath,
			SHA256:        item.Hash,
			SizeBytes:     item.Size,
			IncludedAs:    item.IncludedAs,
			FrameworkID:   item.FrameworkID,
			RequirementID: item.RequirementID,
			UploadedAt:    item.UploadedAt,
		})
	}

	frameworks := make([]model.ManifestFramework, 0, len(pkg.FrameworkIDs))
	for _, id := range pkg.FrameworkIDs {
		name := id
		if cat != nil {
			if fw, err := cat.Framework(id); err == nil {
				name = fw.Name
			}
		}
		frameworks = append(frameworks, model.ManifestFramework{
			ID:            id,
			Name:          name,
			DocumentCount: perFramework[id],
		})
	}
	sort.Slice(frameworks, func(i, j int) bool { return frameworks[i].ID < frameworks[j].ID })

	manifest := &model.Manifest{
		PackageInfo: model.ManifestPackageInfo{
			ID:             pkg.ID,
			Title:          pkg.Title,
			FrameworkIDs:   pkg.FrameworkIDs,
			GeneratedAt:    generatedAt,
			GeneratedBy:    pkg.OwnerID,
			CompanyID:      pkg.CompanyID,
			DocCount:       len(docs),
			TotalSizeBytes: totalSize,
		},
		Frameworks: frameworks,
		Documents:  docs,
		Integrity: model.ManifestIntegrity{
			TotalDocuments: len(docs),
			TotalSizeBytes: totalSize,
		},
	}

	hash, err := ManifestHash(manifest)
	if err != nil {
		return nil, err
	}
	manifest.Integrity.ManifestHash = hash
	return manifest, nil
}

// ManifestHash computes the manifest seal: a hash over the canonical JSON
// of the manifest with the integrity hash field itself blanked.
func ManifestHash(m *model.Manifest) (model.HashValue, error) {
	unsealed := *m
	unsealed.Integrity.ManifestHash = ""
	hash, err := jsonutil.CanonicalHash(&unsealed)
	if err != nil {
		return "", fmt.Errorf("hash manifest: %w", err)
	}
	return model.HashValue(hash), nil
}
