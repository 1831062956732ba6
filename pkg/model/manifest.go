package model

import "time"

// Manifest is the manifest.json written inside every sealed archive.
// Field names are the external wire format and must stay stable.
type Manifest struct {
	PackageInfo ManifestPackageInfo `json:"packageInfo"`
	Frameworks  []ManifestFramework `json:"frameworks"`
	Documents   []ManifestDocument  `json:"documents"`
	Integrity   ManifestIntegrity   `json:"integrity"`
}

// ManifestPackageInfo describes the package the manifest belongs to.
type ManifestPackageInfo struct {
	ID             PackageID `json:"id"`
	Title          string    `json:"title"`
	FrameworkIDs   []string  `json:"frameworkIds"`
	GeneratedAt    time.Time `json:"generatedAt"`
	GeneratedBy    string    `json:"generatedBy"`
	CompanyID      string    `json:"companyId,omitempty"`
	DocCount       int       `json:"docCount"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
}

// ManifestFramework is the per-framework document count summary.
type ManifestFramework struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"documentCount"`
}

// ManifestDocument is one file entry; the hash is recomputed from the
// actual bytes placed in the archive, never copied from a cached value.
type ManifestDocument struct {
	ID            DocumentID `json:"id"`
	FileName      string     `json:"fileName"`
	FilePath      string     `json:"filePath"`
	SHA256        HashValue  `json:"sha256"`
	SizeBytes     int64      `json:"sizeBytes"`
	IncludedAs    IncludedAs `json:"includedAs"`
	FrameworkID   string     `json:"frameworkId,omitempty"`
	RequirementID string     `json:"requirementId,omitempty"`
	UploadedAt    time.Time  `json:"uploadedAt"`
}

// ManifestIntegrity seals the manifest. ManifestHash is computed over the
// canonical JSON of the whole manifest with this field blanked.
type ManifestIntegrity struct {
	ManifestHash   HashValue `json:"manifestHash"`
	TotalDocuments int       `json:"totalDocuments"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
}
