package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AuditPackageSpec defines the desired state of AuditPackage
type AuditPackageSpec struct {
	// Title is the human-readable title of the audit package
	Title string `json:"title"`

	// Frameworks are the compliance framework IDs to bundle evidence for
	// +kubebuilder:validation:MinItems=1
	Frameworks []string `json:"frameworks"`

	// IncludeEvidence includes verified evidence documents
	// +optional
	// +kubebuilder:default=true
	IncludeEvidence bool `json:"includeEvidence,omitempty"`

	// IncludePolicies includes policy files matched by the configured globs
	// +optional
	IncludePolicies bool `json:"includePolicies,omitempty"`

	// RepoPath is the path of the evidence repository on the node
	// (empty = the controller's default repository)
	// +optional
	RepoPath string `json:"repoPath,omitempty"`

	// Owner is the acting owner identity recorded on the package
	// +optional
	// +kubebuilder:default="operator"
	Owner string `json:"owner,omitempty"`
}

// AuditPackageStatus defines the observed state of AuditPackage
type AuditPackageStatus struct {
	// Phase is the current phase of the package
	// +optional
	Phase AuditPackagePhase `json:"phase,omitempty"`

	// Message provides human-readable status information
	// +optional
	Message string `json:"message,omitempty"`

	// PackageID is the identifier of the package in the repository
	// +optional
	PackageID string `json:"packageID,omitempty"`

	// DocumentCount is the number of files sealed into the archive
	// +optional
	DocumentCount int32 `json:"documentCount,omitempty"`

	// SizeBytes is the size of the sealed archive in bytes
	// +optional
	SizeBytes int64 `json:"sizeBytes,omitempty"`

	// ManifestHash is the seal over the package manifest
	// +optional
	ManifestHash string `json:"manifestHash,omitempty"`

	// StartedAt is when generation started
	// +optional
	StartedAt *metav1.Time `json:"startedAt,omitempty"`

	// SealedAt is when the package was sealed
	// +optional
	SealedAt *metav1.Time `json:"sealedAt,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// AuditPackagePhase represents the lifecycle phase of an audit package
// +kubebuilder:validation:Enum=Pending;Generating;Sealed;Failed;Archived
type AuditPackagePhase string

const (
	// AuditPackagePhasePending means the package is waiting to be generated
	AuditPackagePhasePending AuditPackagePhase = "Pending"

	// AuditPackagePhaseGenerating means the package is being assembled
	AuditPackagePhaseGenerating AuditPackagePhase = "Generating"

	// AuditPackagePhaseSealed means the package was sealed successfully
	AuditPackagePhaseSealed AuditPackagePhase = "Sealed"

	// AuditPackagePhaseFailed means package generation failed
	AuditPackagePhaseFailed AuditPackagePhase = "Failed"

	// AuditPackagePhaseArchived means the package was soft-deleted
	AuditPackagePhaseArchived AuditPackagePhase = "Archived"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=audpkg
// +kubebuilder:printcolumn:name="Title",type=string,JSONPath=`.spec.title`
// +kubebuilder:printcolumn:name="Status",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="PackageID",type=string,JSONPath=`.status.packageID`
// +kubebuilder:printcolumn:name="Docs",type=integer,JSONPath=`.status.documentCount`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
// +genclient

// AuditPackage is the Schema for the auditpackages API
type AuditPackage struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AuditPackageSpec   `json:"spec,omitempty"`
	Status AuditPackageStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// AuditPackageList contains a list of AuditPackage
type AuditPackageList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AuditPackage `json:"items"`
}

func init() {
	SchemeBuilder.Register(&AuditPackage{}, &AuditPackageList{})
}

// SetConditions sets the conditions on the package status
func (p *AuditPackage) SetConditions(conditions ...metav1.Condition) {
	p.Status.Conditions = conditions
}

// GetCondition returns the condition with the given type
func (p *AuditPackage) GetCondition(conditionType string) *metav1.Condition {
	for i := range p.Status.Conditions {
		if p.Status.Conditions[i].Type == conditionType {
			return &p.Status.Conditions[i]
		}
	}
	return nil
}
