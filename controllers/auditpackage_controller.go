package controllers

import (
	"context"
	"errors"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	evidentryv1alpha1 "github.com/evidentry-project/evidentry/api/v1alpha1"
	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/evidentry"
	"github.com/evidentry-project/evidentry/pkg/model"
)

const (
	packageFinalizer        = "evidentry.io/package-finalizer"
	packageRequeueOnFailure = 30 * time.Second
)

// AuditPackageReconciler reconciles an AuditPackage object
type AuditPackageReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// DefaultRepoPath is the evidence repository used when spec.repoPath is empty
	DefaultRepoPath string
}

// +kubebuilder:rbac:groups=evidentry.io,resources=auditpackages,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=evidentry.io,resources=auditpackages/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=evidentry.io,resources=auditpackages/finalizers,verbs=update
// +kubebuilder:rbac:groups=core,resources=events,verbs=create;patch

// Reconcile is the main reconciliation loop for AuditPackage resources
func (r *AuditPackageReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	pkg := &evidentryv1alpha1.AuditPackage{}
	err := r.Get(ctx, req.NamespacedName, pkg)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	// Examine DeletionTimestamp to determine if object is under deletion
	if !pkg.ObjectMeta.DeletionTimestamp.IsZero() {
		if controllerutil.ContainsFinalizer(pkg, packageFinalizer) {
			if err := r.finalizePackage(ctx, pkg); err != nil {
				return ctrl.Result{RequeueAfter: packageRequeueOnFailure}, err
			}
			controllerutil.RemoveFinalizer(pkg, packageFinalizer)
			if err := r.Update(ctx, pkg); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{}, nil
	}

	// Add finalizer if not present
	if !controllerutil.ContainsFinalizer(pkg, packageFinalizer) {
		controllerutil.AddFinalizer(pkg, packageFinalizer)
		if err := r.Update(ctx, pkg); err != nil {
			return ctrl.Result{}, err
		}
	}

	switch pkg.Status.Phase {
	case "":
		fallthrough
	case evidentryv1alpha1.AuditPackagePhasePending:
		return r.generatePackage(ctx, pkg)
	case evidentryv1alpha1.AuditPackagePhaseGenerating:
		// A restarted controller may find a package stuck in Generating;
		// the repository record is authoritative, so resync from it.
		return r.resyncPackage(ctx, pkg)
	}

	return ctrl.Result{}, nil
}

// generatePackage runs the packaging pipeline and seals the result
func (r *AuditPackageReconciler) generatePackage(ctx context.Context, pkg *evidentryv1alpha1.AuditPackage) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	now := metav1.Now()
	pkg.Status.Phase = evidentryv1alpha1.AuditPackagePhaseGenerating
	pkg.Status.Message = "Generating audit package"
	pkg.Status.StartedAt = &now

	if err := r.Status().Update(ctx, pkg); err != nil {
		return ctrl.Result{}, err
	}

	c, err := evidentry.Open(r.repoPath(pkg))
	if err != nil {
		logger.Error(err, "Failed to open evidence repository")
		r.markFailed(ctx, pkg, err.Error())
		return ctrl.Result{RequeueAfter: packageRequeueOnFailure}, nil
	}

	summary, err := c.GeneratePackage(ctx, r.owner(pkg), pkg.Spec.Title, pkg.Spec.Frameworks, model.IncludeOptions{
		Evidence: pkg.Spec.IncludeEvidence,
		Policies: pkg.Spec.IncludePolicies,
	})
	if summary != nil {
		pkg.Status.PackageID = summary.ID.String()
	}
	if err != nil {
		logger.Error(err, "Failed to generate package")
		r.markFailed(ctx, pkg, err.Error())
		return ctrl.Result{}, nil
	}

	return ctrl.Result{}, r.markSealed(ctx, c, pkg, summary.ID)
}

// resyncPackage reconciles the status against the repository record
func (r *AuditPackageReconciler) resyncPackage(ctx context.Context, pkg *evidentryv1alpha1.AuditPackage) (ctrl.Result, error) {
	if pkg.Status.PackageID == "" {
		// Generation never got as far as creating a record. Start over.
		return r.generatePackage(ctx, pkg)
	}

	c, err := evidentry.Open(r.repoPath(pkg))
	if err != nil {
		return ctrl.Result{RequeueAfter: packageRequeueOnFailure}, err
	}

	id := model.PackageID(pkg.Status.PackageID)
	details, err := c.GetPackage(id, r.owner(pkg))
	if err != nil {
		r.markFailed(ctx, pkg, err.Error())
		return ctrl.Result{}, nil
	}

	switch details.Package.Status {
	case model.PackageSealed:
		return ctrl.Result{}, r.markSealed(ctx, c, pkg, id)
	case model.PackageFailed:
		r.markFailed(ctx, pkg, details.Package.FailureCause)
		return ctrl.Result{}, nil
	case model.PackageArchived:
		pkg.Status.Phase = evidentryv1alpha1.AuditPackagePhaseArchived
		pkg.Status.Message = "Package archived in repository"
		return ctrl.Result{}, r.Status().Update(ctx, pkg)
	}
	return ctrl.Result{RequeueAfter: packageRequeueOnFailure}, nil
}

// markSealed fills the status from the sealed repository record
func (r *AuditPackageReconciler) markSealed(ctx context.Context, c *evidentry.Client, pkg *evidentryv1alpha1.AuditPackage, id model.PackageID) error {
	details, err := c.GetPackage(id, r.owner(pkg))
	if err != nil {
		return err
	}
	rec := details.Package

	now := metav1.Now()
	pkg.Status.Phase = evidentryv1alpha1.AuditPackagePhaseSealed
	pkg.Status.Message = "Package sealed"
	pkg.Status.PackageID = rec.ID.String()
	pkg.Status.DocumentCount = int32(rec.DocCount)
	pkg.Status.SizeBytes = rec.SizeBytes
	pkg.Status.ManifestHash = string(rec.ManifestHash)
	if rec.SealedAt != nil {
		sealed := metav1.NewTime(*rec.SealedAt)
		pkg.Status.SealedAt = &sealed
	} else {
		pkg.Status.SealedAt = &now
	}

	pkg.SetConditions(metav1.Condition{
		Type:               "Sealed",
		Status:             metav1.ConditionTrue,
		LastTransitionTime: now,
		Reason:             "PackageSealed",
		Message:            "Package sealed and manifest verified",
	})

	return r.Status().Update(ctx, pkg)
}

// markFailed records a terminal failure on the status
func (r *AuditPackageReconciler) markFailed(ctx context.Context, pkg *evidentryv1alpha1.AuditPackage, message string) {
	now := metav1.Now()
	pkg.Status.Phase = evidentryv1alpha1.AuditPackagePhaseFailed
	pkg.Status.Message = message
	pkg.SetConditions(metav1.Condition{
		Type:               "Sealed",
		Status:             metav1.ConditionFalse,
		LastTransitionTime: now,
		Reason:             "GenerationFailed",
		Message:            message,
	})
	r.Status().Update(ctx, pkg)
}

// finalizePackage soft-deletes the repository package on resource deletion.
// The archive file stays on disk for retention.
func (r *AuditPackageReconciler) finalizePackage(ctx context.Context, pkg *evidentryv1alpha1.AuditPackage) error {
	if pkg.Status.PackageID == "" {
		return nil
	}
	c, err := evidentry.Open(r.repoPath(pkg))
	if err != nil {
		// A missing repository means there is nothing left to archive.
		return nil
	}
	err = c.ArchivePackage(model.PackageID(pkg.Status.PackageID), r.owner(pkg))
	if err != nil && !errors.Is(err, errclass.ErrNotFound) && !errors.Is(err, errclass.ErrPackageNotSealed) {
		return err
	}
	return nil
}

func (r *AuditPackageReconciler) repoPath(pkg *evidentryv1alpha1.AuditPackage) string {
	if pkg.Spec.RepoPath != "" {
		return pkg.Spec.RepoPath
	}
	return r.DefaultRepoPath
}

func (r *AuditPackageReconciler) owner(pkg *evidentryv1alpha1.AuditPackage) string {
	if pkg.Spec.Owner != "" {
		return pkg.Spec.Owner
	}
	return "operator"
}

// SetupWithManager sets up the controller with the Manager
func (r *AuditPackageReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&evidentryv1alpha1.AuditPackage{}).
		Complete(r)
}
