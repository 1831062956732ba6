package v1alpha1

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopy implements the DeepCopy method for AuditPackage
func (in *AuditPackage) DeepCopy() *AuditPackage {
	if in == nil {
		return nil
	}
	out := new(AuditPackage)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto implements the DeepCopyInto method for AuditPackage
func (in *AuditPackage) DeepCopyInto(out *AuditPackage) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
	return
}

// DeepCopyObject implements the DeepCopyObject method for AuditPackage
func (in *AuditPackage) DeepCopyObject() runtime.Object {
	return in.DeepCopy()
}

// DeepCopy implements the DeepCopy method for AuditPackageList
func (in *AuditPackageList) DeepCopy() *AuditPackageList {
	if in == nil {
		return nil
	}
	out := new(AuditPackageList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto implements the DeepCopyInto method for AuditPackageList
func (in *AuditPackageList) DeepCopyInto(out *AuditPackageList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		in, out := &in.Items, &out.Items
		*out = make([]AuditPackage, len(*in))
		for i := range *in {
			(*in)[i].DeepCopyInto(&(*out)[i])
		}
	}
	return
}

// DeepCopyObject implements the DeepCopyObject method for AuditPackageList
func (in *AuditPackageList) DeepCopyObject() runtime.Object {
	return in.DeepCopy()
}

// DeepCopy implements the DeepCopy method for AuditPackageSpec
func (in *AuditPackageSpec) DeepCopy() *AuditPackageSpec {
	if in == nil {
		return nil
	}
	out := new(AuditPackageSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto implements the DeepCopyInto method for AuditPackageSpec
func (in *AuditPackageSpec) DeepCopyInto(out *AuditPackageSpec) {
	*out = *in
	if in.Frameworks != nil {
		in, out := &in.Frameworks, &out.Frameworks
		*out = make([]string, len(*in))
		copy(*out, *in)
	}
	return
}

// DeepCopy implements the DeepCopy method for AuditPackageStatus
func (in *AuditPackageStatus) DeepCopy() *AuditPackageStatus {
	if in == nil {
		return nil
	}
	out := new(AuditPackageStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto implements the DeepCopyInto method for AuditPackageStatus
func (in *AuditPackageStatus) DeepCopyInto(out *AuditPackageStatus) {
	*out = *in
	if in.StartedAt != nil {
		in, out := &in.StartedAt, &out.StartedAt
		*out = (*in).DeepCopy()
	}
	if in.SealedAt != nil {
		in, out := &in.SealedAt, &out.SealedAt
		*out = (*in).DeepCopy()
	}
	if in.Conditions != nil {
		in, out := &in.Conditions, &out.Conditions
		*out = make([]v1.Condition, len(*in))
		for i := range *in {
			(*in)[i].DeepCopyInto(&(*out)[i])
		}
	}
	return
}
