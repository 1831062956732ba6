package errclass

import "fmt"

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	// ErrValidation rejects bad input before any work starts
	// (empty title, no frameworks selected, unknown enum value).
	ErrValidation = &Error{Code: "E_VALIDATION"}

	// ErrNotFound signals an unknown document, package, or requirement.
	ErrNotFound = &Error{Code: "E_NOT_FOUND"}

	// ErrNotOwner rejects access to a package by a non-owner.
	ErrNotOwner = &Error{Code: "E_NOT_OWNER"}

	// ErrProviderUnavailable marks an analysis provider timeout or
	// malformed response. Recoverable: callers degrade per item.
	ErrProviderUnavailable = &Error{Code: "E_PROVIDER_UNAVAILABLE"}

	// ErrChainBroken signals provenance chain hash verification failure.
	ErrChainBroken = &Error{Code: "E_CHAIN_BROKEN"}

	// ErrManifestMismatch signals a recomputed hash that does not match
	// a manifest entry or the sealed manifest hash.
	ErrManifestMismatch = &Error{Code: "E_MANIFEST_MISMATCH"}

	// ErrPackageNotSealed refuses downloads of packages that are not
	// sealed or whose archive is missing on disk.
	ErrPackageNotSealed = &Error{Code: "E_PACKAGE_NOT_SEALED"}

	// ErrPackageImmutable refuses mutation of a sealed package.
	ErrPackageImmutable = &Error{Code: "E_PACKAGE_IMMUTABLE"}

	// ErrPackageFailed marks a package that hit a terminal failure
	// during generation.
	ErrPackageFailed = &Error{Code: "E_PACKAGE_FAILED"}

	// ErrStoreConflict signals a concurrent write conflict in the store.
	ErrStoreConflict = &Error{Code: "E_STORE_CONFLICT"}

	// ErrNameInvalid rejects unsafe names (frameworks, file names).
	ErrNameInvalid = &Error{Code: "E_NAME_INVALID"}

	// ErrPathEscape rejects in-archive or store paths escaping the root.
	ErrPathEscape = &Error{Code: "E_PATH_ESCAPE"}

	// ErrStorage wraps filesystem read/write failures during packaging.
	ErrStorage = &Error{Code: "E_STORAGE"}
)
