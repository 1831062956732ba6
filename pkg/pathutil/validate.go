// Package pathutil provides name and archive-path validation.
package pathutil

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/evidentry-project/evidentry/pkg/errclass"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateFrameworkID validates a framework identifier (e.g. iso27001).
func ValidateFrameworkID(id string) error {
	if id == "" {
		return errclass.ErrNameInvalid.WithMessage("framework id must not be empty")
	}
	if !nameRegex.MatchString(id) {
		return errclass.ErrNameInvalid.WithMessagef("framework id must match [a-zA-Z0-9._-]+: %s", id)
	}
	return nil
}

// ValidateFileName checks a stored file name for safety. Names are
// NFC-normalized before checking so visually identical names validate
// identically.
func ValidateFileName(name string) error {
	if name == "" {
		return errclass.ErrNameInvalid.WithMessage("file name must not be empty")
	}

	name = norm.NFC.String(name)

	if name == "." || name == ".." || strings.Contains(name, "..") {
		return errclass.ErrNameInvalid.WithMessagef("file name must not contain '..': %s", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return errclass.ErrNameInvalid.WithMessagef("file name must not contain separators: %s", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("file name must not contain control characters: %q", name)
		}
	}
	return nil
}

// ValidateArchivePath verifies an in-archive path stays inside the archive
// root. Archive paths always use forward slashes.
func ValidateArchivePath(p string) error {
	if p == "" {
		return errclass.ErrPathEscape.WithMessage("archive path must not be empty")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return errclass.ErrPathEscape.WithMessagef("archive path must be relative with forward slashes: %s", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errclass.ErrPathEscape.WithMessagef("archive path escapes package root: %s", p)
	}
	if clean != p {
		return errclass.ErrPathEscape.WithMessagef("archive path must be clean: %s", p)
	}
	for _, seg := range strings.Split(clean, "/") {
		if err := ValidateFileName(seg); err != nil {
			return errclass.ErrPathEscape.WithMessagef("archive path segment invalid: %s", p)
		}
	}
	return nil
}
