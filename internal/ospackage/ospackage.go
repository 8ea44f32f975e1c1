package ospackage

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidSpec is returned by PackageSpec.Validate.
var ErrInvalidSpec = errors.New("invalid package spec")

// PackageSpec identifies the single RPM a run downloads.
type PackageSpec struct {
	Name        string // name-version-release stem, e.g. "linux-firmware-20230919-1"
	Version     string // optional, informational only
	ReleaseTag  string // Fedora release, e.g. "39"
	Arch        string // repository architecture, e.g. "x86_64"
	PackageArch string // RPM architecture, e.g. "noarch"
}

// Validate reports whether the spec can be turned into a download URL.
func (s PackageSpec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: package name is empty", ErrInvalidSpec)
	case strings.ContainsAny(s.Name, "/\\"):
		return fmt.Errorf("%w: package name %q contains a path separator", ErrInvalidSpec, s.Name)
	case !utf8.ValidString(s.Name):
		return fmt.Errorf("%w: package name is not valid UTF-8", ErrInvalidSpec)
	case s.ReleaseTag == "":
		return fmt.Errorf("%w: release is empty", ErrInvalidSpec)
	case s.Arch == "":
		return fmt.Errorf("%w: architecture is empty", ErrInvalidSpec)
	case s.PackageArch == "":
		return fmt.Errorf("%w: package architecture is empty", ErrInvalidSpec)
	}
	return nil
}

// Bucket returns the first character of the package name, case preserved.
// Repositories shard their Packages/ directory by it.
func (s PackageSpec) Bucket() string {
	r, size := utf8.DecodeRuneInString(s.Name)
	if size == 0 || r == utf8.RuneError {
		return s.Name[:min(1, len(s.Name))]
	}
	return string(r)
}

// FileName is the final path segment of the package URL.
func (s PackageSpec) FileName() string {
	return fmt.Sprintf("%s.fc%s.%s.rpm", s.Name, s.ReleaseTag, s.PackageArch)
}

// String renders the spec for logs.
func (s PackageSpec) String() string {
	return strings.TrimSuffix(s.FileName(), ".rpm")
}

// BuildURL returns {base}/Packages/{bucket}/{name}.fc{release}.{packageArch}.rpm.
// A trailing slash on base is ignored. The caller guarantees a valid spec.
func BuildURL(base string, s PackageSpec) string {
	return strings.TrimRight(base, "/") + "/Packages/" + s.Bucket() + "/" + s.FileName()
}
