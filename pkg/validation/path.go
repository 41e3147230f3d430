// Package validation checks the repository names, manifest references
// and storage paths that flow into registry API paths and container exec
// commands. Everything here runs before any network or filesystem
// activity. Name and tag grammar comes from the distribution reference
// module, so the client accepts exactly what the registry accepts.
package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// MaxRepositoryNameLength mirrors the reference grammar's total length
// cap for repository names.
const MaxRepositoryNameLength = 255

// reference.TagRegexp matches substrings, which is useless for
// validating a whole argument; anchor it.
var anchoredTagRegexp = regexp.MustCompile(`^` + reference.TagRegexp.String() + `$`)

// ValidateRepositoryName checks that name is a plain repository path per
// the reference grammar, with no registry domain port, tag or digest
// smuggled in, and no path traversal.
func ValidateRepositoryName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if len(name) > MaxRepositoryNameLength {
		return fmt.Errorf("repository name too long: %d chars (max %d)", len(name), MaxRepositoryNameLength)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("repository name contains path traversal sequence")
	}
	// A colon means a port-qualified domain or an attached tag; either
	// would corrupt the /v2/{name}/ request path.
	if strings.Contains(name, ":") {
		return fmt.Errorf("repository name must not contain a colon")
	}

	ref, err := reference.Parse(name)
	if err != nil {
		return fmt.Errorf("invalid repository name %q: %w", name, err)
	}
	named, ok := ref.(reference.Named)
	if !ok || named.Name() != name {
		return fmt.Errorf("invalid repository name %q: not a plain repository path", name)
	}
	return nil
}

/// ValidateReference checks a manifest reference: a tag per the reference
// grammar, or a digest parseable by go-digest.
func ValidateReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("reference cannot be empty")
	}
	if strings.Contains(ref, "..") {
		return fmt.Errorf("reference contains path traversal sequence")
	}
	if strings.Contains(ref, ":") {
		if _, err := digest.Parse(ref); err != nil {
			return fmt.Errorf("invalid digest reference %q: %w", ref, err)
		}
		return nil
	}
	if !anchoredTagRegexp.MatchString(ref) {
		return fmt.Errorf("invalid tag %q", ref)
	}
	return nil
}

// ValidatePathWithinRoot checks that a slash-separated container path
// stays strictly below root. Both sides are compared in cleaned form;
// the root itself is not a valid target.
func ValidatePathWithinRoot(root, target string) error {
	cleanRoot := path.Clean(root)
	cleanTarget := path.Clean(target)
	if cleanTarget == cleanRoot || !strings.HasPrefix(cleanTarget, cleanRoot+"/") {
		return fmt.Errorf("path %q escapes the storage root %q", target, root)
	}
	return nil
}
