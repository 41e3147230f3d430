package engine

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bsamaha/docker-registry/pkg/logger"
	"github.com/bsamaha/docker-registry/pkg/validation"
)

// Storage paths follow the distribution registry's v2 filesystem layout.
// Container paths are always slash-separated, so the path package is used
// rather than filepath.

// RepoPath returns the in-container directory holding a repository.
func (e *Engine) RepoPath(repo string) string {
	return path.Join(e.storage.Root, "repositories", repo)
}

// TagPath returns the in-container directory holding a single tag's
// manifest references.
func (e *Engine) TagPath(repo, tag string) string {
	return path.Join(e.storage.Root, "repositories", repo, "_manifests", "tags", tag)
}

// RemoveStoragePath deletes a directory inside the registry container.
// The target must resolve to somewhere strictly below the storage root.
func (e *Engine) RemoveStoragePath(ctx context.Context, target string) (*ExecResult, error) {
	if err := e.checkStoragePath(target); err != nil {
		return nil, err
	}

	logger.Warn("Removing storage path inside container",
		"container", e.containerID,
		"path", target)

	result, err := e.ExecInContainer(ctx, []string{"rm", "-rf", target})
	if err != nil {
		return nil, fmt.Errorf("failed to remove storage path %s: %w", target, err)
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("removing storage path %s exited with code %d: %s",
			target, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result, nil
}

func (e *Engine) checkStoragePath(target string) error {
	root := path.Clean(e.storage.Root)
	if root == "" || root == "/" || root == "." || !path.IsAbs(root) {
		return fmt.Errorf("storage root %q is not a usable absolute path", e.storage.Root)
	}
	if path.Clean(target) != target {
		return fmt.Errorf("storage path %q is not in canonical form", target)
	}
	return validation.ValidatePathWithinRoot(root, target)
}
