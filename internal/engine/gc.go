package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"

	"github.com/bsamaha/docker-registry/pkg/logger"
)

// storageLayoutRange covers the registry releases whose on-disk layout the
// fallback cleanup understands.
var storageLayoutRange = mustConstraint(">= 2.0, < 3.0")

func mustConstraint(rng string) *semver.Constraints {
	c, err := semver.NewConstraint(rng)
	if err != nil {
		panic(err)
	}
	return c
}

// gcCommand builds the argv for the registry garbage collector.
func (e *Engine) gcCommand(deleteUntagged bool) []string {
	cmd := []string{e.gc.Binary, "garbage-collect"}
	if deleteUntagged {
		cmd = append(cmd, "--delete-untagged")
	}
	return append(cmd, e.gc.ConfigPath)
}

// RunGarbageCollect execs the registry's garbage collector inside the
// container. A non-zero exit code is an error; the captured output is
// returned either way so callers can surface it.
func (e *Engine) RunGarbageCollect(ctx context.Context, deleteUntagged bool) (*ExecResult, error) {
	cmd := e.gcCommand(deleteUntagged)
	logger.Info("Running garbage collection", "command", strings.Join(cmd, " "))

	result, err := e.ExecInContainer(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to run garbage collection: %w", err)
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("garbage collection exited with code %d: %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result, nil
}

// RestartRegistry restarts the registry container so it drops any cached
// state referring to deleted content.
func (e *Engine) RestartRegistry(ctx context.Context) error {
	timeout := e.stopTimeout
	logger.Info("Restarting registry container",
		"container", e.containerID,
		"stop_timeout", timeout)

	err := e.cli.ContainerRestart(ctx, e.containerID, container.StopOptions{Timeout: &timeout})
	if err != nil {
		return fmt.Errorf("failed to restart container %s: %w", e.containerID, err)
	}
	return nil
}

// ContainerStatus is a snapshot of the registry container.
type ContainerStatus struct {
	ID     string
	Name   string
	Image  string
	State  string
	Uptime string
}

func (e *Engine) Status(ctx context.Context) (*ContainerStatus, error) {
	info, err := e.cli.ContainerInspect(ctx, e.containerID)
	if err != nil {
		return nil, fmt.Errorf("cannot inspect container %s: %w", e.containerID, err)
	}
	return statusFromInspect(info), nil
}

// statusFromInspect flattens an inspect response. The engine may return a
// response without state, so that is reported rather than assumed.
func statusFromInspect(info container.InspectResponse) *ContainerStatus {
	status := &ContainerStatus{
		ID:    info.ID,
		Name:  strings.TrimPrefix(info.Name, "/"),
		State: "unknown",
	}
	if info.Config != nil {
		status.Image = info.Config.Image
	}
	if info.State == nil {
		return status
	}

	status.State = info.State.Status
	if info.State.Running {
		if started, err := time.Parse(time.RFC3339, info.State.StartedAt); err == nil {
			status.Uptime = formatDuration(time.Since(started))
		}
	}
	return status
}

// RegistryVersion reads the registry version off the container's image tag.
func (e *Engine) RegistryVersion(ctx context.Context) (*semver.Version, error) {
	info, err := e.cli.ContainerInspect(ctx, e.containerID)
	if err != nil {
		return nil, fmt.Errorf("cannot inspect container %s: %w", e.containerID, err)
	}
	if info.Config == nil {
		return nil, fmt.Errorf("container %s carries no image config", e.containerID)
	}
	return versionFromImageRef(info.Config.Image)
}

func versionFromImageRef(ref string) (*semver.Version, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return nil, fmt.Errorf("cannot parse image reference %q: %w", ref, err)
	}
	tagged, ok := named.(reference.Tagged)
	if !ok {
		return nil, fmt.Errorf("image reference %q carries no tag", ref)
	}
	version, err := semver.NewVersion(tagged.Tag())
	if err != nil {
		return nil, fmt.Errorf("image tag %q is not a version: %w", tagged.Tag(), err)
	}
	return version, nil
}

// CheckLayoutCompat warns when the registry version falls outside the range
// whose storage layout the fallback cleanup knows how to walk. Failure to
// determine the version is not an error; the check is advisory.
func (e *Engine) CheckLayoutCompat(ctx context.Context) {
	version, err := e.RegistryVersion(ctx)
	if err != nil {
		logger.Debug("Could not determine registry version", "error", err)
		return
	}
	if !storageLayoutRange.Check(version) {
		logger.Warn("Registry version is outside the supported storage layout range; fallback cleanup may remove the wrong paths",
			"version", version.String(),
			"supported", storageLayoutRange.String())
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
