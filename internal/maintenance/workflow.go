// Package maintenance composes registry API calls and container engine
// operations into the deletion and garbage collection workflows. Every
// workflow is strictly sequential: garbage collection and restarts are
// disruptive operations against a single server process, so nothing here
// runs concurrently with anything else.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/bsamaha/docker-registry/internal/engine"
	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/bsamaha/docker-registry/pkg/logger"
)

// RegistryAPI is the slice of the registry client the workflows consume.
type RegistryAPI interface {
	ListTags(ctx context.Context, repo string) ([]string, error)
	ResolveDigest(ctx context.Context, repo, tag string) (digest.Digest, error)
	DeleteManifest(ctx context.Context, repo string, dgst digest.Digest) error
	Ping(ctx context.Context) error
}

// AdminEngine is the slice of the container engine the workflows consume.
type AdminEngine interface {
	RunGarbageCollect(ctx context.Context, deleteUntagged bool) (*engine.ExecResult, error)
	RestartRegistry(ctx context.Context) error
	RemoveStoragePath(ctx context.Context, target string) (*engine.ExecResult, error)
	RepoPath(repo string) string
	TagPath(repo, tag string) string
	CheckLayoutCompat(ctx context.Context)
}

var (
	_ RegistryAPI = (*registry.Client)(nil)
	_ AdminEngine = (*engine.Engine)(nil)
)

// Options tunes a maintenance run. The zero value is a live run with the
// shared-digest safety check enabled.
type Options struct {
	// DryRun logs every mutation instead of performing it.
	DryRun bool
	// Force skips the shared-digest refusal on single-tag deletes.
	Force bool
	// DeleteUntagged passes --delete-untagged to the garbage collector.
	DeleteUntagged bool
	// RestartWait bounds the wait for the registry to answer again after
	// a restart.
	RestartWait time.Duration
}

// Workflow drives maintenance operations against one registry instance.
type Workflow struct {
	api           RegistryAPI
	engine        AdminEngine
	opts          Options
	layoutChecked bool
}

func NewWorkflow(api RegistryAPI, eng AdminEngine, opts Options) *Workflow {
	if opts.RestartWait <= 0 {
		opts.RestartWait = 60 * time.Second
	}
	return &Workflow{api: api, engine: eng, opts: opts}
}

// DeleteTag removes a single tag: resolve its digest, delete the manifest,
// fall back to storage cleanup when the API path fails, then garbage
// collect and restart the registry.
func (w *Workflow) DeleteTag(ctx context.Context, repo, tag string) (*Report, error) {
	rep := newReport(w.opts.DryRun)
	defer rep.finish()

	del := w.runTagWorkflow(ctx, rep, repo, tag, true)
	rep.Deletes = append(rep.Deletes, del)
	if del.State == StateFailed {
		return rep, del.Err
	}
	return rep, nil
}

// DeleteRepository removes a whole repository. A repository with tags is
// deleted tag by tag, each tag running the full delete workflow including
// its own garbage collection and restart, one after another. A repository
// whose tag list is empty or absent has no manifests to delete through the
// API, so its storage directory is removed outright.
func (w *Workflow) DeleteRepository(ctx context.Context, repo string) (*Report, error) {
	rep := newReport(w.opts.DryRun)
	defer rep.finish()

	tags, err := w.api.ListTags(ctx, repo)
	switch {
	case err == nil && len(tags) > 0:
		// handled below
	case err == nil || registry.IsNotFound(err):
		logger.Info("Repository has no tags, removing its storage directory",
			"repository", repo)
		del := w.runRepoFallback(ctx, rep, repo)
		rep.Deletes = append(rep.Deletes, del)
		if del.State == StateFailed {
			return rep, del.Err
		}
		return rep, nil
	default:
		return rep, fmt.Errorf("failed to list tags for %s: %w", repo, err)
	}

	logger.Info("Deleting repository tag by tag",
		"repository", repo,
		"tags", len(tags),
		"dry_run", w.opts.DryRun)

	for _, tag := range tags {
		del := w.runTagWorkflow(ctx, rep, repo, tag, false)
		rep.Deletes = append(rep.Deletes, del)
		if del.State == StateFailed {
			return rep, fmt.Errorf("deleting %s:%s failed: %w", repo, tag, del.Err)
		}
	}
	return rep, nil
}

// GarbageCollect runs the collector and restarts the registry without
// deleting anything first.
func (w *Workflow) GarbageCollect(ctx context.Context) (*Report, error) {
	rep := newReport(w.opts.DryRun)
	defer rep.finish()

	if err := w.gcAndRestart(ctx, rep); err != nil {
		return rep, err
	}
	return rep, nil
}
