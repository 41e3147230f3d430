package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/bsamaha/docker-registry/pkg/logger"
)

// runTagWorkflow walks one tag through the delete state machine. The
// shared-digest check only applies to single-tag deletes; a repository
// delete removes every tag anyway, so checkShared is false there.
func (w *Workflow) runTagWorkflow(ctx context.Context, rep *Report, repo, tag string, checkShared bool) *DeleteReport {
	del := &DeleteReport{Repository: repo, Tag: tag, State: StateResolvingDigest}
	logger.Info("Deleting tag",
		"repository", repo,
		"tag", tag,
		"dry_run", w.opts.DryRun)

	dgst, err := w.api.ResolveDigest(ctx, repo, tag)
	if err == nil {
		del.Digest = dgst
		del.transition(StateDeleting, "")
	} else {
		logger.Warn("Digest resolution failed, falling back to storage cleanup",
			"repository", repo,
			"tag", tag,
			"error", err)
		del.transition(StateFallbackCleanup, err.Error())
	}

	if del.State == StateDeleting {
		if checkShared && !w.opts.Force && w.refuseSharedDigest(ctx, del) {
			return del
		}
		if w.opts.DryRun {
			logger.Info("Dry run: would delete manifest",
				"repository", repo,
				"digest", del.Digest.String())
			del.transition(StateRunningGC, "")
		} else if err := w.api.DeleteManifest(ctx, repo, del.Digest); err == nil {
			logger.Info("Manifest deleted",
				"repository", repo,
				"digest", del.Digest.String())
			del.transition(StateRunningGC, "")
		} else {
			logger.Warn("Manifest delete rejected, falling back to storage cleanup",
				"repository", repo,
				"tag", tag,
				"error", err)
			del.transition(StateFallbackCleanup, err.Error())
		}
	}

	if del.State == StateFallbackCleanup {
		del.Fallback = true
		if !w.removeStorage(ctx, del, w.engine.TagPath(repo, tag)) {
			return del
		}
	}

	if err := w.gcAndRestart(ctx, rep); err != nil {
		del.Err = fmt.Errorf("maintenance after deleting %s:%s failed: %w", repo, tag, err)
		del.transition(StateFailed, err.Error())
		return del
	}
	del.transition(StateDone, "")
	return del
}

// runRepoFallback removes a whole repository directory from storage, then
// garbage collects. Used when the repository has no tags to walk.
func (w *Workflow) runRepoFallback(ctx context.Context, rep *Report, repo string) *DeleteReport {
	del := &DeleteReport{Repository: repo, State: StateFallbackCleanup, Fallback: true}

	if !w.removeStorage(ctx, del, w.engine.RepoPath(repo)) {
		return del
	}
	if err := w.gcAndRestart(ctx, rep); err != nil {
		del.Err = fmt.Errorf("maintenance after removing %s failed: %w", repo, err)
		del.transition(StateFailed, err.Error())
		return del
	}
	del.transition(StateDone, "")
	return del
}

// removeStorage performs the fallback cleanup for one target path. It
// reports whether the workflow may continue into garbage collection.
func (w *Workflow) removeStorage(ctx context.Context, del *DeleteReport, target string) bool {
	if !w.layoutChecked {
		// The storage layout is version-coupled; warn once per run
		w.engine.CheckLayoutCompat(ctx)
		w.layoutChecked = true
	}

	if w.opts.DryRun {
		logger.Info("Dry run: would remove storage path", "path", target)
		del.transition(StateRunningGC, "")
		return true
	}

	if res, err := w.engine.RemoveStoragePath(ctx, target); err != nil {
		detail := target
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			detail += ": " + strings.TrimSpace(res.Stderr)
		}
		del.Err = fmt.Errorf("fallback cleanup failed for %s: %w", del.Target(), &registry.Error{
			Kind:   registry.KindFallbackFailed,
			Op:     "fallback-cleanup",
			Detail: detail,
			Err:    err,
		})
		del.transition(StateFailed, err.Error())
		return false
	}
	logger.Info("Storage path removed", "path", target)
	del.transition(StateRunningGC, "")
	return true
}

// refuseSharedDigest scans the repository's other tags for ones resolving
// to the same digest. Deleting a manifest by digest unlinks every tag that
// points to it, so a shared digest turns a single-tag delete into a wider
// removal than asked for. When the scan itself fails the delete proceeds
// with a warning; verification is best effort.
func (w *Workflow) refuseSharedDigest(ctx context.Context, del *DeleteReport) bool {
	shared, err := w.sharedTags(ctx, del.Repository, del.Tag, del.Digest)
	if err != nil {
		logger.Warn("Could not verify digest sharing before delete",
			"repository", del.Repository,
			"tag", del.Tag,
			"error", err)
		return false
	}
	if len(shared) == 0 {
		return false
	}

	del.Err = fmt.Errorf("digest %s is shared with tags [%s]; deleting it would unlink them too (use --force to override)",
		del.Digest, strings.Join(shared, ", "))
	del.transition(StateFailed, "shared digest")
	return true
}

func (w *Workflow) sharedTags(ctx context.Context, repo, tag string, dgst digest.Digest) ([]string, error) {
	tags, err := w.api.ListTags(ctx, repo)
	if err != nil {
		return nil, err
	}

	var shared []string
	for _, other := range tags {
		if other == tag {
			continue
		}
		otherDigest, err := w.api.ResolveDigest(ctx, repo, other)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve digest for %s:%s: %w", repo, other, err)
		}
		if otherDigest == dgst {
			shared = append(shared, other)
		}
	}
	return shared, nil
}
