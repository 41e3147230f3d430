package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/rand"

	"github.com/bsamaha/docker-registry/pkg/logger"
)

const readyPollInterval = 500 * time.Millisecond

// gcAndRestart runs the garbage collector and then restarts the registry.
// The restart follows every collection attempt, successful or not, because
// the server holds deleted content in memory and file handles until it
// cycles. After the restart the registry is polled until it answers again.
func (w *Workflow) gcAndRestart(ctx context.Context, rep *Report) error {
	if w.opts.DryRun {
		logger.Info("Dry run: would run garbage collection",
			"delete_untagged", w.opts.DeleteUntagged)
		logger.Info("Dry run: would restart the registry container")
		return nil
	}

	result, gcErr := w.engine.RunGarbageCollect(ctx, w.opts.DeleteUntagged)
	rep.GCRuns++
	if result != nil {
		rep.GCOutput = result.Stdout
		if line := gcSummary(result.Stdout); line != "" {
			logger.Info("Garbage collection finished", "summary", line)
		}
	}
	if gcErr != nil {
		logger.Error("Garbage collection failed", "error", gcErr)
	}

	restartErr := w.engine.RestartRegistry(ctx)
	rep.Restarts++
	if restartErr == nil {
		restartErr = w.awaitReady(ctx)
	}

	if gcErr != nil && restartErr != nil {
		return fmt.Errorf("garbage collection failed (%v) and the registry did not recover: %w", gcErr, restartErr)
	}
	if gcErr != nil {
		return gcErr
	}
	return restartErr
}

// awaitReady polls the registry until it answers again after a restart,
// bounded by the configured wait. The poll interval carries jitter so the
// probes do not land in lockstep with the server's startup.
func (w *Workflow) awaitReady(ctx context.Context) error {
	deadline := time.Now().Add(w.opts.RestartWait)

	for attempt := 1; ; attempt++ {
		err := w.api.Ping(ctx)
		if err == nil {
			logger.Debug("Registry is answering again", "attempts", attempt)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("registry did not answer within %s after restart: %w",
				w.opts.RestartWait, err)
		}

		jitter := time.Duration(rand.Int63n(int64(readyPollInterval) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval + jitter):
		}
	}
}

// gcSummary picks the collector's mark summary line out of its output.
func gcSummary(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, "eligible for deletion") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
