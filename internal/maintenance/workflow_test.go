package maintenance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsamaha/docker-registry/internal/engine"
	"github.com/bsamaha/docker-registry/internal/registry"
)

const (
	digestA = digest.Digest("sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	digestB = digest.Digest("sha256:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

// fakeBackend implements both RegistryAPI and AdminEngine, recording every
// call in order so tests can assert on the exact operation sequence.
type fakeBackend struct {
	ops []string

	tags       map[string][]string      // repo -> tags; a missing repo means NotFound
	digests    map[string]digest.Digest // "repo:tag" -> digest
	resolveErr map[string]error
	deleteErr  map[digest.Digest]error
	removeErr  map[string]error
	listErr    map[string]error
	gcErr      error
	restartErr error
	pingErrs   []error // consumed one per Ping call
	pingDown   bool    // every Ping fails
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tags:       map[string][]string{},
		digests:    map[string]digest.Digest{},
		resolveErr: map[string]error{},
		deleteErr:  map[digest.Digest]error{},
		removeErr:  map[string]error{},
		listErr:    map[string]error{},
	}
}

func (f *fakeBackend) addTag(repo, tag string, dgst digest.Digest) {
	f.tags[repo] = append(f.tags[repo], tag)
	f.digests[repo+":"+tag] = dgst
}

func (f *fakeBackend) record(op string) {
	f.ops = append(f.ops, op)
}

// mutations filters the recorded operations down to the ones that change
// or probe the registry's content, dropping readiness pings and the
// layout advisory.
func (f *fakeBackend) mutations() []string {
	var out []string
	for _, op := range f.ops {
		if op == "ping" || op == "layout-check" {
			continue
		}
		out = append(out, op)
	}
	return out
}

func (f *fakeBackend) indexOf(op string) int {
	for i, o := range f.ops {
		if o == op {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) countOf(op string) int {
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ListTags(ctx context.Context, repo string) ([]string, error) {
	f.record("list-tags " + repo)
	if err := f.listErr[repo]; err != nil {
		return nil, err
	}
	tags, ok := f.tags[repo]
	if !ok {
		return nil, &registry.Error{Kind: registry.KindNotFound, Op: "list-tags", Detail: repo}
	}
	return append([]string{}, tags...), nil
}

func (f *fakeBackend) ResolveDigest(ctx context.Context, repo, tag string) (digest.Digest, error) {
	key := repo + ":" + tag
	f.record("resolve " + key)
	if err := f.resolveErr[key]; err != nil {
		return "", err
	}
	dgst, ok := f.digests[key]
	if !ok {
		return "", &registry.Error{Kind: registry.KindNotFound, Op: "resolve-digest", Detail: key}
	}
	return dgst, nil
}

// DeleteManifest mimics the registry's digest-delete semantics: every tag
// pointing at the digest is unlinked, not just the one that resolved it.
func (f *fakeBackend) DeleteManifest(ctx context.Context, repo string, dgst digest.Digest) error {
	f.record("delete " + repo + "@" + dgst.String())
	if err := f.deleteErr[dgst]; err != nil {
		return err
	}
	for key, d := range f.digests {
		if d != dgst || !strings.HasPrefix(key, repo+":") {
			continue
		}
		delete(f.digests, key)
		tag := strings.TrimPrefix(key, repo+":")
		kept := f.tags[repo][:0]
		for _, t := range f.tags[repo] {
			if t != tag {
				kept = append(kept, t)
			}
		}
		f.tags[repo] = kept
	}
	return nil
}

func (f *fakeBackend) Ping(ctx context.Context) error {
	f.record("ping")
	if f.pingDown {
		return errors.New("connection refused")
	}
	if len(f.pingErrs) > 0 {
		err := f.pingErrs[0]
		f.pingErrs = f.pingErrs[1:]
		return err
	}
	return nil
}

func (f *fakeBackend) RunGarbageCollect(ctx context.Context, deleteUntagged bool) (*engine.ExecResult, error) {
	if deleteUntagged {
		f.record("gc --delete-untagged")
	} else {
		f.record("gc")
	}
	if f.gcErr != nil {
		return &engine.ExecResult{ExitCode: 1, Stderr: "gc blew up"}, f.gcErr
	}
	return &engine.ExecResult{
		Stdout: "10 blobs marked, 2 blobs and 1 manifests eligible for deletion\n",
	}, nil
}

func (f *fakeBackend) RestartRegistry(ctx context.Context) error {
	f.record("restart")
	return f.restartErr
}

func (f *fakeBackend) RemoveStoragePath(ctx context.Context, target string) (*engine.ExecResult, error) {
	f.record("rm " + target)
	if err := f.removeErr[target]; err != nil {
		return nil, err
	}
	return &engine.ExecResult{}, nil
}

func (f *fakeBackend) RepoPath(repo string) string {
	return "/storage/repositories/" + repo
}

func (f *fakeBackend) TagPath(repo, tag string) string {
	return "/storage/repositories/" + repo + "/_manifests/tags/" + tag
}

func (f *fakeBackend) CheckLayoutCompat(ctx context.Context) {
	f.record("layout-check")
}

func newTestWorkflow(f *fakeBackend, opts Options) *Workflow {
	if opts.RestartWait == 0 {
		opts.RestartWait = 5 * time.Second
	}
	return NewWorkflow(f, f, opts)
}

func TestWorkflow_DeleteTag_HappyPath(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)
	require.Len(t, rep.Deletes, 1)

	del := rep.Deletes[0]
	assert.Equal(t, StateDone, del.State)
	assert.Equal(t, digestA, del.Digest)
	assert.False(t, del.Fallback)
	assert.Equal(t, 1, rep.GCRuns)
	assert.Equal(t, 1, rep.Restarts)
	assert.False(t, rep.Failed())

	assert.Equal(t, []string{
		"resolve myapp:v1",
		"list-tags myapp", // shared-digest scan
		"delete myapp@" + digestA.String(),
		"gc",
		"restart",
	}, f.mutations())

	// The tag no longer resolves once its manifest is gone
	_, err = f.ResolveDigest(context.Background(), "myapp", "v1")
	assert.True(t, registry.IsNotFound(err))
}

func TestWorkflow_DeleteTag_SharedDigestRefused(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.addTag("myapp", "stable", digestA)
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared with tags [stable]")
	assert.Contains(t, err.Error(), "--force")

	require.Len(t, rep.Deletes, 1)
	assert.Equal(t, StateFailed, rep.Deletes[0].State)
	assert.True(t, rep.Failed())

	// Nothing was mutated
	assert.Equal(t, -1, f.indexOf("delete myapp@"+digestA.String()))
	assert.Equal(t, -1, f.indexOf("gc"))
	assert.Equal(t, -1, f.indexOf("restart"))
	assert.Len(t, f.digests, 2)
}

func TestWorkflow_DeleteTag_ForceOverridesSharedDigest(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.addTag("myapp", "stable", digestA)
	w := newTestWorkflow(f, Options{Force: true})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, rep.Deletes[0].State)

	// The scan is skipped entirely under --force
	assert.Equal(t, -1, f.indexOf("list-tags myapp"))
	// Deleting the shared digest unlinked both tags
	assert.Empty(t, f.digests)
}

func TestWorkflow_DeleteTag_ResolveFailureFallsBack(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.resolveErr["myapp:v1"] = &registry.Error{Kind: registry.KindDigestNotFound, Op: "resolve-digest"}
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)

	del := rep.Deletes[0]
	assert.Equal(t, StateDone, del.State, "fallback success ends in done, not failed")
	assert.True(t, del.Fallback)
	assert.Empty(t, del.Digest)

	assert.Equal(t, []string{
		"resolve myapp:v1",
		"rm /storage/repositories/myapp/_manifests/tags/v1",
		"gc",
		"restart",
	}, f.mutations())
	assert.Equal(t, 1, f.countOf("layout-check"))
}

func TestWorkflow_DeleteTag_DeleteRejectedFallsBack(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.deleteErr[digestA] = &registry.Error{
		Kind:   registry.KindDeleteRejected,
		Op:     "delete-manifest",
		Detail: "status 405: delete disabled",
	}
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)

	del := rep.Deletes[0]
	assert.Equal(t, StateDone, del.State)
	assert.True(t, del.Fallback)

	assert.Equal(t, []string{
		"resolve myapp:v1",
		"list-tags myapp",
		"delete myapp@" + digestA.String(),
		"rm /storage/repositories/myapp/_manifests/tags/v1",
		"gc",
		"restart",
	}, f.mutations())
}

func TestWorkflow_DeleteTag_FallbackFailureIsTerminal(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.resolveErr["myapp:v1"] = &registry.Error{Kind: registry.KindDigestNotFound, Op: "resolve-digest"}
	f.removeErr["/storage/repositories/myapp/_manifests/tags/v1"] = errors.New("rm: permission denied")
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback cleanup failed")
	assert.Contains(t, err.Error(), "permission denied")
	assert.True(t, registry.IsFallbackFailed(err))

	assert.Equal(t, StateFailed, rep.Deletes[0].State)
	// No collection or restart after a failed deletion
	assert.Equal(t, -1, f.indexOf("gc"))
	assert.Equal(t, -1, f.indexOf("restart"))
}

func TestWorkflow_DeleteRepository_TagByTag(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.addTag("myapp", "v2", digestB)
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteRepository(context.Background(), "myapp")
	require.NoError(t, err)
	require.Len(t, rep.Deletes, 2)
	assert.Equal(t, StateDone, rep.Deletes[0].State)
	assert.Equal(t, StateDone, rep.Deletes[1].State)
	assert.Equal(t, 2, rep.GCRuns)
	assert.Equal(t, 2, rep.Restarts)

	// Each tag runs its full workflow, including collection and restart,
	// before the next tag begins
	assert.Equal(t, []string{
		"list-tags myapp",
		"resolve myapp:v1",
		"delete myapp@" + digestA.String(),
		"gc",
		"restart",
		"resolve myapp:v2",
		"delete myapp@" + digestB.String(),
		"gc",
		"restart",
	}, f.mutations())

	// A restart never precedes a collection attempt
	assert.Greater(t, f.indexOf("restart"), f.indexOf("gc"))
}

func TestWorkflow_DeleteRepository_EmptyGoesStraightToFallback(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeBackend)
	}{
		{name: "empty tag list", setup: func(f *fakeBackend) { f.tags["myapp"] = []string{} }},
		{name: "unknown repository", setup: func(f *fakeBackend) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend()
			tt.setup(f)
			w := newTestWorkflow(f, Options{})

			rep, err := w.DeleteRepository(context.Background(), "myapp")
			require.NoError(t, err)
			require.Len(t, rep.Deletes, 1)

			del := rep.Deletes[0]
			assert.Equal(t, StateDone, del.State)
			assert.True(t, del.Fallback)
			assert.Empty(t, del.Tag)
			assert.Equal(t, "myapp", del.Target())

			assert.Equal(t, []string{
				"list-tags myapp",
				"rm /storage/repositories/myapp",
				"gc",
				"restart",
			}, f.mutations())
		})
	}
}

func TestWorkflow_DeleteRepository_StopsOnFailedTag(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.addTag("myapp", "v2", digestB)
	f.resolveErr["myapp:v1"] = &registry.Error{Kind: registry.KindDigestNotFound, Op: "resolve-digest"}
	f.removeErr["/storage/repositories/myapp/_manifests/tags/v1"] = errors.New("device busy")
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteRepository(context.Background(), "myapp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myapp:v1")
	assert.True(t, registry.IsFallbackFailed(err))

	require.Len(t, rep.Deletes, 1)
	assert.Equal(t, -1, f.indexOf("resolve myapp:v2"), "later tags are not attempted after a terminal failure")
}

func TestWorkflow_GarbageCollect(t *testing.T) {
	f := newFakeBackend()
	w := newTestWorkflow(f, Options{})

	rep, err := w.GarbageCollect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.GCRuns)
	assert.Equal(t, 1, rep.Restarts)
	assert.Contains(t, rep.GCOutput, "eligible for deletion")

	assert.Equal(t, []string{"gc", "restart"}, f.mutations())
	assert.GreaterOrEqual(t, f.countOf("ping"), 1, "readiness is polled after the restart")
}

func TestWorkflow_GarbageCollect_DeleteUntagged(t *testing.T) {
	f := newFakeBackend()
	w := newTestWorkflow(f, Options{DeleteUntagged: true})

	_, err := w.GarbageCollect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gc --delete-untagged", "restart"}, f.mutations())
}

func TestWorkflow_GCFailureStillRestarts(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.gcErr = errors.New("filesystem: read-only")
	w := newTestWorkflow(f, Options{Force: true})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Equal(t, StateFailed, rep.Deletes[0].State)

	// The restart still follows the failed collection attempt
	assert.Greater(t, f.indexOf("restart"), f.indexOf("gc"))
}

func TestWorkflow_RestartWaitsForReadiness(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.pingErrs = []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
	}
	w := newTestWorkflow(f, Options{Force: true, RestartWait: 10 * time.Second})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, rep.Deletes[0].State)
	assert.Equal(t, 3, f.countOf("ping"))
}

func TestWorkflow_RestartReadinessTimeout(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.pingDown = true
	w := newTestWorkflow(f, Options{Force: true, RestartWait: time.Millisecond})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not answer")
	assert.Equal(t, StateFailed, rep.Deletes[0].State)
}

func TestWorkflow_DryRunMutatesNothing(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.addTag("myapp", "v2", digestB)
	w := newTestWorkflow(f, Options{DryRun: true})

	rep, err := w.DeleteRepository(context.Background(), "myapp")
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Equal(t, StateDone, rep.Deletes[0].State)
	assert.Equal(t, StateDone, rep.Deletes[1].State)
	assert.Equal(t, 0, rep.GCRuns)
	assert.Equal(t, 0, rep.Restarts)

	for _, op := range f.ops {
		if strings.HasPrefix(op, "delete") || strings.HasPrefix(op, "rm") ||
			strings.HasPrefix(op, "gc") || op == "restart" {
			t.Fatalf("dry run performed mutation %q", op)
		}
	}
	assert.Len(t, f.digests, 2)
}

func TestWorkflow_TransitionsAreRecorded(t *testing.T) {
	f := newFakeBackend()
	f.addTag("myapp", "v1", digestA)
	f.resolveErr["myapp:v1"] = &registry.Error{Kind: registry.KindDigestNotFound, Op: "resolve-digest"}
	w := newTestWorkflow(f, Options{})

	rep, err := w.DeleteTag(context.Background(), "myapp", "v1")
	require.NoError(t, err)

	var states []State
	for _, tr := range rep.Deletes[0].Transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateFallbackCleanup, StateRunningGC, StateDone}, states)
	assert.NotEmpty(t, rep.Deletes[0].Transitions[0].Reason, "failure-driven transitions carry a reason")
	assert.NotEmpty(t, rep.RunID)
}
