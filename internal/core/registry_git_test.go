package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portresolve/internal/types"
)

func TestGitRegistry_GetPortAnsweredFromStaleCacheWithoutNetwork(t *testing.T) {
	staleCommit := strings40("1")
	tree := strings40("2")
	fs := newFakeFS(map[string]string{
		"portresolve.lock": `entries:
  - repo: https://example.com/registry
    reference: HEAD
    commit: ` + staleCommit + `
`,
	})
	git := newFakeGit()
	git.showContents[staleCommit+":versions/z-/zlib.json@repo-cache"] = `{"versions": [{"version": "1.3", "git-tree": "` + tree + `"}]}`
	git.extractedTrees[tree] = "/cache/trees/" + tree

	lf, err := LoadLockFile(fs, git, "portresolve.lock")
	require.NoError(t, err)

	telemetry := newFakeTelemetry()
	reg := NewGitRegistry(fs, git, lf, telemetry, "https://example.com/registry", "HEAD", strings40("f"), "repo-cache")

	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "1.3"}})
	require.NoError(t, err)
	require.NotNil(t, loc)
	require.Equal(t, "/cache/trees/"+tree, loc.Path)
	require.Equal(t, 0, git.fetchCalls, "an answer from the stale cache must not touch the network")
}

func TestGitRegistry_GetPortFallsBackToLiveRefresh(t *testing.T) {
	staleCommit := strings40("1")
	liveCommit := strings40("3")
	tree := strings40("4")
	fs := newFakeFS(map[string]string{
		"portresolve.lock": `entries:
  - repo: https://example.com/registry
    reference: HEAD
    commit: ` + staleCommit + `
`,
	})
	git := newFakeGit()
	// The stale commit has no entry for zlib at all.
	git.fetchCommits["https://example.com/registry@HEAD"] = liveCommit
	git.showContents[liveCommit+":versions/z-/zlib.json@repo-cache"] = `{"versions": [{"version": "1.4", "git-tree": "` + tree + `"}]}`
	git.extractedTrees[tree] = "/cache/trees/" + tree

	lf, err := LoadLockFile(fs, git, "portresolve.lock")
	require.NoError(t, err)

	telemetry := newFakeTelemetry()
	reg := NewGitRegistry(fs, git, lf, telemetry, "https://example.com/registry", "HEAD", strings40("f"), "repo-cache")

	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "1.4"}})
	require.NoError(t, err)
	require.NotNil(t, loc)
	require.Equal(t, "/cache/trees/"+tree, loc.Path)
	require.Equal(t, 1, git.fetchCalls)
}

func TestGitRegistry_GetBaselineVersionRejectsNonCommitRef(t *testing.T) {
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	lf := NewLockFile(git)
	telemetry := newFakeTelemetry()
	reg := NewGitRegistry(fs, git, lf, telemetry, "repo", "HEAD", "not-a-commit-sha", "repo-cache")

	_, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)
}

func TestGitRegistry_GetBaselineVersionEscalatesThenFails(t *testing.T) {
	baseline := strings40("5")
	freshCommit := strings40("6")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	// The lockfile refresh succeeds, but the baseline content is never
	// present at the pinned commit under either fetch strategy.
	git.fetchCommits["repo@HEAD"] = freshCommit
	git.fetchCommits["repo@"+baseline] = baseline

	lf := NewLockFile(git)
	telemetry := newFakeTelemetry()
	reg := NewGitRegistry(fs, git, lf, telemetry, "repo", "HEAD", baseline, "repo-cache")

	_, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)
	require.Equal(t, 1, telemetry.counts["git-registry.baseline-offline-miss"])
	require.Equal(t, 1, telemetry.counts["git-registry.baseline-fetch-miss"])
	require.Equal(t, 1, telemetry.counts["git-registry.baseline-fetch-failed"])

	// Sticky failure: a second call must not re-touch the network.
	fetchesBefore := git.fetchCalls
	_, err = reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)
	require.Equal(t, fetchesBefore, git.fetchCalls)
}

func TestGitRegistry_GetBaselineVersionSucceedsOffline(t *testing.T) {
	baseline := strings40("5")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	git.showContents[baseline+":versions/baseline.json@repo-cache"] = `{"default": {"zlib": {"version": "1.3"}}}`

	lf := NewLockFile(git)
	telemetry := newFakeTelemetry()
	reg := NewGitRegistry(fs, git, lf, telemetry, "repo", "HEAD", baseline, "repo-cache")

	v, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, &types.Version{Upstream: "1.3"}, v)
	require.Equal(t, 0, telemetry.counts["git-registry.baseline-offline-miss"])
	require.Equal(t, 0, git.fetchCalls)

	// Sticky success: a second call must not re-touch the network.
	v2, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, v, v2)
	require.Equal(t, 0, git.fetchCalls)
}

func TestGitRegistry_AppendAllPortNamesIsUnsupported(t *testing.T) {
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	lf := NewLockFile(git)
	reg := NewGitRegistry(fs, git, lf, newFakeTelemetry(), "repo", "HEAD", strings40("f"), "repo-cache")

	var names []string
	require.Error(t, reg.AppendAllPortNames(context.Background(), &names))

	ok, err := reg.TryAppendAllPortNamesNoNetwork(context.Background(), &names)
	require.NoError(t, err)
	require.False(t, ok)
}
