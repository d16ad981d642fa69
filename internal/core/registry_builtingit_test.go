package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portresolve/internal/types"
)

func TestBuiltinGitRegistry_GetPortFromVersionsIndex(t *testing.T) {
	tree := strings40("a")
	fs := newFakeFS(map[string]string{
		"repo/versions/z-/zlib.json": `{"versions": [{"version": "1.3", "git-tree": "` + tree + `"}]}`,
	})
	git := newFakeGit()
	git.extractedTrees[tree] = "/cache/trees/" + tree

	reg := NewBuiltinGitRegistry(fs, newFakeManifest(nil), git, "repo", strings40("c"))
	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "1.3"}})
	require.NoError(t, err)
	require.NotNil(t, loc)
	require.Equal(t, "/cache/trees/"+tree, loc.Path)
}

func TestBuiltinGitRegistry_UnknownVersionListsKnown(t *testing.T) {
	tree := strings40("a")
	fs := newFakeFS(map[string]string{
		"repo/versions/z-/zlib.json": `{"versions": [{"version": "1.3", "git-tree": "` + tree + `"}]}`,
	})
	git := newFakeGit()
	reg := NewBuiltinGitRegistry(fs, newFakeManifest(nil), git, "repo", strings40("c"))

	_, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "9.9"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1.3")
}

func TestBuiltinGitRegistry_FallsThroughToDelegateWhenNoVersionsFile(t *testing.T) {
	fs := newFakeFS(map[string]string{
		"repo/ports/newport/vcpkg.json": `{}`,
	})
	manifest := newFakeManifest(map[string]types.SourceControlFile{
		"repo/ports/newport": {Name: "newport", Version: types.Version{Upstream: "0.1"}},
	})
	git := newFakeGit()
	reg := NewBuiltinGitRegistry(fs, manifest, git, "repo", strings40("c"))

	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "newport", Version: types.Version{Upstream: "0.1"}})
	require.NoError(t, err)
	require.NotNil(t, loc)
	require.Equal(t, "repo/ports/newport", loc.Path)
}

func TestBuiltinGitRegistry_GetBaselineVersionCachesOnce(t *testing.T) {
	commit := strings40("c")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	git.showContents[commit+":versions/baseline.json@repo"] = `{"default": {"zlib": {"version": "1.3"}}}`

	reg := NewBuiltinGitRegistry(fs, newFakeManifest(nil), git, "repo", commit)
	v, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, &types.Version{Upstream: "1.3"}, v)

	// Delete the backing content: cached result must still be returned.
	delete(git.showContents, commit+":versions/baseline.json@repo")
	v2, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, v, v2)
}

func TestBuiltinGitRegistry_GetBaselineVersionCachesFailure(t *testing.T) {
	commit := strings40("c")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	reg := NewBuiltinGitRegistry(fs, newFakeManifest(nil), git, "repo", commit)

	_, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)

	// Populate the content after the fact: the sticky failure must still
	// be re-raised rather than silently answering (nil, nil).
	git.showContents[commit+":versions/baseline.json@repo"] = `{"default": {"zlib": {"version": "1.3"}}}`
	_, err2 := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err2)
}
