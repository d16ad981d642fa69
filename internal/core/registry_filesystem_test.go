package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portresolve/internal/types"
)

func TestFilesystemRegistry_GetPortResolvesLocatorAgainstRoot(t *testing.T) {
	fs := newFakeFS(map[string]string{
		"registry/versions/z-/zlib.json": `{"versions": [{"version": "1.3", "path": "$/ports/zlib"}]}`,
	})
	reg := NewFilesystemRegistry(fs, newFakeGit(), "registry", "")

	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "1.3"}})
	require.NoError(t, err)
	require.NotNil(t, loc)
	require.Equal(t, "registry/ports/zlib", loc.Path)
}

func TestFilesystemRegistry_UnknownPortReturnsNil(t *testing.T) {
	fs := newFakeFS(map[string]string{})
	reg := NewFilesystemRegistry(fs, newFakeGit(), "registry", "")

	loc, err := reg.GetPort(context.Background(), types.VersionSpec{PortName: "zlib", Version: types.Version{Upstream: "1.3"}})
	require.NoError(t, err)
	require.Nil(t, loc)
}

func TestFilesystemRegistry_GetBaselineVersionFromLocalFile(t *testing.T) {
	fs := newFakeFS(map[string]string{
		"registry/versions/baseline.json": `{"default": {"zlib": {"version": "1.3"}}}`,
	})
	reg := NewFilesystemRegistry(fs, newFakeGit(), "registry", "")

	v, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, &types.Version{Upstream: "1.3"}, v)
}

func TestFilesystemRegistry_GetBaselineVersionPinnedByCommit(t *testing.T) {
	commit := strings40("c")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	git.showContents[commit+":versions/baseline.json@registry"] = `{"default": {"zlib": {"version": "1.4"}}}`
	reg := NewFilesystemRegistry(fs, git, "registry", commit)

	v, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.NoError(t, err)
	require.Equal(t, &types.Version{Upstream: "1.4"}, v)
}

func TestFilesystemRegistry_GetBaselineVersionCachesLocalFileFailure(t *testing.T) {
	fs := newFakeFS(map[string]string{
		"registry/versions/baseline.json": `not json`,
	})
	reg := NewFilesystemRegistry(fs, newFakeGit(), "registry", "")

	_, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)

	// Fixing the content after the fact must not un-stick the cache:
	// the later call fails again instead of re-reading the file.
	fs.files["registry/versions/baseline.json"] = `{"default": {"zlib": {"version": "1.3"}}}`
	_, err2 := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err2)
}

func TestFilesystemRegistry_GetBaselineVersionCachesPinnedCommitFailure(t *testing.T) {
	commit := strings40("c")
	fs := newFakeFS(map[string]string{})
	git := newFakeGit()
	reg := NewFilesystemRegistry(fs, git, "registry", commit)

	_, err := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err)

	git.showContents[commit+":versions/baseline.json@registry"] = `{"default": {"zlib": {"version": "1.4"}}}`
	_, err2 := reg.GetBaselineVersion(context.Background(), "zlib")
	require.Error(t, err2)
}

func TestFilesystemRegistry_TryAppendAllPortNamesNoNetwork(t *testing.T) {
	fs := newFakeFS(map[string]string{
		"registry/versions/z-/zlib.json":  `{"versions": []}`,
		"registry/versions/b-/boost.json": `{"versions": []}`,
	})
	reg := NewFilesystemRegistry(fs, newFakeGit(), "registry", "")

	var names []string
	ok, err := reg.TryAppendAllPortNamesNoNetwork(context.Background(), &names)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"boost", "zlib"}, names)
}
