package ports

import "context"

// GitPort is the Git collaborator consumed by the Git and BuiltinGit
// registry backends. All operations are synchronous; ctx is honored
// for cancellation only, matching the core's cooperative,
// single-threaded scheduling model.
type GitPort interface {
	// Fetch updates the local mirror of repo and returns the commit
	// SHA that reference currently resolves to.
	Fetch(ctx context.Context, repo string, reference string) (commitSHA string, err error)

	// Show returns the content of treeish (typically "<sha>:versions/baseline.json")
	// from repoDir's local object database, without touching the network.
	Show(ctx context.Context, treeish string, repoDir string) (string, error)

	// ExtractTree checks a bare tree object out into a content-addressed
	// cache directory and returns its path.
	ExtractTree(ctx context.Context, treeID string) (path string, err error)

	// FindObjectIDForRemotePath resolves the tree object ID of subdir
	// as it exists at commit, without a checkout.
	FindObjectIDForRemotePath(ctx context.Context, commit string, subdir string) (treeID string, err error)

	// CheckoutPort checks out a single port's tree into repoDir and
	// returns the resulting path.
	CheckoutPort(ctx context.Context, name string, treeID string, repoDir string) (path string, err error)

	// MirrorPath deterministically derives the local directory a
	// mirror of repo would live in, with no I/O and no dependency on
	// anything having been fetched yet. Callers that know which repo
	// they're asking about (e.g. a registry backend bound to a single
	// repo for its lifetime) use this to give Show a stable directory
	// instead of relying on whatever this GitPort last fetched.
	MirrorPath(repo string) string
}
