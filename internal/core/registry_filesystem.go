package core

import (
	"context"
	"path"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// FilesystemRegistry is like BuiltinGitRegistry but every locator is
// already a filesystem path, so no Git checkout is required.
type FilesystemRegistry struct {
	fs  ports.FileSystemPort
	git ports.GitPort

	registryRoot   string
	baselineCommit string // optional: non-empty pins the baseline to a commit via git show

	baseline      *types.Baseline
	baselineTried bool
}

func NewFilesystemRegistry(fs ports.FileSystemPort, git ports.GitPort, registryRoot string, baselineCommit string) *FilesystemRegistry {
	return &FilesystemRegistry{fs: fs, git: git, registryRoot: registryRoot, baselineCommit: baselineCommit}
}

func (r *FilesystemRegistry) versionsRoot() string {
	return path.Join(r.registryRoot, "versions")
}

// baselineIdentifier names whichever baseline source loadBaseline last
// tried, for the sticky-error message: the pinned commit when one was
// configured, otherwise the local baseline file itself.
func (r *FilesystemRegistry) baselineIdentifier() string {
	if r.baselineCommit != "" {
		return r.baselineCommit
	}
	return path.Join(r.versionsRoot(), "baseline.json")
}

func (r *FilesystemRegistry) GetPort(ctx context.Context, spec types.VersionSpec) (*types.PathAndLocation, error) {
	idx, err := LoadVersions(ctx, r.fs, types.RegistryKindFilesystem, r.versionsRoot(), spec.PortName, r.registryRoot)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	entry, ok := idx.Find(spec.Version)
	if !ok {
		return nil, notInVersionsError(spec.PortName, spec.Version, idx.Versions)
	}
	return &types.PathAndLocation{
		Path:     entry.Locator,
		Location: "fs+" + r.registryRoot + "@" + entry.Locator,
	}, nil
}

func (r *FilesystemRegistry) GetAllPortVersions(ctx context.Context, name string) ([]types.Version, error) {
	idx, err := LoadVersions(ctx, r.fs, types.RegistryKindFilesystem, r.versionsRoot(), name, r.registryRoot)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	return idx.Versions, nil
}

func (r *FilesystemRegistry) GetBaselineVersion(ctx context.Context, name string) (*types.Version, error) {
	baseline, err := r.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, nil
	}
	version, ok := (*baseline)[name]
	if !ok {
		return nil, nil
	}
	return &version, nil
}

func (r *FilesystemRegistry) loadBaseline(ctx context.Context) (*types.Baseline, error) {
	if r.baselineTried {
		if r.baseline == nil {
			return nil, baselineLoadError(r.baselineIdentifier())
		}
		return r.baseline, nil
	}
	r.baselineTried = true

	if r.baselineCommit == "" {
		baseline, err := LoadBaseline(r.fs, path.Join(r.versionsRoot(), "baseline.json"), "default")
		if err != nil {
			return nil, err
		}
		r.baseline = &baseline
		return r.baseline, nil
	}

	treeish := r.baselineCommit + ":versions/baseline.json"
	content, err := r.git.Show(ctx, treeish, r.registryRoot)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read baseline at " + r.baselineCommit).
			WithCause(err)
	}
	baseline, err := ParseBaselineContent(content, treeish, "default")
	if err != nil {
		return nil, err
	}
	r.baseline = &baseline
	return r.baseline, nil
}

func (r *FilesystemRegistry) AppendAllPortNames(ctx context.Context, out *[]string) error {
	_, err := r.TryAppendAllPortNamesNoNetwork(ctx, out)
	return err
}

func (r *FilesystemRegistry) TryAppendAllPortNamesNoNetwork(_ context.Context, out *[]string) (bool, error) {
	entries, err := r.fs.ReadDir(r.versionsRoot())
	if err != nil {
		if r.fs.IsNotFound(err) {
			return true, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list registry versions dir: " + r.versionsRoot()).
			WithCause(err)
	}
	names := map[string]struct{}{}
	for _, bucket := range entries {
		bucketDir := path.Join(r.versionsRoot(), bucket)
		if !r.fs.IsDirectory(bucketDir) {
			continue
		}
		files, err := r.fs.ReadDir(bucketDir)
		if err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to list registry versions bucket: " + bucketDir).
				WithCause(err)
		}
		for _, f := range files {
			name := trimJSONSuffix(f)
			if name != "" {
				names[name] = struct{}{}
			}
		}
	}
	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	*out = append(*out, result...)
	return true, nil
}

func trimJSONSuffix(name string) string {
	const suffix = ".json"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return ""
	}
	return name[:len(name)-len(suffix)]
}

var _ ports.RegistryPort = (*FilesystemRegistry)(nil)
