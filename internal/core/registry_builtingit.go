package core

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// BuiltinGitRegistry layers a baseline-pinned Git history over a
// local checkout of the builtin ports tree. Ports not yet present in
// the versions index fall through to the BuiltinFiles behavior
// (get_port via a plain manifest read) so newly-added ports work
// before anyone has run the port-version-bump tooling.
type BuiltinGitRegistry struct {
	fs       ports.FileSystemPort
	git      ports.GitPort
	delegate *BuiltinFilesRegistry

	repoDir        string
	baselineCommit string

	baseline      *types.Baseline
	baselineTried bool
}

func NewBuiltinGitRegistry(fs ports.FileSystemPort, manifest ports.ManifestPort, git ports.GitPort, repoDir string, baselineCommit string) *BuiltinGitRegistry {
	return &BuiltinGitRegistry{
		fs:             fs,
		git:            git,
		delegate:       NewBuiltinFilesRegistry(fs, manifest, path.Join(repoDir, "ports")),
		repoDir:        repoDir,
		baselineCommit: baselineCommit,
	}
}

func (r *BuiltinGitRegistry) versionsRoot() string {
	return path.Join(r.repoDir, "versions")
}

func (r *BuiltinGitRegistry) GetPort(ctx context.Context, spec types.VersionSpec) (*types.PathAndLocation, error) {
	idx, err := LoadVersions(ctx, r.fs, types.RegistryKindGit, r.versionsRoot(), spec.PortName, "")
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return r.delegate.GetPort(ctx, spec)
	}
	entry, ok := idx.Find(spec.Version)
	if !ok {
		return nil, notInVersionsError(spec.PortName, spec.Version, idx.Versions)
	}
	treePath, err := r.git.ExtractTree(ctx, entry.Locator)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to check out " + spec.PortName + " tree " + entry.Locator).
			WithCause(err)
	}
	return &types.PathAndLocation{
		Path:     treePath,
		Location: fmt.Sprintf("git+%s@%s", r.repoDir, entry.Locator),
	}, nil
}

func (r *BuiltinGitRegistry) GetAllPortVersions(ctx context.Context, name string) ([]types.Version, error) {
	idx, err := LoadVersions(ctx, r.fs, types.RegistryKindGit, r.versionsRoot(), name, "")
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return r.delegate.GetAllPortVersions(ctx, name)
	}
	return idx.Versions, nil
}

func (r *BuiltinGitRegistry) GetBaselineVersion(ctx context.Context, name string) (*types.Version, error) {
	baseline, err := r.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, nil
	}
	// Cache miss in the baseline is a known unknown, distinct from an
	// error: the port may simply not be baselined yet.
	version, ok := (*baseline)[name]
	if !ok {
		return nil, nil
	}
	return &version, nil
}

func (r *BuiltinGitRegistry) loadBaseline(ctx context.Context) (*types.Baseline, error) {
	if r.baselineTried {
		if r.baseline == nil {
			return nil, baselineLoadError(r.baselineCommit)
		}
		return r.baseline, nil
	}
	r.baselineTried = true
	treeish := r.baselineCommit + ":versions/baseline.json"
	content, err := r.git.Show(ctx, treeish, r.repoDir)
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

func (r *BuiltinGitRegistry) AppendAllPortNames(ctx context.Context, out *[]string) error {
	return r.delegate.AppendAllPortNames(ctx, out)
}

func (r *BuiltinGitRegistry) TryAppendAllPortNamesNoNetwork(ctx context.Context, out *[]string) (bool, error) {
	return r.delegate.TryAppendAllPortNamesNoNetwork(ctx, out)
}

// notInVersionsError builds the "version X not in git entries"
// diagnostic: every known version enumerated plus an update
// suggestion, matching distilled spec §4.D.2.
func notInVersionsError(portName string, requested types.Version, known []types.Version) error {
	rendered := make([]string, 0, len(known))
	for _, v := range known {
		rendered = append(rendered, v.String())
	}
	sort.Strings(rendered)
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf(
			"version %s not in git entries for %s; known versions: %s. update vcpkg if you expect this version to exist",
			requested.String(), portName, strings.Join(rendered, ", "),
		))
}

var _ ports.RegistryPort = (*BuiltinGitRegistry)(nil)
