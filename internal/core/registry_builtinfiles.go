package core

import (
	"context"
	"path"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// BuiltinFilesRegistry resolves ports from plain subdirectories under
// a builtin ports root. It has no baseline file and no Git layer: the
// "baseline version" of a port is whatever is currently checked out on
// disk.
type BuiltinFilesRegistry struct {
	fs       ports.FileSystemPort
	manifest ports.ManifestPort
	portsRoot string

	manifestCache map[string]*types.SourceControlFile
}

func NewBuiltinFilesRegistry(fs ports.FileSystemPort, manifest ports.ManifestPort, portsRoot string) *BuiltinFilesRegistry {
	return &BuiltinFilesRegistry{
		fs:            fs,
		manifest:      manifest,
		portsRoot:     portsRoot,
		manifestCache: map[string]*types.SourceControlFile{},
	}
}

func (r *BuiltinFilesRegistry) portDir(name string) string {
	return path.Join(r.portsRoot, name)
}

func (r *BuiltinFilesRegistry) loadManifest(dir string) (*types.SourceControlFile, error) {
	if cached, ok := r.manifestCache[dir]; ok {
		return cached, nil
	}
	scf, err := r.manifest.TryLoadPort(r.fs, dir)
	if err != nil {
		return nil, err
	}
	r.manifestCache[dir] = scf
	return scf, nil
}

func (r *BuiltinFilesRegistry) GetPort(_ context.Context, spec types.VersionSpec) (*types.PathAndLocation, error) {
	dir := r.portDir(spec.PortName)
	scf, err := r.loadManifest(dir)
	if err != nil {
		return nil, err
	}
	if scf == nil {
		return nil, nil
	}
	if scf.Name != spec.PortName {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("manifest at " + dir + " declares name " + scf.Name + ", expected " + spec.PortName)
	}
	if !scf.Version.Equal(spec.Version) {
		log.Warn().
			Str("port", spec.PortName).
			Str("requested", spec.Version.String()).
			Str("checked_out", scf.Version.String()).
			Msg("builtin-files port version mismatch")
		return nil, nil
	}
	return &types.PathAndLocation{
		Path:     dir,
		Location: "builtin:" + dir,
	}, nil
}

func (r *BuiltinFilesRegistry) GetAllPortVersions(_ context.Context, name string) ([]types.Version, error) {
	scf, err := r.loadManifest(r.portDir(name))
	if err != nil {
		return nil, err
	}
	if scf == nil {
		return nil, nil
	}
	// Open Question (SPEC_FULL.md §12 / distilled spec §9): only the
	// currently checked-out version is known to this backend; whether
	// that undercounts ports with historical versions on disk is left
	// unresolved upstream, and this preserves the single-entry
	// behavior rather than guessing at a directory-scan alternative.
	return []types.Version{scf.Version}, nil
}

func (r *BuiltinFilesRegistry) GetBaselineVersion(_ context.Context, name string) (*types.Version, error) {
	scf, err := r.loadManifest(r.portDir(name))
	if err != nil {
		return nil, err
	}
	if scf == nil {
		return nil, nil
	}
	v := scf.Version
	return &v, nil
}

func (r *BuiltinFilesRegistry) AppendAllPortNames(_ context.Context, out *[]string) error {
	entries, err := r.fs.ReadDir(r.portsRoot)
	if err != nil {
		if r.fs.IsNotFound(err) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list builtin ports root: " + r.portsRoot).
			WithCause(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == ".DS_Store" {
			continue
		}
		names = append(names, entry)
	}
	sort.Strings(names)
	*out = append(*out, names...)
	return nil
}

func (r *BuiltinFilesRegistry) TryAppendAllPortNamesNoNetwork(ctx context.Context, out *[]string) (bool, error) {
	if err := r.AppendAllPortNames(ctx, out); err != nil {
		return false, err
	}
	return true, nil
}

var _ ports.RegistryPort = (*BuiltinFilesRegistry)(nil)
