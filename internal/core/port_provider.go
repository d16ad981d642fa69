package core

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// ResolvedPort is a successfully resolved port: its manifest plus
// where its tree lives on disk.
type ResolvedPort struct {
	SourceControlFile types.SourceControlFile
	Location          types.PathAndLocation
}

type baselineCacheEntry struct {
	version *types.Version
	err     error
}

type versionedCacheEntry struct {
	result *ResolvedPort
	err    error
}

// PathsPortFileProvider composes an OverlayProvider with a RegistrySet
// to answer "where is port X" queries: overlays are consulted first,
// then the baseline-pinned version for X, then the versioned
// registry lookup for that exact version. Every cache is write-once:
// the first successful or failed computation for a key is permanent
// for the life of the provider.
type PathsPortFileProvider struct {
	fs       ports.FileSystemPort
	manifest ports.ManifestPort
	overlay  ControlFileSource
	registry *RegistrySet

	baselineCache map[string]baselineCacheEntry
	versionCache  map[types.VersionSpec]versionedCacheEntry
	entryCache    map[string]ports.RegistryPort
}

// ControlFileSource is the "consult overlays" step of PortProvider
// composition: satisfied by both OverlayProvider and ManifestProvider
// so a top-level project manifest can stand in ahead of overlays.
type ControlFileSource interface {
	GetControlFile(name string) (*OverlayMatch, error)
}

func NewPathsPortFileProvider(fs ports.FileSystemPort, manifest ports.ManifestPort, overlay ControlFileSource, registry *RegistrySet) *PathsPortFileProvider {
	return &PathsPortFileProvider{
		fs:            fs,
		manifest:      manifest,
		overlay:       overlay,
		registry:      registry,
		baselineCache: map[string]baselineCacheEntry{},
		versionCache:  map[types.VersionSpec]versionedCacheEntry{},
		entryCache:    map[string]ports.RegistryPort{},
	}
}

// entryFor resolves which registry backend owns name, caching the
// answer per port name rather than per VersionSpec: every version of
// the same port routes through the same RegistrySet pattern match, so
// a second version lookup for a port already seen this run should not
// repeat the routing work or bypass whatever internal caching that
// backend already does for the port it now knows it owns.
func (p *PathsPortFileProvider) entryFor(name string) ports.RegistryPort {
	if reg, ok := p.entryCache[name]; ok {
		return reg
	}
	reg := p.registry.RegistryForPort(name)
	p.entryCache[name] = reg
	return reg
}

// GetPort resolves a port by name: overlay first, then the baseline
// version through the registry set.
func (p *PathsPortFileProvider) GetPort(ctx context.Context, name string) (*ResolvedPort, error) {
	match, err := p.overlay.GetControlFile(name)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return &ResolvedPort{
			SourceControlFile: match.SourceControlFile,
			Location:          types.PathAndLocation{Path: match.Path, Location: "overlay:" + match.Path},
		}, nil
	}

	version, err := p.baselineVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, nil
	}
	return p.GetVersionedPort(ctx, types.VersionSpec{PortName: name, Version: *version})
}

func (p *PathsPortFileProvider) baselineVersion(ctx context.Context, name string) (*types.Version, error) {
	if cached, ok := p.baselineCache[name]; ok {
		return cached.version, cached.err
	}
	registry := p.entryFor(name)
	version, err := registry.GetBaselineVersion(ctx, name)
	p.baselineCache[name] = baselineCacheEntry{version: version, err: err}
	return version, err
}

// GetVersionedPort resolves an exact (name, version) pair, bypassing
// the baseline lookup. The overlay is still consulted first: an
// overlay match always wins regardless of the requested version,
// matching the manifest-ahead-of-registry precedence described for
// PortProvider composition.
func (p *PathsPortFileProvider) GetVersionedPort(ctx context.Context, spec types.VersionSpec) (*ResolvedPort, error) {
	match, err := p.overlay.GetControlFile(spec.PortName)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return &ResolvedPort{
			SourceControlFile: match.SourceControlFile,
			Location:          types.PathAndLocation{Path: match.Path, Location: "overlay:" + match.Path},
		}, nil
	}

	if cached, ok := p.versionCache[spec]; ok {
		return cached.result, cached.err
	}

	registry := p.entryFor(spec.PortName)
	location, err := registry.GetPort(ctx, spec)
	if err != nil {
		p.versionCache[spec] = versionedCacheEntry{err: err}
		return nil, err
	}
	if location == nil {
		p.versionCache[spec] = versionedCacheEntry{}
		return nil, nil
	}

	scf, loadErr := p.loadAndValidateManifest(location.Path, spec)
	result := versionedCacheEntry{}
	if loadErr != nil {
		result.err = loadErr
	} else {
		result.result = &ResolvedPort{SourceControlFile: *scf, Location: *location}
	}
	p.versionCache[spec] = result
	return result.result, result.err
}

func (p *PathsPortFileProvider) loadAndValidateManifest(dir string, spec types.VersionSpec) (*types.SourceControlFile, error) {
	scf, err := p.manifestAt(dir)
	if err != nil {
		return nil, err
	}
	if scf == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("resolved port tree has no manifest: " + dir)
	}
	if scf.Name != spec.PortName || !scf.Version.Equal(spec.Version) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("manifest at " + dir + " declares " + scf.Name + "@" + scf.Version.String() +
				", expected " + spec.PortName + "@" + spec.Version.String())
	}
	return scf, nil
}

func (p *PathsPortFileProvider) manifestAt(dir string) (*types.SourceControlFile, error) {
	return p.manifest.TryLoadPort(p.fs, dir)
}
