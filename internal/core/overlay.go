package core

import (
	"context"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// OverlayProvider resolves ports from an ordered list of directories
// supplied on the command line (--overlay-port), ahead of any
// registry. Directories are checked at construction time so a bad
// overlay path fails fast rather than mid-resolution.
type OverlayProvider struct {
	fs       ports.FileSystemPort
	manifest ports.ManifestPort
	dirs     []string

	cache map[string]*OverlayMatch
}

// OverlayMatch is a port found through an overlay directory, together
// with the path it was loaded from.
type OverlayMatch struct {
	SourceControlFile types.SourceControlFile
	Path              string
}

func NewOverlayProvider(fs ports.FileSystemPort, manifest ports.ManifestPort, dirs []string) (*OverlayProvider, error) {
	seen := map[string]struct{}{}
	for _, dir := range dirs {
		_, duplicate := seen[dir]
		assert.Assert(context.Background(), !duplicate, "duplicate overlay port directory: "+dir)
		seen[dir] = struct{}{}
		if !fs.Exists(dir) || !fs.IsDirectory(dir) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("overlay port directory does not exist: " + dir)
		}
	}
	return &OverlayProvider{
		fs:       fs,
		manifest: manifest,
		dirs:     dirs,
		cache:    map[string]*OverlayMatch{},
	}, nil
}

// GetControlFile looks up name across overlay directories in order.
// A nil, nil result means "no overlay match, fall through to registry".
func (o *OverlayProvider) GetControlFile(name string) (*OverlayMatch, error) {
	if cached, ok := o.cache[name]; ok {
		return cached, nil
	}
	match, err := o.lookup(name)
	if err != nil {
		return nil, err
	}
	o.cache[name] = match
	return match, nil
}

func (o *OverlayProvider) lookup(name string) (*OverlayMatch, error) {
	for _, dir := range o.dirs {
		asPort, err := o.manifest.TryLoadPort(o.fs, dir)
		if err != nil {
			return nil, err
		}
		if asPort != nil {
			if asPort.Name == name {
				return &OverlayMatch{SourceControlFile: *asPort, Path: dir}, nil
			}
			// Parses as a different port: this directory is a single
			// port, not an index of ports, so it never matches name.
			continue
		}

		candidate := dir + "/" + name
		if !o.fs.Exists(candidate) {
			continue
		}
		inDir, err := o.manifest.TryLoadPort(o.fs, candidate)
		if err != nil {
			return nil, err
		}
		if inDir == nil {
			continue
		}
		if inDir.Name != name {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("overlay port at " + candidate + " declares name " + inDir.Name + ", expected " + name)
		}
		return &OverlayMatch{SourceControlFile: *inDir, Path: candidate}, nil
	}
	return nil, nil
}

// LoadAllControlFiles walks overlay directories in reverse order (so
// earlier-registered overlays win) and merges every port found, either
// by treating a directory as a single port or scanning it as a
// directory-of-ports.
func (o *OverlayProvider) LoadAllControlFiles() (map[string]types.SourceControlFile, error) {
	result := map[string]types.SourceControlFile{}
	for i := len(o.dirs) - 1; i >= 0; i-- {
		dir := o.dirs[i]
		asPort, err := o.manifest.TryLoadPort(o.fs, dir)
		if err != nil {
			return nil, err
		}
		if asPort != nil {
			result[asPort.Name] = *asPort
			continue
		}

		found, errs := o.manifest.TryLoadOverlayPorts(o.fs, dir)
		if len(errs) > 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to scan overlay directory: " + dir).
				WithCause(errs[0])
		}
		for name, scf := range found {
			result[name] = scf
		}
	}
	return result, nil
}

// ManifestProvider wraps an OverlayProvider and additionally exposes a
// single named top-level manifest ahead of any overlay.
type ManifestProvider struct {
	overlay      *OverlayProvider
	manifestName string
	manifestSCF  *types.SourceControlFile
}

func NewManifestProvider(overlay *OverlayProvider, manifest *types.SourceControlFile) *ManifestProvider {
	mp := &ManifestProvider{overlay: overlay, manifestSCF: manifest}
	if manifest != nil {
		mp.manifestName = manifest.Name
	}
	return mp
}

func (m *ManifestProvider) GetControlFile(name string) (*OverlayMatch, error) {
	if m.manifestSCF != nil && name == m.manifestName {
		return &OverlayMatch{SourceControlFile: *m.manifestSCF, Path: ""}, nil
	}
	return m.overlay.GetControlFile(name)
}
