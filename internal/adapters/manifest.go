package adapters

import (
	"encoding/json"
	"path"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// PortManifestAdapter parses a vcpkg.json-shaped port manifest:
// { "name": ..., "version|version-semver|version-date|version-string": ..., "port-version": int, ... }
type PortManifestAdapter struct{}

func NewPortManifestAdapter() PortManifestAdapter {
	return PortManifestAdapter{}
}

type rawManifest struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	VersionSemver string `json:"version-semver"`
	VersionDate   string `json:"version-date"`
	VersionString string `json:"version-string"`
	PortVersion   uint64 `json:"port-version"`
}

func (a PortManifestAdapter) TryLoadPort(fs ports.FileSystemPort, dir string) (*types.SourceControlFile, error) {
	manifestPath := path.Join(dir, "vcpkg.json")
	content, err := fs.ReadFile(manifestPath)
	if err != nil {
		if fs.IsNotFound(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read manifest: " + manifestPath).
			WithCause(err)
	}
	return a.parse(content, manifestPath)
}

func (a PortManifestAdapter) parse(content string, sourceLabel string) (*types.SourceControlFile, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed manifest: " + sourceLabel).
			WithCause(err)
	}
	var m rawManifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed manifest: " + sourceLabel).
			WithCause(err)
	}
	if m.Name == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest missing name: " + sourceLabel)
	}

	scheme, upstream, err := versionField(m, sourceLabel)
	if err != nil {
		return nil, err
	}

	return &types.SourceControlFile{
		Name:    m.Name,
		Version: types.Version{Upstream: upstream, Revision: m.PortVersion},
		Scheme:  scheme,
		Raw:     raw,
	}, nil
}

func versionField(m rawManifest, sourceLabel string) (types.Scheme, string, error) {
	fields := []struct {
		value  string
		scheme types.Scheme
	}{
		{m.VersionSemver, types.SchemeSemver},
		{m.VersionDate, types.SchemeDate},
		{m.VersionString, types.SchemeString},
		{m.Version, types.SchemeRelaxed},
	}
	count := 0
	var scheme types.Scheme
	var upstream string
	for _, f := range fields {
		if f.value != "" {
			count++
			scheme = f.scheme
			upstream = f.value
		}
	}
	if count != 1 {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest must specify exactly one version field: " + sourceLabel)
	}
	return scheme, upstream, nil
}

// TryLoadOverlayPorts scans dir as a directory-of-ports: each immediate
// subdirectory that parses as a manifest becomes an entry. A
// subdirectory with no manifest is silently skipped (it is not a
// port); a subdirectory with a malformed manifest is a fatal scan
// error.
func (a PortManifestAdapter) TryLoadOverlayPorts(fs ports.FileSystemPort, dir string) (map[string]types.SourceControlFile, []error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, []error{err}
	}
	result := map[string]types.SourceControlFile{}
	var errs []error
	for _, entry := range entries {
		sub := path.Join(dir, entry)
		if !fs.IsDirectory(sub) {
			continue
		}
		scf, err := a.TryLoadPort(fs, sub)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if scf == nil {
			continue
		}
		result[scf.Name] = *scf
	}
	return result, errs
}

var _ ports.ManifestPort = PortManifestAdapter{}
