package ports

import "portresolve/internal/types"

// ManifestPort parses port manifests (vcpkg.json-shaped port
// definitions). The core treats the result opaquely except for its
// Name, Version, and Scheme fields.
type ManifestPort interface {
	// TryLoadPort loads the manifest for a single port directory.
	// Returns (nil, nil) if dir does not contain a port manifest.
	TryLoadPort(fs FileSystemPort, dir string) (*types.SourceControlFile, error)

	// TryLoadOverlayPorts scans dir for immediate subdirectories that
	// are each a single port, returning every port it could parse plus
	// every per-entry parse error it hit along the way.
	TryLoadOverlayPorts(fs FileSystemPort, dir string) (map[string]types.SourceControlFile, []error)
}
