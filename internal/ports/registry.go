package ports

import (
	"context"

	"portresolve/internal/types"
)

// RegistryPort is the common contract every registry backend
// implements: builtin-files, builtin-git, builtin-error, filesystem,
// and remote-git. A nil *types.PathAndLocation / *types.Version /
// nil slice with a nil error means "not found"; a non-nil error means
// the lookup itself failed.
type RegistryPort interface {
	// GetPort resolves one (name, version) pair.
	GetPort(ctx context.Context, spec types.VersionSpec) (*types.PathAndLocation, error)

	// GetAllPortVersions lists the known versions for a port, in
	// versions-file document order. Returns (nil, nil) if the port is
	// unknown to this registry.
	GetAllPortVersions(ctx context.Context, name string) ([]types.Version, error)

	// GetBaselineVersion resolves the registry's pinned version for a
	// port. Returns (nil, nil) if the port has no baseline entry.
	GetBaselineVersion(ctx context.Context, name string) (*types.Version, error)

	// AppendAllPortNames enumerates every port name the registry can
	// reach, using the network if necessary.
	AppendAllPortNames(ctx context.Context, out *[]string) error

	// TryAppendAllPortNamesNoNetwork enumerates port names without
	// touching the network. Returns (false, nil) if the registry
	// cannot answer offline; out is left unmodified in that case.
	TryAppendAllPortNamesNoNetwork(ctx context.Context, out *[]string) (bool, error)
}
