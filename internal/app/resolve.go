package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"portresolve/internal/core"
	"portresolve/internal/types"
)

// ResolveRequest names a single port to resolve, optionally pinning an
// exact version instead of accepting the baseline.
type ResolveRequest struct {
	PortName string
	Version  *types.Version
}

// ResolveResult is what the CLI reports for one resolved port.
type ResolveResult struct {
	Port     types.SourceControlFile
	Location types.PathAndLocation
}

// Resolve answers a single port lookup: overlay, then baseline or a
// pinned version, through the registry set.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if err := requirePortName(req.PortName); err != nil {
		return nil, err
	}

	var (
		resolved *core.ResolvedPort
		err      error
	)
	if req.Version != nil {
		resolved, err = s.provider.GetVersionedPort(ctx, types.VersionSpec{PortName: req.PortName, Version: *req.Version})
	} else {
		resolved, err = s.provider.GetPort(ctx, req.PortName)
	}
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		log.Debug().Str("port", req.PortName).Msg("port not found in any overlay or registry")
		return nil, nil
	}
	return &ResolveResult{Port: resolved.SourceControlFile, Location: resolved.Location}, nil
}

// ResolveAll resolves several ports, stopping at the first error. This
// is the entry point behind `resolve <port>...`.
func (s *Service) ResolveAll(ctx context.Context, names []string) ([]ResolveResult, error) {
	results := make([]ResolveResult, 0, len(names))
	for _, name := range names {
		result, err := s.Resolve(ctx, ResolveRequest{PortName: name})
		if err != nil {
			return nil, err
		}
		if result == nil {
			log.Warn().Str("port", name).Msg("no resolution found")
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// ReachablePortNames enumerates every port name any registration or
// the default registry could resolve, following the registry set's
// pattern-routing rules.
func (s *Service) ReachablePortNames(ctx context.Context) ([]string, error) {
	return s.registry.GetAllReachablePortNames(ctx)
}
