package app

import (
	"context"

	"portresolve/internal/core"
	"portresolve/internal/types"
)

// UpdateReport describes one installed port whose baseline or overlay
// resolution disagrees with what is currently installed. It never
// solves dependencies; it only compares versions the core has already
// produced (see SPEC_FULL.md §7).
type UpdateReport struct {
	PortName    string
	Installed   types.SchemedVersion
	Available   types.SchemedVersion
	FromOverlay bool
}

// CheckUpdates compares each installed port's version against the
// version the core would resolve for it today (overlay or baseline),
// reporting every port where the two disagree and the available
// version orders strictly after the installed one.
func (s *Service) CheckUpdates(ctx context.Context, installed map[string]types.SchemedVersion) ([]UpdateReport, error) {
	var reports []UpdateReport
	for name, installedVersion := range installed {
		resolved, err := s.provider.GetPort(ctx, name)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			continue
		}
		available := types.SchemedVersion{
			Version: resolved.SourceControlFile.Version,
			Scheme:  resolved.SourceControlFile.Scheme,
		}
		if available.Version.Equal(installedVersion.Version) {
			continue
		}
		if core.CompareSchemed(available, installedVersion) <= 0 {
			continue
		}
		reports = append(reports, UpdateReport{
			PortName:    name,
			Installed:   installedVersion,
			Available:   available,
			FromOverlay: isFromOverlay(resolved.Location),
		})
	}
	return reports, nil
}

func isFromOverlay(loc types.PathAndLocation) bool {
	return len(loc.Location) >= len("overlay:") && loc.Location[:len("overlay:")] == "overlay:"
}
