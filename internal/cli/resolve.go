package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"portresolve/internal/app"
	"portresolve/internal/types"
)

type resolveOptions struct {
	registriesConfig string
	lockFile         string
	cacheDir         string
	manifestPath     string
	overlayPorts     []string
	checkUpdates     bool
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <port>...",
		Short: "Resolve one or more ports to a manifest and on-disk location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.registriesConfig, "registries-config", "registries.yaml", "Path to the registry-set configuration file")
	cmd.Flags().StringVar(&opts.lockFile, "lock-file", "portresolve.lock", "Path to the lockfile")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", ".portresolve-cache", "Directory for extracted Git trees and checkouts")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "Path to a top-level project manifest directory, resolved ahead of overlays")
	cmd.Flags().StringArrayVar(&opts.overlayPorts, "overlay-port", nil, "Overlay port directory (repeatable, highest priority first)")
	cmd.Flags().BoolVar(&opts.checkUpdates, "check-updates", false, "Report ports with a newer baseline or overlay version available")
	return cmd
}

func runResolve(cmd *cobra.Command, portNames []string, opts resolveOptions) error {
	ctx := cmd.Context()
	svc, err := app.NewService(app.Config{
		RegistriesConfigPath: opts.registriesConfig,
		OverlayPortDirs:      opts.overlayPorts,
		LockFilePath:         opts.lockFile,
		CacheDir:             opts.cacheDir,
		ManifestPath:         opts.manifestPath,
	})
	if err != nil {
		return err
	}

	results, err := svc.ResolveAll(ctx, portNames)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s@%s -> %s\n", r.Port.Name, r.Port.Version.String(), r.Location.Path)
	}

	if opts.checkUpdates {
		installed := make(map[string]types.SchemedVersion, len(results))
		for _, r := range results {
			installed[r.Port.Name] = types.SchemedVersion{Version: r.Port.Version, Scheme: r.Port.Scheme}
		}
		reports, err := svc.CheckUpdates(ctx, installed)
		if err != nil {
			return err
		}
		for _, report := range reports {
			log.Info().
				Str("port", report.PortName).
				Str("installed", report.Installed.Version.String()).
				Str("available", report.Available.Version.String()).
				Bool("from_overlay", report.FromOverlay).
				Msg("update available")
		}
	}

	if err := svc.SaveLockFile(); err != nil {
		return err
	}
	return nil
}
