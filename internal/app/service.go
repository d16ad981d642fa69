package app

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/adapters"
	"portresolve/internal/core"
	"portresolve/internal/ports"
)

// Config bundles everything needed to construct a Service: where the
// registry-set configuration and lockfile live on disk, which overlay
// directories take precedence over registries, and where Git checkouts
// are cached.
type Config struct {
	RegistriesConfigPath string
	OverlayPortDirs       []string
	LockFilePath          string
	CacheDir              string
	// ManifestPath, if set, points at a directory holding a top-level
	// vcpkg.json whose own name/version is resolved ahead of any
	// overlay, mirroring vcpkg's ManifestProvider.
	ManifestPath string
}

// Service is the resolution core wired up with real adapters: the
// entry point internal/cli calls into.
type Service struct {
	FS        ports.FileSystemPort
	Git       ports.GitPort
	Manifest  ports.ManifestPort
	Telemetry ports.TelemetryPort

	lockFile *core.LockFile
	lockPath string
	provider *core.PathsPortFileProvider
	registry *core.RegistrySet
	overlay  *core.OverlayProvider
}

// NewService constructs a Service from Config, loading the registry
// set, overlay directories, and lockfile from disk.
func NewService(cfg Config) (*Service, error) {
	fs := adapters.NewOSFileSystemAdapter()
	git := adapters.NewCLIGitAdapter(cfg.CacheDir)
	manifest := adapters.NewPortManifestAdapter()
	telemetry := adapters.NewNoopTelemetryAdapter()

	lockFile, err := core.LoadLockFile(fs, git, cfg.LockFilePath)
	if err != nil {
		return nil, err
	}

	registrySetAdapter := adapters.NewRegistrySetFileAdapter(fs, git, manifest, telemetry, lockFile, cfg.CacheDir)
	registrySet, err := registrySetAdapter.Load(cfg.RegistriesConfigPath)
	if err != nil {
		return nil, err
	}

	overlay, err := core.NewOverlayProvider(fs, manifest, cfg.OverlayPortDirs)
	if err != nil {
		return nil, err
	}

	var source core.ControlFileSource = overlay
	if cfg.ManifestPath != "" {
		topLevel, err := manifest.TryLoadPort(fs, cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		source = core.NewManifestProvider(overlay, topLevel)
	}

	provider := core.NewPathsPortFileProvider(fs, manifest, source, registrySet)

	return &Service{
		FS:        fs,
		Git:       git,
		Manifest:  manifest,
		Telemetry: telemetry,
		lockFile:  lockFile,
		lockPath:  cfg.LockFilePath,
		provider:  provider,
		registry:  registrySet,
		overlay:   overlay,
	}, nil
}

// SaveLockFile persists the lockfile if it was modified during this
// process's resolutions.
func (s *Service) SaveLockFile() error {
	return s.lockFile.Save(s.FS, s.lockPath)
}

func requirePortName(name string) error {
	if name == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("port name is required")
	}
	return nil
}
