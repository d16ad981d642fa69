package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"portresolve/internal/core"
	"portresolve/internal/ports"
)

// registriesConfig is the on-disk shape of registries.yaml: a list of
// registrations plus a default backend, re-expressing vcpkg's own
// vcpkg-configuration.json registry-set in this codebase's YAML idiom.
type registriesConfig struct {
	Registries []registrationConfig `yaml:"registries"`
	Default    defaultConfig        `yaml:"default"`
}

type registrationConfig struct {
	Kind       string   `yaml:"kind"`
	Patterns   []string `yaml:"patterns"`
	Repository string   `yaml:"repository"`
	Path       string   `yaml:"path"`
	Baseline   string   `yaml:"baseline"`
}

type defaultConfig struct {
	Kind       string `yaml:"kind"`
	Repository string `yaml:"repository"`
	Path       string `yaml:"path"`
	Baseline   string `yaml:"baseline"`
}

// RegistrySetFileAdapter loads registries.yaml and builds a
// core.RegistrySet, wiring each registration's kind to the matching
// core.RegistryPort implementation.
type RegistrySetFileAdapter struct {
	fs        ports.FileSystemPort
	git       ports.GitPort
	manifest  ports.ManifestPort
	telemetry ports.TelemetryPort
	lockFile  *core.LockFile
	cacheDir  string
}

// NewRegistrySetFileAdapter wires every "git"-kind registration to the
// same lockFile instance the caller loaded from disk (and will later
// save): a GitRegistry's own lockfile lookups are what SaveLockFile
// persists, so a fresh, unshared LockFile per registration would
// silently discard every fetch this process makes.
func NewRegistrySetFileAdapter(fs ports.FileSystemPort, git ports.GitPort, manifest ports.ManifestPort, telemetry ports.TelemetryPort, lockFile *core.LockFile, cacheDir string) *RegistrySetFileAdapter {
	return &RegistrySetFileAdapter{fs: fs, git: git, manifest: manifest, telemetry: telemetry, lockFile: lockFile, cacheDir: cacheDir}
}

func (a *RegistrySetFileAdapter) Load(path string) (*core.RegistrySet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read registries config: " + path).
			WithCause(err)
	}
	var cfg registriesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed registries config: " + path).
			WithCause(err)
	}

	var registrations []core.Registration
	for _, r := range cfg.Registries {
		impl, err := a.build(r.Kind, r.Repository, r.Path, r.Baseline)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, core.Registration{Patterns: r.Patterns, Registry: impl})
	}

	def, err := a.build(cfg.Default.Kind, cfg.Default.Repository, cfg.Default.Path, cfg.Default.Baseline)
	if err != nil {
		return nil, err
	}

	return core.NewRegistrySet(def, registrations...), nil
}

func (a *RegistrySetFileAdapter) build(kind, repository, path, baseline string) (ports.RegistryPort, error) {
	switch kind {
	case "git":
		// Unlike BuiltinGitRegistry's known local checkout, a
		// GitRegistry's mirror only exists once something has been
		// fetched. MirrorPath derives its stable on-disk location
		// up front so offline Show calls (the stale-cache fast path,
		// the baseline read) work even on a fresh process that has
		// not fetched anything yet this run.
		return core.NewGitRegistry(a.fs, a.git, a.lockFile, a.telemetry, repository, "HEAD", baseline, a.git.MirrorPath(repository)), nil
	case "filesystem":
		return core.NewFilesystemRegistry(a.fs, a.git, path, baseline), nil
	case "builtin-files":
		return core.NewBuiltinFilesRegistry(a.fs, a.manifest, path), nil
	case "builtin-git":
		return core.NewBuiltinGitRegistry(a.fs, a.manifest, a.git, path, baseline), nil
	case "builtin-error", "":
		return core.NewBuiltinErrorRegistry(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown registry kind: " + kind)
	}
}
