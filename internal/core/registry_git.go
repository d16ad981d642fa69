package core

import (
	"context"
	"regexp"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// GitRegistry resolves ports from a remote registry over a single
// (repo, reference) lock entry. It keeps two version caches per port
// — stale (answerable from the last observed commit, no network) and
// live (after a forced refresh) — plus a single cached baseline, so a
// resolution that the stale cache can already answer never touches
// the network.
type GitRegistry struct {
	fs        ports.FileSystemPort
	git       ports.GitPort
	lockfile  *LockFile
	telemetry ports.TelemetryPort

	repo        string
	reference   string
	baselineRef string // pinned baseline commit SHA (40 hex) or ref name requiring validation
	repoDir     string

	handle    *EntryHandle
	staleAt   string // commit the stale caches were populated from
	stale     map[string]*types.PortVersionsIndex
	liveAt    string
	live      map[string]*types.PortVersionsIndex
	liveReady bool

	baseline      *types.Baseline
	baselineTried bool
}

func NewGitRegistry(fs ports.FileSystemPort, git ports.GitPort, lockfile *LockFile, telemetry ports.TelemetryPort, repo, reference, baselineRef, repoDir string) *GitRegistry {
	return &GitRegistry{
		fs:          fs,
		git:         git,
		lockfile:    lockfile,
		telemetry:   telemetry,
		repo:        repo,
		reference:   reference,
		baselineRef: baselineRef,
		repoDir:     repoDir,
		stale:       map[string]*types.PortVersionsIndex{},
		live:        map[string]*types.PortVersionsIndex{},
	}
}

func (r *GitRegistry) entryHandle(ctx context.Context) (EntryHandle, error) {
	if r.handle != nil {
		return *r.handle, nil
	}
	h, err := r.lockfile.GetOrFetch(ctx, r.repo, r.reference)
	if err != nil {
		return EntryHandle{}, err
	}
	r.handle = &h
	return h, nil
}

func (r *GitRegistry) versionsAt(ctx context.Context, commit string, portName string, cache map[string]*types.PortVersionsIndex, cachedAt *string) (*types.PortVersionsIndex, error) {
	if *cachedAt == commit {
		if idx, ok := cache[portName]; ok {
			return idx, nil
		}
	} else {
		for k := range cache {
			delete(cache, k)
		}
		*cachedAt = commit
	}

	treeish := commit + ":" + versionsFilePath("versions", portName)
	content, err := r.git.Show(ctx, treeish, r.repoDir)
	if err != nil {
		// Not present in this commit is not a network failure; treat as
		// "no entry for this port yet" rather than propagate.
		cache[portName] = nil
		return nil, nil
	}
	idx, err := ParseVersionsContent(content, treeish, types.RegistryKindGit, "")
	if err != nil {
		return nil, err
	}
	cache[portName] = idx
	return idx, nil
}

// GetPort implements the fast-path algorithm: consult the stale cache
// first (answerable from the last observed commit without a network
// round trip); only force a refresh when the stale cache cannot
// answer.
func (r *GitRegistry) GetPort(ctx context.Context, spec types.VersionSpec) (*types.PathAndLocation, error) {
	handle, err := r.entryHandle(ctx)
	if err != nil {
		return nil, err
	}
	entry := r.lockfile.Entry(handle)

	if entry.Stale {
		idx, err := r.versionsAt(ctx, entry.CommitID, spec.PortName, r.stale, &r.staleAt)
		if err != nil {
			return nil, err
		}
		if idx != nil {
			if vdbEntry, ok := idx.Find(spec.Version); ok {
				return r.checkout(ctx, entry.CommitID, vdbEntry)
			}
		}
	}

	if err := r.lockfile.EnsureUpToDate(ctx, handle); err != nil {
		return nil, err
	}
	entry = r.lockfile.Entry(handle)
	idx, err := r.versionsAt(ctx, entry.CommitID, spec.PortName, r.live, &r.liveAt)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	vdbEntry, ok := idx.Find(spec.Version)
	if !ok {
		return nil, nil
	}
	return r.checkout(ctx, entry.CommitID, vdbEntry)
}

func (r *GitRegistry) checkout(ctx context.Context, commit string, entry types.VersionDbEntry) (*types.PathAndLocation, error) {
	treePath, err := r.git.ExtractTree(ctx, entry.Locator)
	if err != nil {
		r.telemetry.Define("git-registry.checkout-failed")
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to check out tree " + entry.Locator).
			WithCause(err)
	}
	return &types.PathAndLocation{
		Path:     treePath,
		Location: "git+" + r.repo + "@" + commit + ":" + entry.Locator,
	}, nil
}

func (r *GitRegistry) GetAllPortVersions(ctx context.Context, name string) ([]types.Version, error) {
	handle, err := r.entryHandle(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.lockfile.EnsureUpToDate(ctx, handle); err != nil {
		return nil, err
	}
	entry := r.lockfile.Entry(handle)
	idx, err := r.versionsAt(ctx, entry.CommitID, name, r.live, &r.liveAt)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	return idx.Versions, nil
}

// GetBaselineVersion implements the pinned-commit resolution algorithm:
// validate the baseline is a commit SHA, try to read it offline, and
// escalate to a lockfile refresh and then a direct fetch before giving
// up. Each escalation step bumps a telemetry counter.
func (r *GitRegistry) GetBaselineVersion(ctx context.Context, name string) (*types.Version, error) {
	baseline, err := r.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}
	version, ok := (*baseline)[name]
	if !ok {
		return nil, nil
	}
	return &version, nil
}

func (r *GitRegistry) loadBaseline(ctx context.Context) (*types.Baseline, error) {
	if r.baselineTried {
		if r.baseline == nil {
			return nil, baselineLoadError(r.baselineRef)
		}
		return r.baseline, nil
	}
	r.baselineTried = true

	if !commitSHAPattern.MatchString(r.baselineRef) {
		handle, err := r.entryHandle(ctx)
		if err == nil {
			_ = r.lockfile.EnsureUpToDate(ctx, handle)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("registry baseline must be a commit SHA, got: " + r.baselineRef)
	}

	treeish := r.baselineRef + ":versions/baseline.json"
	content, err := r.git.Show(ctx, treeish, r.repoDir)
	if err != nil {
		r.telemetry.Define("git-registry.baseline-offline-miss")
		handle, herr := r.entryHandle(ctx)
		if herr != nil {
			return nil, herr
		}
		if err := r.lockfile.EnsureUpToDate(ctx, handle); err != nil {
			return nil, err
		}
		content, err = r.git.Show(ctx, treeish, r.repoDir)
		if err != nil {
			r.telemetry.Define("git-registry.baseline-fetch-miss")
			if _, ferr := r.git.Fetch(ctx, r.repo, r.baselineRef); ferr != nil {
				r.telemetry.Define("git-registry.baseline-fetch-failed")
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to fetch registry baseline commit " + r.baselineRef).
					WithCause(ferr)
			}
			content, err = r.git.Show(ctx, treeish, r.repoDir)
			if err != nil {
				r.telemetry.Define("git-registry.baseline-fetch-failed")
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to read baseline at pinned commit " + r.baselineRef).
					WithCause(err)
			}
		}
	}

	baseline, err := ParseBaselineContent(content, treeish, "default")
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, baselineMissingDefaultError(r.baselineRef)
	}
	r.baseline = &baseline
	return r.baseline, nil
}

func baselineLoadError(baselineRef string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("registry baseline previously failed to load: " + baselineRef)
}

func baselineMissingDefaultError(baselineRef string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("baseline missing default at commit " + baselineRef)
}

// AppendAllPortNames has no offline shortcut available: this backend
// exposes no tree-listing collaborator, so a full enumeration is not
// obtainable at all through the current GitPort surface.
func (r *GitRegistry) AppendAllPortNames(context.Context, *[]string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("git registry cannot enumerate port names: no tree-listing collaborator available")
}

// TryAppendAllPortNamesNoNetwork always answers false: this backend
// does not persist the full name list between runs.
func (r *GitRegistry) TryAppendAllPortNamesNoNetwork(context.Context, *[]string) (bool, error) {
	return false, nil
}

var _ ports.RegistryPort = (*GitRegistry)(nil)
