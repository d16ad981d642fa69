package core

import (
	"context"
	"errors"
	"sort"
	"strings"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

var errFakeNotFound = errors.New("fake: not found")

// fakeFS is an in-memory ports.FileSystemPort, following the
// pattern of using hand-rolled fakes over mocking frameworks.
type fakeFS struct {
	files map[string]string
}

func newFakeFS(files map[string]string) *fakeFS {
	return &fakeFS{files: files}
}

func (f *fakeFS) ReadFile(path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", errFakeNotFound
	}
	return content, nil
}

func (f *fakeFS) Exists(path string) bool {
	if _, ok := f.files[path]; ok {
		return true
	}
	return f.IsDirectory(path)
}

func (f *fakeFS) IsDirectory(path string) bool {
	prefix := path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for k := range f.files {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeFS) CreateDirectories(string) error { return nil }

func (f *fakeFS) WriteFile(path string, contents string) error {
	f.files[path] = contents
	return nil
}

func (f *fakeFS) Rename(from, to string) error {
	content, ok := f.files[from]
	if !ok {
		return errFakeNotFound
	}
	delete(f.files, from)
	f.files[to] = content
	return nil
}

func (f *fakeFS) ReadDir(path string) ([]string, error) {
	prefix := path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	seen := map[string]struct{}{}
	for k := range f.files {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seen[rest[:idx]] = struct{}{}
		} else {
			seen[rest] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, errFakeNotFound
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeFS) IsNotFound(err error) bool {
	return errors.Is(err, errFakeNotFound)
}

// fakeGit is an in-memory ports.GitPort. showContents maps
// "<treeish>@<repoDir>" to file content; fetchCommits maps
// "<repo>@<ref>" to a resolved commit SHA; extractedTrees maps a
// tree id to the checkout path it should resolve to.
type fakeGit struct {
	showContents   map[string]string
	fetchCommits   map[string]string
	extractedTrees map[string]string
	fetchCalls     int
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		showContents:   map[string]string{},
		fetchCommits:   map[string]string{},
		extractedTrees: map[string]string{},
	}
}

func (g *fakeGit) Fetch(_ context.Context, repo string, reference string) (string, error) {
	g.fetchCalls++
	commit, ok := g.fetchCommits[repo+"@"+reference]
	if !ok {
		return "", errors.New("fake: no such ref")
	}
	return commit, nil
}

func (g *fakeGit) Show(_ context.Context, treeish string, repoDir string) (string, error) {
	content, ok := g.showContents[treeish+"@"+repoDir]
	if !ok {
		return "", errors.New("fake: not found at treeish")
	}
	return content, nil
}

func (g *fakeGit) ExtractTree(_ context.Context, treeID string) (string, error) {
	path, ok := g.extractedTrees[treeID]
	if !ok {
		return "/extracted/" + treeID, nil
	}
	return path, nil
}

func (g *fakeGit) FindObjectIDForRemotePath(_ context.Context, commit string, subdir string) (string, error) {
	return commit + ":" + subdir, nil
}

func (g *fakeGit) CheckoutPort(_ context.Context, name string, treeID string, repoDir string) (string, error) {
	return repoDir + "/" + name + "-" + treeID, nil
}

func (g *fakeGit) MirrorPath(repo string) string {
	return "/mirrors/" + repo
}

// fakeTelemetry counts Define calls per metric id.
type fakeTelemetry struct {
	counts map[string]int
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{counts: map[string]int{}}
}

func (t *fakeTelemetry) Define(metricID string) {
	t.counts[metricID]++
}

// fakeManifest is an in-memory ports.ManifestPort keyed by directory.
type fakeManifest struct {
	byDir map[string]types.SourceControlFile
}

func newFakeManifest(byDir map[string]types.SourceControlFile) *fakeManifest {
	return &fakeManifest{byDir: byDir}
}

func (m *fakeManifest) TryLoadPort(_ ports.FileSystemPort, dir string) (*types.SourceControlFile, error) {
	scf, ok := m.byDir[dir]
	if !ok {
		return nil, nil
	}
	return &scf, nil
}

func (m *fakeManifest) TryLoadOverlayPorts(fs ports.FileSystemPort, dir string) (map[string]types.SourceControlFile, []error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	result := map[string]types.SourceControlFile{}
	for _, e := range entries {
		scf, ok := m.byDir[dir+"/"+e]
		if ok {
			result[scf.Name] = scf
		}
	}
	return result, nil
}

// fakeRegistry is an in-memory ports.RegistryPort used to exercise
// RegistrySet routing without any real backend.
type fakeRegistry struct {
	name          string
	names         []string
	offlineNames  []string
	offlineReady  bool
	locations     map[string]types.PathAndLocation
	baselines     map[string]types.Version
}

func newFakeRegistry(name string) *fakeRegistry {
	return &fakeRegistry{name: name, locations: map[string]types.PathAndLocation{}, baselines: map[string]types.Version{}}
}

func (r *fakeRegistry) GetPort(_ context.Context, spec types.VersionSpec) (*types.PathAndLocation, error) {
	loc, ok := r.locations[spec.ToKey()]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (r *fakeRegistry) GetAllPortVersions(_ context.Context, name string) ([]types.Version, error) {
	return nil, nil
}

func (r *fakeRegistry) GetBaselineVersion(_ context.Context, name string) (*types.Version, error) {
	v, ok := r.baselines[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *fakeRegistry) AppendAllPortNames(_ context.Context, out *[]string) error {
	*out = append(*out, r.names...)
	return nil
}

func (r *fakeRegistry) TryAppendAllPortNamesNoNetwork(_ context.Context, out *[]string) (bool, error) {
	if !r.offlineReady {
		return false, nil
	}
	*out = append(*out, r.offlineNames...)
	return true, nil
}

var (
	_ ports.FileSystemPort = (*fakeFS)(nil)
	_ ports.GitPort        = (*fakeGit)(nil)
	_ ports.TelemetryPort  = (*fakeTelemetry)(nil)
	_ ports.ManifestPort   = (*fakeManifest)(nil)
	_ ports.RegistryPort   = (*fakeRegistry)(nil)
)
