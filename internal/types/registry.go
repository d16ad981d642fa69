package types

// LocatorKind distinguishes the two shapes a VersionDbEntry's locator
// can take. Which one is legal is fixed per registry kind: Git
// registries only ever produce LocatorGitTree, filesystem registries
// only ever produce LocatorPath.
type LocatorKind string

const (
	LocatorGitTree LocatorKind = "git-tree"
	LocatorPath    LocatorKind = "path"
)

// RegistryKind names the on-disk shape a versions file's locators take.
// It is passed explicitly to the VersionDb loader rather than inferred,
// since the loader has no other way to know which field to expect.
type RegistryKind string

const (
	RegistryKindGit        RegistryKind = "git"
	RegistryKindFilesystem RegistryKind = "filesystem"
)

// VersionDbEntry is one row of a port's versions file: which version,
// under which comparison scheme, and where to find its port tree.
type VersionDbEntry struct {
	Scheme  Scheme
	Version Version
	Kind    LocatorKind
	// Locator is either 40 lowercase hex characters (LocatorGitTree)
	// or a "$/"-relative path already resolved against a registry
	// root (LocatorPath).
	Locator string
}

// PortVersionsIndex holds a port's versions file in document order.
// Versions and Entries are parallel and always equal in length;
// Entries[i] describes Versions[i]. First match wins on lookup.
type PortVersionsIndex struct {
	Versions []Version
	Entries  []VersionDbEntry
}

// Find returns the entry for the given version, in document order
// (first match wins), or false if it is not listed.
func (idx PortVersionsIndex) Find(version Version) (VersionDbEntry, bool) {
	for i, v := range idx.Versions {
		if v.Equal(version) {
			return idx.Entries[i], true
		}
	}
	return VersionDbEntry{}, false
}

// Baseline maps a port name to its pinned Version. Keys are unique;
// iteration order is irrelevant.
type Baseline map[string]Version

// PathAndLocation is the result of a successful port lookup: a path to
// a materialized port tree, and an opaque provenance string surfaced
// in logs and telemetry but never parsed by the core.
type PathAndLocation struct {
	Path     string
	Location string
}

// SourceControlFile is the parsed port manifest. The core treats it
// opaquely except for Name, Version, and Scheme.
type SourceControlFile struct {
	Name    string
	Version Version
	Scheme  Scheme

	// Raw carries the rest of the manifest verbatim so that adapters
	// which need more (dependencies, description, homepage) can
	// re-parse it without the core needing to model those fields.
	Raw map[string]any
}
