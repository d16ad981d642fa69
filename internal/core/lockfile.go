package core

import (
	"context"
	"sort"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// LockFile is a multimap from repo to Entry, keyed loosely: a repo may
// have several entries, one per distinct reference. It tracks whether
// it has been mutated since load so callers only rewrite the file
// when necessary.
type LockFile struct {
	git      ports.GitPort
	entries  []types.LockEntry
	modified bool
}

// EntryHandle is a stable reference to one LockFile entry, expressed
// as an index rather than a pointer so the handle survives across
// calls without aliasing concerns (see SPEC_FULL.md §12, "cycles").
type EntryHandle struct {
	index int
}

type lockFileDocument struct {
	Entries []lockFileEntryDocument `yaml:"entries"`
}

type lockFileEntryDocument struct {
	Repo      string `yaml:"repo"`
	Reference string `yaml:"reference"`
	CommitID  string `yaml:"commit"`
}

// NewLockFile constructs an empty, in-memory lockfile backed by git
// for fetches. Use LoadLockFile to read one from disk.
func NewLockFile(git ports.GitPort) *LockFile {
	return &LockFile{git: git}
}

// LoadLockFile reads a persisted lockfile. Every entry it loads starts
// Stale: true, forcing one re-confirmation against the remote per
// process run. A missing file yields an empty, non-stale lockfile
// (there is nothing to distrust yet).
func LoadLockFile(fs ports.FileSystemPort, git ports.GitPort, path string) (*LockFile, error) {
	lf := NewLockFile(git)
	content, err := fs.ReadFile(path)
	if err != nil {
		if fs.IsNotFound(err) {
			return lf, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read lockfile: " + path).
			WithCause(err)
	}
	var doc lockFileDocument
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed lockfile: " + path).
			WithCause(err)
	}
	for _, e := range doc.Entries {
		lf.entries = append(lf.entries, types.LockEntry{
			Repo:      e.Repo,
			Reference: e.Reference,
			CommitID:  e.CommitID,
			Stale:     true,
		})
	}
	return lf, nil
}

// Save writes the lockfile back to path if and only if it has been
// modified since load. Entries are emitted sorted by (repo, reference)
// so the on-disk form is stable across runs with identical content.
func (lf *LockFile) Save(fs ports.FileSystemPort, path string) error {
	if !lf.modified {
		return nil
	}
	ordered := append([]types.LockEntry(nil), lf.entries...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Repo != ordered[j].Repo {
			return ordered[i].Repo < ordered[j].Repo
		}
		return ordered[i].Reference < ordered[j].Reference
	})
	doc := lockFileDocument{}
	for _, e := range ordered {
		doc.Entries = append(doc.Entries, lockFileEntryDocument{
			Repo:      e.Repo,
			Reference: e.Reference,
			CommitID:  e.CommitID,
		})
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal lockfile").
			WithCause(err)
	}
	if err := fs.WriteFile(path, string(out)); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write lockfile: " + path).
			WithCause(err)
	}
	lf.modified = false
	return nil
}

// Modified reports whether the lockfile has unsaved changes.
func (lf *LockFile) Modified() bool {
	return lf.modified
}

// GetOrFetch returns a handle to the entry for (repo, reference),
// fetching it from the Git collaborator if no such entry exists yet.
func (lf *LockFile) GetOrFetch(ctx context.Context, repo string, reference string) (EntryHandle, error) {
	for i, e := range lf.entries {
		if e.Repo == repo && e.Reference == reference {
			return EntryHandle{index: i}, nil
		}
	}
	commit, err := lf.git.Fetch(ctx, repo, reference)
	if err != nil {
		return EntryHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch " + repo + "@" + reference).
			WithCause(err)
	}
	lf.entries = append(lf.entries, types.LockEntry{
		Repo:      repo,
		Reference: reference,
		CommitID:  commit,
		Stale:     false,
	})
	lf.modified = true
	log.Debug().Str("repo", repo).Str("reference", reference).Str("commit", commit).Msg("lockfile entry created")
	return EntryHandle{index: len(lf.entries) - 1}, nil
}

// Entry returns the current state of the entry a handle refers to. A
// handle from a different LockFile, or one issued before entries were
// ever appended, is a programming error, not a runtime condition.
func (lf *LockFile) Entry(handle EntryHandle) types.LockEntry {
	assert.Assert(context.Background(), handle.index >= 0 && handle.index < len(lf.entries), "lock entry handle out of range")
	return lf.entries[handle.index]
}

// EnsureUpToDate re-fetches the entry's commit if it is Stale, clearing
// the flag on success. It is a no-op on an already-fresh entry.
func (lf *LockFile) EnsureUpToDate(ctx context.Context, handle EntryHandle) error {
	assert.Assert(ctx, handle.index >= 0 && handle.index < len(lf.entries), "lock entry handle out of range")
	entry := &lf.entries[handle.index]
	if !entry.Stale {
		return nil
	}
	commit, err := lf.git.Fetch(ctx, entry.Repo, entry.Reference)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to refresh " + entry.Repo + "@" + entry.Reference).
			WithCause(err)
	}
	entry.CommitID = commit
	entry.Stale = false
	lf.modified = true
	log.Debug().Str("repo", entry.Repo).Str("reference", entry.Reference).Str("commit", commit).Msg("lockfile entry refreshed")
	return nil
}
