package adapters

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/shared"
)

// CLIGitAdapter shells out to the system git binary, the same way
// vcpkg's own VcpkgPaths git_* methods do. cacheDir is where extracted
// trees and checked-out ports are materialized.
//
// GitPort's ExtractTree/FindObjectIDForRemotePath/CheckoutPort take a
// bare tree or commit id with no accompanying repo. lastMirror answers
// most calls cheaply (the object almost always lives in whatever was
// just fetched), but a fresh adapter instance in a fresh process has
// no lastMirror yet, so resolveMirrorFor falls back to probing every
// known mirror under cacheDir/registries for the object.
type CLIGitAdapter struct {
	cacheDir   string
	lastMirror string
}

func NewCLIGitAdapter(cacheDir string) *CLIGitAdapter {
	return &CLIGitAdapter{cacheDir: cacheDir}
}

func (a *CLIGitAdapter) run(ctx context.Context, dir string, args ...string) (string, error) {
	return a.runEnv(ctx, dir, nil, args...)
}

func (a *CLIGitAdapter) runEnv(ctx context.Context, dir string, extraEnv []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("git command failed: " + strings.Join(args, " ")).
			WithCause(shared.CommandError(output, err))
	}
	return strings.TrimSpace(string(output)), nil
}

// Fetch retrieves repo at reference and returns the resolved commit
// SHA, using a bare mirror clone under cacheDir keyed by repo.
func (a *CLIGitAdapter) Fetch(ctx context.Context, repo string, reference string) (string, error) {
	mirror := a.mirrorDir(repo)
	if _, err := os.Stat(mirror); os.IsNotExist(err) {
		if _, err := a.run(ctx, "", "clone", "--bare", "--filter=blob:none", repo, mirror); err != nil {
			return "", err
		}
	}
	if _, err := a.run(ctx, mirror, "fetch", "origin", reference); err != nil {
		return "", err
	}
	sha, err := a.run(ctx, mirror, "rev-parse", "FETCH_HEAD")
	if err != nil {
		return "", err
	}
	a.lastMirror = mirror
	return sha, nil
}

// Show returns the content of a "<treeish>:<path>" object, e.g. a
// baseline or versions file at a pinned commit, without checking
// anything out.
func (a *CLIGitAdapter) Show(ctx context.Context, treeish string, repoDir string) (string, error) {
	dir := repoDir
	if dir == "" {
		dir = a.lastMirror
	}
	return a.run(ctx, dir, "show", treeish)
}

// ExtractTree materializes a single tree object into cacheDir, keyed
// by tree id so repeated extractions are idempotent.
func (a *CLIGitAdapter) ExtractTree(ctx context.Context, treeID string) (string, error) {
	dest := filepath.Join(a.cacheDir, "trees", treeID)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	mirror, err := a.resolveMirrorFor(ctx, treeID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create tree extraction dir: " + dest).
			WithCause(err)
	}
	if err := a.checkoutTreeInto(ctx, mirror, treeID, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// resolveMirrorFor finds which known mirror contains objectID (a tree
// or commit id), trying the most recently fetched mirror first since
// that answers the overwhelming majority of calls without a probe.
func (a *CLIGitAdapter) resolveMirrorFor(ctx context.Context, objectID string) (string, error) {
	if a.lastMirror != "" {
		if _, err := a.run(ctx, a.lastMirror, "cat-file", "-e", objectID); err == nil {
			return a.lastMirror, nil
		}
	}
	registriesDir := filepath.Join(a.cacheDir, "registries")
	entries, err := os.ReadDir(registriesDir)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no known git mirrors contain object " + objectID).
			WithCause(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(registriesDir, e.Name())
		if dir == a.lastMirror {
			continue
		}
		if _, err := a.run(ctx, dir, "cat-file", "-e", objectID); err == nil {
			return dir, nil
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("object not found in any known git mirror: " + objectID)
}

// checkoutTreeInto reads treeID into a scratch index isolated via
// GIT_INDEX_FILE, then checks that index out into dest. checkout-index
// only ever reads from an index, never a tree directly, and the mirror
// is a bare repo with no working index of its own to borrow.
func (a *CLIGitAdapter) checkoutTreeInto(ctx context.Context, mirror string, treeID string, dest string) error {
	scratchIndex := filepath.Join(a.cacheDir, "tmp-index-"+shortSHA(treeID)+"-"+filepath.Base(dest))
	if err := os.MkdirAll(filepath.Dir(scratchIndex), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create scratch index dir").
			WithCause(err)
	}
	defer os.Remove(scratchIndex)

	env := []string{"GIT_INDEX_FILE=" + scratchIndex}
	if _, err := a.runEnv(ctx, mirror, env, "read-tree", treeID); err != nil {
		return err
	}
	if _, err := a.runEnv(ctx, mirror, env, "checkout-index", "-a", "--prefix="+dest+string(filepath.Separator)); err != nil {
		return err
	}
	return nil
}

// FindObjectIDForRemotePath resolves the tree id of subdir as it
// existed at commit.
func (a *CLIGitAdapter) FindObjectIDForRemotePath(ctx context.Context, commit string, subdir string) (string, error) {
	mirror, err := a.resolveMirrorFor(ctx, commit)
	if err != nil {
		return "", err
	}
	out, err := a.run(ctx, mirror, "rev-parse", commit+":"+subdir)
	if err != nil {
		return "", err
	}
	return out, nil
}

// CheckoutPort materializes a single port's tree into
// <repoDir>/<name>-<treeID prefix>.
func (a *CLIGitAdapter) CheckoutPort(ctx context.Context, name string, treeID string, repoDir string) (string, error) {
	dest := filepath.Join(repoDir, name+"-"+shortSHA(treeID))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	mirror, err := a.resolveMirrorFor(ctx, treeID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create port checkout dir: " + dest).
			WithCause(err)
	}
	if err := a.checkoutTreeInto(ctx, mirror, treeID, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func (a *CLIGitAdapter) mirrorDir(repo string) string {
	return filepath.Join(a.cacheDir, "registries", sanitizeRepoName(repo))
}

// MirrorPath implements ports.GitPort.
func (a *CLIGitAdapter) MirrorPath(repo string) string {
	return a.mirrorDir(repo)
}

func sanitizeRepoName(repo string) string {
	replacer := strings.NewReplacer("/", "_", ":", "_", "@", "_")
	return replacer.Replace(repo)
}

var _ ports.GitPort = (*CLIGitAdapter)(nil)
