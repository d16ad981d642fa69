package core

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

var hex40 = regexp.MustCompile(`^[0-9a-f]{40}$`)

// versionFieldSchemes maps the JSON key that carries a version string
// to the scheme it implies. Exactly one of these keys must be present
// per versions-file entry.
var versionFieldSchemes = map[string]types.Scheme{
	"version":        types.SchemeRelaxed,
	"version-semver": types.SchemeSemver,
	"version-date":   types.SchemeDate,
	"version-string": types.SchemeString,
}

type rawVersionsFile struct {
	Versions []map[string]json.RawMessage `json:"versions"`
}

// LoadVersions loads and validates a port's versions file. A missing
// file is not an error: it returns (nil, nil) so callers can fall
// through to another registry or to a delegate backend.
//
// Calling with kind == types.RegistryKindFilesystem and an empty
// registryRoot is a programming error: filesystem locators cannot be
// resolved without a root to resolve them against.
func LoadVersions(ctx context.Context, fs ports.FileSystemPort, kind types.RegistryKind, versionsRoot string, portName string, registryRoot string) (*types.PortVersionsIndex, error) {
	if kind == types.RegistryKindFilesystem {
		assert.NotEmpty(ctx, registryRoot, "filesystem registry requires a non-empty registry root")
	}

	versionsPath := versionsFilePath(versionsRoot, portName)
	content, err := fs.ReadFile(versionsPath)
	if err != nil {
		if fs.IsNotFound(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read versions file: " + versionsPath).
			WithCause(err)
	}
	return ParseVersionsContent(content, versionsPath, kind, registryRoot)
}

// ParseVersionsContent parses versions-file JSON already in hand (e.g.
// fetched via `git show <sha>:versions/x-/xyz.json` rather than read
// from the filesystem). sourceLabel is used only to annotate error
// messages.
func ParseVersionsContent(content string, sourceLabel string, kind types.RegistryKind, registryRoot string) (*types.PortVersionsIndex, error) {
	var raw rawVersionsFile
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed versions file: " + sourceLabel).
			WithCause(err)
	}

	idx := &types.PortVersionsIndex{}
	for i, entry := range raw.Versions {
		parsed, err := parseVersionEntry(entry, kind, registryRoot)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s: entry %d invalid", sourceLabel, i)).
				WithCause(err)
		}
		idx.Versions = append(idx.Versions, parsed.Version)
		idx.Entries = append(idx.Entries, parsed)
	}
	return idx, nil
}

func versionsFilePath(versionsRoot string, portName string) string {
	firstChar := "-"
	if len(portName) > 0 {
		firstChar = string(portName[0])
	}
	return path.Join(versionsRoot, firstChar+"-", portName+".json")
}

func parseVersionEntry(entry map[string]json.RawMessage, kind types.RegistryKind, registryRoot string) (types.VersionDbEntry, error) {
	var scheme types.Scheme
	var upstream string
	schemeFields := 0
	for field, implied := range versionFieldSchemes {
		raw, ok := entry[field]
		if !ok {
			continue
		}
		schemeFields++
		scheme = implied
		if err := json.Unmarshal(raw, &upstream); err != nil {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("version field must be a string: " + field)
		}
	}
	if schemeFields != 1 {
		return types.VersionDbEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("entry must specify exactly one of version, version-semver, version-date, version-string")
	}

	var revision uint64
	if raw, ok := entry["port-version"]; ok {
		if err := json.Unmarshal(raw, &revision); err != nil {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("port-version must be a non-negative integer")
		}
	}

	gitTree, hasGitTree := entry["git-tree"]
	pathField, hasPath := entry["path"]
	_, hasPortVersion := entry["port-version"]
	allowedKeys := 1 // the version field, already confirmed present above
	if hasPortVersion {
		allowedKeys++
	}
	if hasGitTree {
		allowedKeys++
	}
	if hasPath {
		allowedKeys++
	}
	if len(entry) != allowedKeys {
		return types.VersionDbEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("entry has unrecognized fields")
	}

	switch kind {
	case types.RegistryKindGit:
		if !hasGitTree || hasPath {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("git registry entries require git-tree and must not have path")
		}
		var tree string
		if err := json.Unmarshal(gitTree, &tree); err != nil || !hex40.MatchString(tree) {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("git-tree must be 40 lowercase hex characters")
		}
		return types.VersionDbEntry{
			Scheme:  scheme,
			Version: types.Version{Upstream: upstream, Revision: revision},
			Kind:    types.LocatorGitTree,
			Locator: tree,
		}, nil

	case types.RegistryKindFilesystem:
		if !hasPath || hasGitTree {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("filesystem registry entries require path and must not have git-tree")
		}
		var rel string
		if err := json.Unmarshal(pathField, &rel); err != nil {
			return types.VersionDbEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("path must be a string")
		}
		resolved, err := resolveRegistryPath(registryRoot, rel)
		if err != nil {
			return types.VersionDbEntry{}, err
		}
		return types.VersionDbEntry{
			Scheme:  scheme,
			Version: types.Version{Upstream: upstream, Revision: revision},
			Kind:    types.LocatorPath,
			Locator: resolved,
		}, nil

	default:
		return types.VersionDbEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown registry kind")
	}
}

// resolveRegistryPath validates a filesystem-registry locator and
// resolves it against registryRoot. rel must start with "$/", use "/"
// delimiters only, and contain no "." or ".." segment.
func resolveRegistryPath(registryRoot string, rel string) (string, error) {
	if !strings.HasPrefix(rel, "$/") {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("path must start with $/: " + rel)
	}
	if strings.Contains(rel, "\\") {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("path must not contain backslashes: " + rel)
	}
	if strings.Contains(rel, "//") {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("path must not contain a doubled separator: " + rel)
	}
	trimmed := strings.TrimPrefix(rel, "$/")
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "." || segment == ".." {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("path must not have dots: " + rel)
		}
	}
	return path.Join(registryRoot, trimmed), nil
}
