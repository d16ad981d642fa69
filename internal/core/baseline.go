package core

import (
	"encoding/json"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

type rawBaselineEntry struct {
	Version       *string `json:"version"`
	VersionSemver *string `json:"version-semver"`
	VersionDate   *string `json:"version-date"`
	VersionString *string `json:"version-string"`
	PortVersion   uint64  `json:"port-version"`
}

// LoadBaseline reads and parses the registry baseline file, returning
// the mapping for baselineKey. A missing file is not an error: it is
// logged and (nil, nil) is returned. An empty baselineKey defaults to
// "default".
func LoadBaseline(fs ports.FileSystemPort, baselinePath string, baselineKey string) (types.Baseline, error) {
	if baselineKey == "" {
		baselineKey = "default"
	}

	content, err := fs.ReadFile(baselinePath)
	if err != nil {
		if fs.IsNotFound(err) {
			log.Warn().Str("path", baselinePath).Msg("baseline file not found")
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read baseline file: " + baselinePath).
			WithCause(err)
	}
	return ParseBaselineContent(content, baselinePath, baselineKey)
}

// ParseBaselineContent parses baseline JSON already in hand (e.g.
// fetched via `git show <sha>:versions/baseline.json` rather than read
// from the filesystem) and looks up baselineKey. sourceLabel is used
// only to annotate error messages. An empty baselineKey defaults to
// "default".
func ParseBaselineContent(content string, sourceLabel string, baselineKey string) (types.Baseline, error) {
	if baselineKey == "" {
		baselineKey = "default"
	}

	var doc map[string]map[string]rawBaselineEntry
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed baseline file: " + sourceLabel).
			WithCause(err)
	}

	keyed, ok := doc[baselineKey]
	if !ok {
		return nil, nil
	}

	result := types.Baseline{}
	for name, entry := range keyed {
		upstream, err := entry.upstream()
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(sourceLabel + ": baseline entry for " + name + " is malformed").
				WithCause(err)
		}
		result[name] = types.Version{Upstream: upstream, Revision: entry.PortVersion}
	}
	return result, nil
}

func (e rawBaselineEntry) upstream() (string, error) {
	count := 0
	var value string
	for _, candidate := range []*string{e.Version, e.VersionSemver, e.VersionDate, e.VersionString} {
		if candidate != nil {
			count++
			value = *candidate
		}
	}
	if count != 1 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("baseline entry must specify exactly one version field")
	}
	return value, nil
}
