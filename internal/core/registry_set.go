package core

import (
	"context"
	"sort"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"

	"portresolve/internal/ports"
)

const exactMatchScore = ^uint64(0) // SIZE_MAX equivalent: exact patterns always outrank prefixes

// Registration binds a set of name patterns to a backend. A pattern is
// either an exact port name or a prefix ending in "*".
type Registration struct {
	Patterns []string
	Registry ports.RegistryPort
}

// RegistrySet routes a port name to the registry that should resolve
// it: registrations are matched by pattern, longest (or exact) match
// wins, and ties fall back to registration order.
type RegistrySet struct {
	registrations []Registration
	def           ports.RegistryPort
}

func NewRegistrySet(def ports.RegistryPort, registrations ...Registration) *RegistrySet {
	for _, reg := range registrations {
		assert.Assert(context.Background(), len(reg.Patterns) > 0, "registry registration must have at least one pattern")
	}
	return &RegistrySet{registrations: registrations, def: def}
}

// PackagePatternMatch scores how well name matches pattern: SIZE_MAX
// for an exact match, len(pattern) for a wildcard prefix match, 0 for
// no match.
func PackagePatternMatch(name string, pattern string) uint64 {
	if name == pattern {
		return exactMatchScore
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		if strings.HasPrefix(name, prefix) {
			return uint64(len(pattern))
		}
	}
	return 0
}

type scoredRegistration struct {
	registration Registration
	score        uint64
	order        int
}

// RegistriesForPort returns every registration that matches name,
// ordered by descending score with registration order as the tie
// break (a stable sort, so equal scores preserve input order).
func (rs *RegistrySet) RegistriesForPort(name string) []Registration {
	var candidates []scoredRegistration
	for i, reg := range rs.registrations {
		best := uint64(0)
		for _, p := range reg.Patterns {
			if s := PackagePatternMatch(name, p); s > best {
				best = s
			}
		}
		if best > 0 {
			candidates = append(candidates, scoredRegistration{registration: reg, score: best, order: i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	out := make([]Registration, len(candidates))
	for i, c := range candidates {
		out[i] = c.registration
	}
	return out
}

// RegistryForPort returns the highest-priority match for name, or the
// default registry if nothing matches.
func (rs *RegistrySet) RegistryForPort(name string) ports.RegistryPort {
	candidates := rs.RegistriesForPort(name)
	if len(candidates) == 0 {
		return rs.def
	}
	return candidates[0].Registry
}

// GetAllReachablePortNames enumerates every name any registration or
// the default registry could resolve. Each registration's contribution
// is filtered down to names actually selectable through its own
// patterns; the default registry's contribution is unfiltered.
func (rs *RegistrySet) GetAllReachablePortNames(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}

	for _, reg := range rs.registrations {
		var names []string
		if err := reg.Registry.AppendAllPortNames(ctx, &names); err != nil {
			return nil, err
		}
		for _, name := range names {
			matched := false
			for _, p := range reg.Patterns {
				if PackagePatternMatch(name, p) > 0 {
					matched = true
					break
				}
			}
			if matched {
				seen[name] = struct{}{}
			}
		}
	}

	var defaultNames []string
	if err := rs.def.AppendAllPortNames(ctx, &defaultNames); err != nil {
		return nil, err
	}
	for _, name := range defaultNames {
		seen[name] = struct{}{}
	}

	return sortedKeys(seen), nil
}

// TryGetAllReachablePortNamesNoNetwork mirrors GetAllReachablePortNames
// without requiring network access. When a backend cannot answer
// offline it contributes its exact-match patterns as a lower bound, so
// offline tooling can still complete exact names even without a full
// listing.
func (rs *RegistrySet) TryGetAllReachablePortNamesNoNetwork(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}

	contribute := func(reg Registration) error {
		var names []string
		ok, err := reg.Registry.TryAppendAllPortNamesNoNetwork(ctx, &names)
		if err != nil {
			return err
		}
		if !ok {
			for _, p := range reg.Patterns {
				if !strings.HasSuffix(p, "*") {
					seen[p] = struct{}{}
				}
			}
			return nil
		}
		for _, name := range names {
			matched := false
			for _, p := range reg.Patterns {
				if PackagePatternMatch(name, p) > 0 {
					matched = true
					break
				}
			}
			if matched {
				seen[name] = struct{}{}
			}
		}
		return nil
	}

	for _, reg := range rs.registrations {
		if err := contribute(reg); err != nil {
			return nil, err
		}
	}

	var defaultNames []string
	ok, err := rs.def.TryAppendAllPortNamesNoNetwork(ctx, &defaultNames)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, name := range defaultNames {
			seen[name] = struct{}{}
		}
	}

	return sortedKeys(seen), nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
