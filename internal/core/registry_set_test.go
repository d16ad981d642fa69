package core

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPackagePatternMatch(t *testing.T) {
	require.Equal(t, exactMatchScore, PackagePatternMatch("zlib", "zlib"))
	require.Equal(t, uint64(len("boost-*")), PackagePatternMatch("boost-filesystem", "boost-*"))
	require.Equal(t, uint64(0), PackagePatternMatch("zlib", "boost-*"))
	require.Equal(t, uint64(0), PackagePatternMatch("boost", "boost-*"))
}

func TestRegistryForPort_ExactBeatsWildcardBeatsDefault(t *testing.T) {
	def := newFakeRegistry("default")
	wildcard := newFakeRegistry("wildcard")
	exact := newFakeRegistry("exact")

	rs := NewRegistrySet(def,
		Registration{Patterns: []string{"boost-*"}, Registry: wildcard},
		Registration{Patterns: []string{"boost-filesystem"}, Registry: exact},
	)

	require.Same(t, exact, rs.RegistryForPort("boost-filesystem"))
	require.Same(t, wildcard, rs.RegistryForPort("boost-other"))
	require.Same(t, def, rs.RegistryForPort("zlib"))
}

func TestRegistriesForPort_StableOrderOnTie(t *testing.T) {
	def := newFakeRegistry("default")
	a := newFakeRegistry("a")
	b := newFakeRegistry("b")
	rs := NewRegistrySet(def,
		Registration{Patterns: []string{"foo-*"}, Registry: a},
		Registration{Patterns: []string{"foo-*"}, Registry: b},
	)
	candidates := rs.RegistriesForPort("foo-bar")
	require.Len(t, candidates, 2)
	require.Same(t, a, candidates[0].Registry)
	require.Same(t, b, candidates[1].Registry)
}

func TestGetAllReachablePortNames_FiltersByOwnPatterns(t *testing.T) {
	def := newFakeRegistry("default")
	def.names = []string{"zlib"}
	boost := newFakeRegistry("boost")
	boost.names = []string{"boost-filesystem", "boost-system", "unrelated"}

	rs := NewRegistrySet(def, Registration{Patterns: []string{"boost-*"}, Registry: boost})
	names, err := rs.GetAllReachablePortNames(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"zlib", "boost-filesystem", "boost-system"}, names)
}

func TestTryGetAllReachablePortNamesNoNetwork_FallsBackToExactPatterns(t *testing.T) {
	def := newFakeRegistry("default")
	def.offlineReady = true
	def.offlineNames = []string{"zlib"}

	git := newFakeRegistry("git")
	git.offlineReady = false // cannot answer offline

	rs := NewRegistrySet(def,
		Registration{Patterns: []string{"boost-filesystem", "boost-*"}, Registry: git},
	)
	names, err := rs.TryGetAllReachablePortNamesNoNetwork(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"zlib", "boost-filesystem"}, names)
}

// TestGetAllReachablePortNames_Table exercises several registration
// layouts at once. The result is a sorted []string, so a mismatch is a
// set difference; cmp.Diff spells out exactly which names were added,
// dropped, or misfiltered instead of just reporting "not equal".
func TestGetAllReachablePortNames_Table(t *testing.T) {
	cases := []struct {
		name          string
		defaultNames  []string
		registrations []Registration
		want          []string
	}{
		{
			name:         "default only",
			defaultNames: []string{"zlib", "openssl"},
			want:         []string{"openssl", "zlib"},
		},
		{
			name:         "wildcard registration filters its own contribution",
			defaultNames: []string{"zlib"},
			registrations: []Registration{
				{Patterns: []string{"boost-*"}, Registry: withNames("boost-filesystem", "boost-system", "unrelated")},
			},
			want: []string{"boost-filesystem", "boost-system", "zlib"},
		},
		{
			name:         "exact pattern registration contributes only the exact name",
			defaultNames: []string{"zlib"},
			registrations: []Registration{
				{Patterns: []string{"curl"}, Registry: withNames("curl", "curl-extra")},
			},
			want: []string{"curl", "zlib"},
		},
		{
			name:         "overlapping registrations deduplicate",
			defaultNames: []string{"zlib"},
			registrations: []Registration{
				{Patterns: []string{"boost-*"}, Registry: withNames("boost-filesystem")},
				{Patterns: []string{"boost-filesystem"}, Registry: withNames("boost-filesystem")},
			},
			want: []string{"boost-filesystem", "zlib"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := newFakeRegistry("default")
			def.names = tc.defaultNames
			rs := NewRegistrySet(def, tc.registrations...)

			got, err := rs.GetAllReachablePortNames(context.Background())
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("reachable port names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// withNames builds a fakeRegistry whose AppendAllPortNames contributes
// exactly the given names, for tests that only care about the listing
// path.
func withNames(names ...string) *fakeRegistry {
	r := newFakeRegistry("fake")
	r.names = names
	return r
}
