package core

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
	"github.com/jinzhu/now"

	"portresolve/internal/types"
)

// CompareSchemed orders two SchemedVersions using their declared
// scheme's comparison discipline, falling back to comparing the
// revision counter when the upstream strings tie. It is used only by
// the supplemental "update" report (SPEC_FULL.md §7); the resolution
// core itself never orders versions, it only matches them by equality.
//
// For the semver, string and date schemes, a parse failure on either
// side falls back to a plain string compare of the upstream field (the
// relaxed scheme has its own fallback, see compareRelaxed), and an
// unknown scheme always uses the plain string compare, so that
// update-checking degrades gracefully
// instead of failing outright — this is advisory output, not a
// dependency solve.
func CompareSchemed(a types.SchemedVersion, b types.SchemedVersion) int {
	if a.Version.Upstream == b.Version.Upstream {
		return compareRevisions(a.Version.Revision, b.Version.Revision)
	}
	switch a.Scheme {
	case types.SchemeSemver:
		if c, ok := compareSemver(a.Version.Upstream, b.Version.Upstream); ok {
			return tiebreak(c, a, b)
		}
	case types.SchemeString:
		if c, ok := compareDeb(a.Version.Upstream, b.Version.Upstream); ok {
			return tiebreak(c, a, b)
		}
	case types.SchemeDate:
		if c, ok := compareDate(a.Version.Upstream, b.Version.Upstream); ok {
			return tiebreak(c, a, b)
		}
	case types.SchemeRelaxed:
		if c, ok := compareRelaxed(a.Version.Upstream, b.Version.Upstream); ok {
			return tiebreak(c, a, b)
		}
	}
	return tiebreak(strings.Compare(a.Version.Upstream, b.Version.Upstream), a, b)
}

func tiebreak(c int, a types.SchemedVersion, b types.SchemedVersion) int {
	if c != 0 {
		return c
	}
	return compareRevisions(a.Version.Revision, b.Version.Revision)
}

func compareRevisions(a uint64, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareSemver(a string, b string) (int, bool) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

func compareDeb(a string, b string) (int, bool) {
	va, err := debversion.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

func compareDate(a string, b string) (int, bool) {
	ta, err := now.Parse(a)
	if err != nil {
		return 0, false
	}
	tb, err := now.Parse(b)
	if err != nil {
		return 0, false
	}
	switch {
	case ta.Before(tb):
		return -1, true
	case ta.After(tb):
		return 1, true
	default:
		return 0, true
	}
}

// compareRelaxed uses PEP 440 ordering when both strings parse as PEP
// 440 versions. Otherwise it compares dotted version strings segment
// by segment, treating a missing trailing segment as 0 (e.g. "1.2" <
// "1.2.1"), numerically where both segments are numeric and
// lexicographically where either is not. It always reports ok.
func compareRelaxed(a string, b string) (int, bool) {
	if _, err := pep440.Parse(a); err == nil {
		if _, err := pep440.Parse(b); err == nil {
			va, _ := pep440.Parse(a)
			vb, _ := pep440.Parse(b)
			return va.Compare(vb), true
		}
	}
	segsA := strings.Split(a, ".")
	segsB := strings.Split(b, ".")
	for i := 0; i < len(segsA) || i < len(segsB); i++ {
		sa, sb := segAt(segsA, i), segAt(segsB, i)
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		if errA == nil && errB == nil {
			switch {
			case na < nb:
				return -1, true
			case na > nb:
				return 1, true
			}
			continue
		}
		if sa != sb {
			return strings.Compare(sa, sb), true
		}
	}
	return 0, true
}

func segAt(segs []string, i int) string {
	if i >= len(segs) {
		return "0"
	}
	return segs[i]
}
