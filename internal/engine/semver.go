package engine

import (
	"strings"

	"golang.org/x/mod/semver"
)

// compareVersions compares two engine version strings with
// golang.org/x/mod/semver, tolerating a missing leading "v" (semver.Compare
// requires one). Malformed input on either side is treated as "different"
// (non-zero) rather than panicking or erroring: Rehydrate only uses this
// to decide whether to warn.
func compareVersions(a, b string) int {
	a = ensureV(a)
	b = ensureV(b)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		if a == b {
			return 0
		}
		return 1
	}
	return semver.Compare(a, b)
}

func ensureV(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
