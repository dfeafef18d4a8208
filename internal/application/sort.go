package application

import (
	"sort"
	"strings"

	"github.com/agpm-go/agpm/internal/domain/model"
)

// sortPullRequests orders prs in place by Title according to mode: "alpha"
// (case-sensitive ascending), "reverse", "alphanum" (digit-run-aware), or
// "reverse-alphanum". An unrecognized mode falls back to "alpha" — Load
// already rejects anything else, so this only matters for direct callers.
func sortPullRequests(prs []model.PullRequest, mode string) {
	var less func(i, j int) bool

	switch mode {
	case "reverse":
		less = func(i, j int) bool { return prs[i].Title > prs[j].Title }
	case "alphanum":
		less = func(i, j int) bool { return compareAlphanum(prs[i].Title, prs[j].Title) < 0 }
	case "reverse-alphanum":
		less = func(i, j int) bool { return compareAlphanum(prs[i].Title, prs[j].Title) > 0 }
	default:
		less = func(i, j int) bool { return prs[i].Title < prs[j].Title }
	}

	sort.SliceStable(prs, less)
}

// compareAlphanum splits each title into runs of digits and non-digits:
// digit runs compare as integers, non-digit runs compare case-insensitively.
// When one string's runs are a prefix of the other's, the shorter string
// sorts first.
func compareAlphanum(a, b string) int {
	runsA, runsB := splitRuns(a), splitRuns(b)

	for i := 0; i < len(runsA) && i < len(runsB); i++ {
		if c := compareRun(runsA[i], runsB[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(runsA) < len(runsB):
		return -1
	case len(runsA) > len(runsB):
		return 1
	default:
		return 0
	}
}

func splitRuns(s string) []string {
	if s == "" {
		return nil
	}

	var runs []string
	var cur []rune
	curDigit := isDigitByte(s[0])

	for _, r := range s {
		d := r >= '0' && r <= '9'
		if len(cur) > 0 && d != curDigit {
			runs = append(runs, string(cur))
			cur = nil
		}
		cur = append(cur, r)
		curDigit = d
	}
	if len(cur) > 0 {
		runs = append(runs, string(cur))
	}
	return runs
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

func compareRun(a, b string) int {
	if isDigitByte(a[0]) && isDigitByte(b[0]) {
		return compareNumericStrings(a, b)
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// compareNumericStrings compares two digit-only strings by numeric value
// without parsing into a machine integer, so arbitrarily long digit runs in
// a title never overflow.
func compareNumericStrings(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
