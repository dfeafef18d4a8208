package github

import (
	"fmt"
	"regexp"
	"strings"
)

// branchMatcher tests a branch name against one configured pattern. A
// pattern prefixed with "regex:" compiles the remainder as a regular
// expression; anything else matches literally, the way the original
// protected_branches/protected_excludes lists are documented to behave.
type branchMatcher struct {
	literal string
	re      *regexp.Regexp
}

func newBranchMatcher(pattern string) (branchMatcher, error) {
	if rest, ok := strings.CutPrefix(pattern, "regex:"); ok {
		re, err := regexp.Compile(rest)
		if err != nil {
			return branchMatcher{}, fmt.Errorf("compiling branch pattern %q: %w", pattern, err)
		}
		return branchMatcher{re: re}, nil
	}
	return branchMatcher{literal: pattern}, nil
}

func (m branchMatcher) match(name string) bool {
	if m.re != nil {
		return m.re.MatchString(name)
	}
	return m.literal == name
}

// branchProtection holds the compiled protected/excluded pattern sets a
// Client applies to every repository, built once at Client construction so each protection
// check is a cheap linear scan rather than a recompile per call.
type branchProtection struct {
	protected []branchMatcher
	excludes  []branchMatcher
}

func newBranchProtection(protectedPatterns, excludePatterns []string) (*branchProtection, error) {
	bp := &branchProtection{}
	for _, p := range protectedPatterns {
		m, err := newBranchMatcher(p)
		if err != nil {
			return nil, err
		}
		bp.protected = append(bp.protected, m)
	}
	for _, p := range excludePatterns {
		m, err := newBranchMatcher(p)
		if err != nil {
			return nil, err
		}
		bp.excludes = append(bp.excludes, m)
	}
	return bp, nil
}

// IsProtected reports whether name matches a protected pattern and does not
// match any exclude pattern; excludes subtract from the protected set, they
// never add to it.
func (bp *branchProtection) IsProtected(name string) bool {
	if bp == nil {
		return false
	}
	protected := false
	for _, m := range bp.protected {
		if m.match(name) {
			protected = true
			break
		}
	}
	if !protected {
		return false
	}
	for _, m := range bp.excludes {
		if m.match(name) {
			return false
		}
	}
	return true
}
