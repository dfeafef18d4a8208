// Package hook implements the asynchronous event dispatcher: a bounded
// queue drained by a single worker that fans each event out to command and
// HTTP actions, with per-repository overrides of the global action set.
package hook

import (
	"regexp"
	"strings"
	"time"
)

// ActionKind distinguishes the two action shapes a Dispatcher can invoke.
type ActionKind int

// ActionKind values.
const (
	ActionCommand ActionKind = iota
	ActionHTTP
)

// Action is a single side effect to run when an event resolves to it. Only
// the fields relevant to Kind are populated: Command/Parameters for
// ActionCommand, Endpoint/Method/Headers/Parameters for ActionHTTP.
type Action struct {
	Kind       ActionKind
	Command    string
	Endpoint   string
	Method     string
	Headers    map[string]string
	Parameters []string
}

// Event is a dispatchable notification, queued with its dispatch time so
// the payload built at execution time carries a stable timestamp.
type Event struct {
	Name      string
	Data      map[string]any
	Timestamp time.Time
}

// RepositoryOverride narrows the global settings for repositories matching
// Pattern. A nil field means "not set"; the dispatcher falls back to the
// global value for that field. Pattern is either a literal "owner/repo"
// slug or a "regex:"-prefixed pattern, matched against the slug the same
// way branch protection patterns are matched.
type RepositoryOverride struct {
	Pattern        string
	Enabled        *bool
	DefaultActions []Action
	EventActions   map[string][]Action

	matcher overrideMatcher
}

// Settings is the full hook configuration: global defaults, per-event
// overrides, per-repository overrides, and the poll-threshold trigger
// values. The dispatcher does not act on the thresholds; the orchestrator
// reads its thresholds from config.HookConfig, not from Settings.
type Settings struct {
	Enabled         bool
	DefaultActions  []Action
	EventActions    map[string][]Action
	Overrides       []RepositoryOverride
	PullThreshold   int
	BranchThreshold int
}

// overrideMatcher mirrors the github adapter's branchMatcher: a literal
// string or a compiled regexp, compiled once so Dispatch never pays a
// regexp.Compile cost per event.
type overrideMatcher struct {
	literal string
	re      *regexp.Regexp
}

func newOverrideMatcher(pattern string) (overrideMatcher, error) {
	if rest, ok := strings.CutPrefix(pattern, "regex:"); ok {
		re, err := regexp.Compile(rest)
		if err != nil {
			return overrideMatcher{}, err
		}
		return overrideMatcher{re: re}, nil
	}
	return overrideMatcher{literal: pattern}, nil
}

func (m overrideMatcher) match(slug string) bool {
	if m.re != nil {
		return m.re.MatchString(slug)
	}
	return m.literal == slug
}

// extractRepo pulls "owner"/"repo" strings out of an event's data map, the
// only shape repository-override matching looks at.
func extractRepo(data map[string]any) (owner, repo string, ok bool) {
	o, oOK := data["owner"].(string)
	r, rOK := data["repo"].(string)
	if !oOK || !rOK || o == "" || r == "" {
		return "", "", false
	}
	return o, r, true
}
