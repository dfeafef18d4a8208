// Package rules implements the pure, deterministic deciders that turn pull
// request and branch metadata into an action: a direct port of the
// original rule_engine's two classes, carrying their default mappings and
// precedence order.
package rules

import "strings"

// PRAction is the outcome of the pull request decider.
type PRAction string

// PRAction values.
const (
	PRActionNone   PRAction = "none"
	PRActionWait   PRAction = "wait"
	PRActionIgnore PRAction = "ignore"
	PRActionMerge  PRAction = "merge"
	PRActionClose  PRAction = "close"
)

// BranchAction is the outcome of the branch decider.
type BranchAction string

// BranchAction values.
const (
	BranchActionNone   BranchAction = "none"
	BranchActionKeep   BranchAction = "keep"
	BranchActionIgnore BranchAction = "ignore"
	BranchActionDelete BranchAction = "delete"
)

// StrayMode selects how the orchestrator identifies stray branches.
// "heuristic" and "combined" both alias the rule-based engine; no separate
// heuristic detector is implemented.
type StrayMode string

// StrayMode values.
const (
	StrayModeRule      StrayMode = "rule"
	StrayModeHeuristic StrayMode = "heuristic"
	StrayModeCombined  StrayMode = "combined"
)

// ParseStrayMode parses a configuration string into a StrayMode, defaulting
// to StrayModeRule for anything unrecognized or empty.
func ParseStrayMode(s string) StrayMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heuristic":
		return StrayModeHeuristic
	case "combined":
		return StrayModeCombined
	default:
		return StrayModeRule
	}
}

// Effective returns the stray-detection mode actually used: heuristic and
// combined collapse to rule-based detection.
func (m StrayMode) Effective() StrayMode {
	return StrayModeRule
}

// PullRequestInput carries the fields the PR decider consults.
type PullRequestInput struct {
	State          string // "open", "closed", "merged"
	MergeableState string // free-form server label
	Draft          bool
	CheckState     string // "unknown", "passed", "failed", "rejected"
}

// PullRequestRuleEngine decides an action for a pull request from its
// state, draft flag, mergeable_state, and rolled-up check state. Zero value
// is ready to use with the default mergeable_state mapping.
type PullRequestRuleEngine struct {
	overrides map[string]PRAction
}

// NewPullRequestRuleEngine returns an engine with the default mergeable_state
// mapping: dirty maps to Close; clean, blocked, unstable, failure, failed,
// and rejected all map to Merge.
func NewPullRequestRuleEngine() *PullRequestRuleEngine {
	return &PullRequestRuleEngine{overrides: map[string]PRAction{}}
}

// SetAction overrides the action for a normalized mergeable_state label.
func (e *PullRequestRuleEngine) SetAction(mergeableState string, action PRAction) {
	if e.overrides == nil {
		e.overrides = map[string]PRAction{}
	}
	e.overrides[strings.ToLower(mergeableState)] = action
}

func (e *PullRequestRuleEngine) actionFor(mergeableState string) (PRAction, bool) {
	label := strings.ToLower(mergeableState)
	if a, ok := e.overrides[label]; ok {
		return a, true
	}
	switch label {
	case "dirty":
		return PRActionClose, true
	case "clean", "blocked", "unstable", "failure", "failed", "rejected":
		return PRActionMerge, true
	default:
		return "", false
	}
}

// Decide applies the PR decider's precedence order:
//  1. state != open -> Ignore
//  2. draft -> Wait
//  3. mergeable_state mapping (default or overridden)
//  4. check_state in {passed, rejected} -> Merge, else Wait
func (e *PullRequestRuleEngine) Decide(in PullRequestInput) PRAction {
	if strings.ToLower(in.State) != "open" {
		return PRActionIgnore
	}
	if in.Draft {
		return PRActionWait
	}
	if a, ok := e.actionFor(in.MergeableState); ok {
		return a
	}
	switch strings.ToLower(in.CheckState) {
	case "passed", "rejected":
		return PRActionMerge
	default:
		return PRActionWait
	}
}

// BranchInput carries the fields the branch decider consults.
type BranchInput struct {
	StateLabel   string // free-form label, e.g. "stray", "new", "active", "dirty", "purge"
	Stray        bool
	NewlyCreated bool
}

// BranchRuleEngine decides an action for a branch from its state label and
// the stray/newly-created flags computed by the orchestrator.
type BranchRuleEngine struct {
	overrides map[string]BranchAction
}

// NewBranchRuleEngine returns an engine with the default state-label
// mapping: stray and dirty and purge delete; new and active keep.
func NewBranchRuleEngine() *BranchRuleEngine {
	return &BranchRuleEngine{overrides: map[string]BranchAction{}}
}

// SetAction overrides the action for a normalized state label.
func (e *BranchRuleEngine) SetAction(stateLabel string, action BranchAction) {
	e.overrides[strings.ToLower(stateLabel)] = action
}

func (e *BranchRuleEngine) actionForLabel(stateLabel string) (BranchAction, bool) {
	label := strings.ToLower(stateLabel)
	if label == "" {
		return "", false
	}
	if a, ok := e.overrides[label]; ok {
		return a, true
	}
	switch label {
	case "stray", "dirty", "purge":
		return BranchActionDelete, true
	case "new", "active":
		return BranchActionKeep, true
	default:
		return "", false
	}
}

// Decide applies the branch decider's precedence order: explicit
// state_label mapping first, then the stray flag, then the newly_created
// flag, defaulting to Keep.
func (e *BranchRuleEngine) Decide(in BranchInput) BranchAction {
	if a, ok := e.actionForLabel(in.StateLabel); ok {
		return a
	}
	if in.Stray {
		if a, ok := e.actionForLabel("stray"); ok {
			return a
		}
	}
	if in.NewlyCreated {
		if a, ok := e.actionForLabel("new"); ok {
			return a
		}
	}
	return BranchActionKeep
}
