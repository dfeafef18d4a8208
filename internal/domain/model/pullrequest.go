package model

import "time"

// PRState is the server-reported lifecycle state of a pull request.
type PRState string

// PRState values.
const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// CheckState is the rolled-up status of a pull request's CI checks.
type CheckState string

// CheckState values.
const (
	CheckStateUnknown CheckState = "unknown"
	CheckStatePassed  CheckState = "passed"
	CheckStateFailed  CheckState = "failed"
	CheckStateRejected CheckState = "rejected"
)

// PullRequest is a pull request as observed by the remote client, carrying
// only the fields the rule engine and history store need.
type PullRequest struct {
	Number         int
	Title          string
	Owner          string
	Name           string
	Merged         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Draft          bool
	State          PRState
	MergeableState string // free-form server label: clean, dirty, blocked, unstable, unknown, ...
	Mergeable      *bool  // nil when GitHub has not computed it yet.
	Approvals      int
	CheckState     CheckState
}

// RepoFullName returns the "owner/name" slug for the pull request's repo.
func (pr PullRequest) RepoFullName() string {
	return pr.Owner + "/" + pr.Name
}
