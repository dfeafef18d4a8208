// Package driven declares the ports agpm's application layer depends on;
// each is satisfied by exactly one concrete adapter, kept to a small
// capability set per port.
package driven

import (
	"context"
	"time"

	"github.com/agpm-go/agpm/internal/domain/model"
)

// RemoteClient is the driven port over the hosting API: list, merge, close,
// and delete operations for pull requests and branches. It is satisfied by
// internal/adapter/driven/github.Client.
type RemoteClient interface {
	ListRepositories(ctx context.Context) ([]model.RepoRef, error)

	ListPullRequests(ctx context.Context, repo model.RepoRef, includeMerged bool, perPage int, since time.Duration) ([]model.PullRequest, error)

	PullRequestMetadata(ctx context.Context, repo model.RepoRef, number int) (model.PullRequest, error)

	// MergePullRequest applies the merge gate (required approvals, mergeable
	// state, include/exclude filters) before issuing the request; it returns
	// false, not an error, when the gate blocks or the server refuses for a
	// non-retryable reason, and an error when the gate data cannot be fetched
	// or transient failures outlast the retries.
	MergePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error)

	ClosePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error)

	ListBranches(ctx context.Context, repo model.RepoRef) ([]model.Branch, error)

	Compare(ctx context.Context, repo model.RepoRef, base, head string) (model.CompareStatus, int, error)

	DeleteBranch(ctx context.Context, repo model.RepoRef, ref string) (bool, error)

	CleanupBranches(ctx context.Context, repo model.RepoRef, prefix string) error

	CloseDirtyBranches(ctx context.Context, repo model.RepoRef) error
}
