// Package github implements the driven.RemoteClient port using the
// go-github library, layering an httpcache-backed conditional-request cache
// and a local+server rate governor underneath it.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v82/github"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"

	"github.com/agpm-go/agpm/internal/domain/model"
	"github.com/agpm-go/agpm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RemoteClient = (*Client)(nil)

// ClientConfig collects everything NewClient needs to wire the transport
// stack and apply the merge gate and branch protection rules.
type ClientConfig struct {
	Token     string
	UserAgent string

	// BaseURL overrides the API root; empty uses the public GitHub API.
	// Tests point this at an httptest server.
	BaseURL string

	IncludeRepos []string // "owner/name"; empty means "discover via the authenticated user".
	ExcludeRepos []string

	ProtectedBranches []string
	ProtectedExcludes []string

	RequiredApprovals     int
	RequireMergeableState string // e.g. "clean"; empty disables the check.
	RequireMergeable      bool
	DefaultMergeMethod    string // "merge", "squash", or "rebase".

	MaxRequestsPerMinute int
	ReserveMargin        float64
	RateRefreshInterval  time.Duration
	RateRefreshRetries   int

	CachePath          string
	CacheFlushInterval time.Duration
}

// Client implements the driven.RemoteClient port.
type Client struct {
	gh       *gh.Client
	governor *Governor
	cache    *diskCache
	flusher  *flusher

	includeRepos []model.RepoRef
	excludeRepos map[string]struct{}

	protection *branchProtection

	requiredApprovals     int
	requireMergeableState string
	requireMergeable      bool
	defaultMergeMethod    string
}

// NewClient builds the transport stack used by every Client request:
//
//  1. go-github (REST client, PAT auth via WithAuthToken)
//  2. go-github-ratelimit (secondary rate-limit middleware; sleeps on 403/429
//     the governor did not already absorb)
//  3. httpcache (ETag-based conditional request caching)
//  4. Governor (local + server budget throttling; innermost, so it only
//     gates actual network round trips, never cache hits)
func NewClient(cfg ClientConfig) (*Client, error) {
	margin := cfg.ReserveMargin
	if margin <= 0 {
		margin = 0.7
	}
	refreshInterval := cfg.RateRefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}

	governor := NewGovernor(cfg.MaxRequestsPerMinute, margin, refreshInterval, cfg.RateRefreshRetries)
	governor.SetNext(http.DefaultTransport)

	cache := newDiskCache()
	if cfg.CachePath != "" {
		if err := cache.LoadFromFile(cfg.CachePath); err != nil {
			return nil, fmt.Errorf("loading github cache from %s: %w", cfg.CachePath, err)
		}
	}

	cacheTransport := &httpcache.Transport{
		Transport:           governor,
		Cache:                cache,
		MarkCachedResponses: true,
	}

	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	httpClient := &http.Client{Transport: rateLimitClient}
	ghClient := gh.NewClient(httpClient).WithAuthToken(cfg.Token)
	if cfg.UserAgent != "" {
		ghClient.UserAgent = cfg.UserAgent
	}

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		ghClient.BaseURL = u
	}

	protection, err := newBranchProtection(cfg.ProtectedBranches, cfg.ProtectedExcludes)
	if err != nil {
		return nil, err
	}

	var includeRepos []model.RepoRef
	for _, name := range cfg.IncludeRepos {
		owner, repo, err := splitRepo(name)
		if err != nil {
			return nil, err
		}
		includeRepos = append(includeRepos, model.RepoRef{Owner: owner, Name: repo})
	}

	excludeRepos := make(map[string]struct{}, len(cfg.ExcludeRepos))
	for _, name := range cfg.ExcludeRepos {
		excludeRepos[name] = struct{}{}
	}

	requireMergeableState := cfg.RequireMergeableState
	mergeMethod := cfg.DefaultMergeMethod
	if mergeMethod == "" {
		mergeMethod = "merge"
	}

	c := &Client{
		gh:                    ghClient,
		governor:              governor,
		cache:                 cache,
		includeRepos:          includeRepos,
		excludeRepos:          excludeRepos,
		protection:            protection,
		requiredApprovals:     cfg.RequiredApprovals,
		requireMergeableState: requireMergeableState,
		requireMergeable:      cfg.RequireMergeable,
		defaultMergeMethod:    mergeMethod,
	}

	if cfg.CachePath != "" {
		c.flusher = newFlusher(cache, cfg.CachePath, cfg.CacheFlushInterval)
		c.flusher.Start()
	}

	return c, nil
}

// Governor exposes the client's rate governor for snapshotting and wiring
// into the work pool's outstanding-job feedback.
func (c *Client) Governor() *Governor { return c.governor }

// FlushCache persists the conditional-request cache to its configured path.
// A no-op when the client was built without a CachePath.
func (c *Client) FlushCache() error {
	if c.flusher == nil {
		return nil
	}
	return c.cache.Flush(c.flusher.path)
}

// Close stops the cache's background flush loop and performs a final flush.
func (c *Client) Close() error {
	if c.flusher == nil {
		return nil
	}
	c.flusher.Stop()
	return c.cache.Flush(c.flusher.path)
}

// repoFilter reports whether repo should be swept, applying the include
// list (when non-empty, repo must appear in it) and then subtracting the
// exclude list. Both lists match the "owner/name" slug literally; spec
// reserves regex matching for branch protection only.
func (c *Client) repoFilter(repo model.RepoRef) bool {
	if len(c.includeRepos) > 0 {
		found := false
		for _, r := range c.includeRepos {
			if r == repo {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	_, excluded := c.excludeRepos[repo.Slug()]
	return !excluded
}

// ListRepositories returns the configured include-list, or, when empty, the
// authenticated user's repositories paginated the same way ListPullRequests
// paginates, filtered by the exclude list.
func (c *Client) ListRepositories(ctx context.Context) ([]model.RepoRef, error) {
	if len(c.includeRepos) > 0 {
		var repos []model.RepoRef
		for _, r := range c.includeRepos {
			if c.repoFilter(r) {
				repos = append(repos, r)
			}
		}
		return repos, nil
	}

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var repos []model.RepoRef
	for {
		page, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories (page %d): %w", opts.Page, err)
		}
		logRateLimit(resp, "repositories", opts.Page, len(page))

		for _, r := range page {
			ref := model.RepoRef{Owner: r.GetOwner().GetLogin(), Name: r.GetName()}
			if c.repoFilter(ref) {
				repos = append(repos, ref)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

// ListPullRequests paginates pull requests for repo via PullRequests.List:
// open ones, or every state when includeMerged is set (sent as state "all").
// since is applied client-side (go-github has no server-side "updated
// since" filter on this endpoint). When perPage
// is small enough that a single page is expected to suffice (the governor's
// max-rate-limited operating mode), only the first page is fetched.
func (c *Client) ListPullRequests(ctx context.Context, repo model.RepoRef, includeMerged bool, perPage int, since time.Duration) ([]model.PullRequest, error) {
	if perPage <= 0 {
		perPage = 100
	}

	state := "open"
	if includeMerged {
		state = "all"
	}

	opts := &gh.PullRequestListOptions{
		State:     state,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: perPage,
		},
	}

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}

	singlePage := perPage <= 1

	var allPRs []model.PullRequest
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repo.Slug(), opts.Page, err)
		}
		logRateLimit(resp, repo.Slug(), opts.Page, len(prs))

		for _, pr := range prs {
			if !cutoff.IsZero() && pr.GetUpdatedAt().Time.Before(cutoff) {
				continue
			}
			allPRs = append(allPRs, mapPullRequest(pr, repo))
		}

		if singlePage || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if allPRs == nil {
		allPRs = []model.PullRequest{}
	}
	return allPRs, nil
}

// PullRequestMetadata fetches a single pull request's merge-gate-relevant
// fields plus a rolled-up check state from its check runs.
func (c *Client) PullRequestMetadata(ctx context.Context, repo model.RepoRef, number int) (model.PullRequest, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return model.PullRequest{}, fmt.Errorf("fetching pull request %s#%d: %w", repo.Slug(), number, err)
	}
	logRateLimit(resp, repo.Slug()+"/pr", 0, 1)

	result := mapPullRequest(pr, repo)

	checkState, err := c.rollupCheckState(ctx, repo, pr.GetHead().GetSHA())
	if err != nil {
		slog.Warn("fetching check runs failed, leaving check state unknown", "repo", repo.Slug(), "number", number, "error", err)
	} else {
		result.CheckState = checkState
	}

	return result, nil
}

func (c *Client) rollupCheckState(ctx context.Context, repo model.RepoRef, ref string) (model.CheckState, error) {
	if ref == "" {
		return model.CheckStateUnknown, nil
	}

	opts := &gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	sawFailure := false
	sawPending := false
	sawAny := false

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, repo.Owner, repo.Name, ref, opts)
		if err != nil {
			return model.CheckStateUnknown, err
		}
		logRateLimit(resp, repo.Slug()+"/checks", opts.Page, len(result.CheckRuns))

		for _, run := range result.CheckRuns {
			sawAny = true
			switch run.GetStatus() {
			case "completed":
				switch run.GetConclusion() {
				case "success", "neutral", "skipped":
				case "failure", "timed_out", "cancelled", "action_required":
					sawFailure = true
				default:
					sawPending = true
				}
			default:
				sawPending = true
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	switch {
	case !sawAny:
		return model.CheckStateUnknown, nil
	case sawFailure:
		return model.CheckStateFailed, nil
	case sawPending:
		return model.CheckStateUnknown, nil
	default:
		return model.CheckStatePassed, nil
	}
}

// mergeGateOK applies the merge gate's approval-count and mergeable-state
// checks, logging the reason it blocks when it does.
func (c *Client) mergeGateOK(ctx context.Context, repo model.RepoRef, number int) (bool, error) {
	if c.requiredApprovals > 0 {
		approvals, err := c.countApprovals(ctx, repo, number)
		if err != nil {
			return false, err
		}
		if approvals < c.requiredApprovals {
			slog.Info("merge gate blocked: insufficient approvals", "repo", repo.Slug(), "number", number, "approvals", approvals, "required", c.requiredApprovals)
			return false, nil
		}
	}

	if c.requireMergeableState == "" && !c.requireMergeable {
		return true, nil
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return false, fmt.Errorf("fetching pull request %s#%d: %w", repo.Slug(), number, err)
	}
	logRateLimit(resp, repo.Slug()+"/pr", 0, 1)

	if c.requireMergeable && !pr.GetMergeable() {
		slog.Info("merge gate blocked: not mergeable", "repo", repo.Slug(), "number", number)
		return false, nil
	}
	if c.requireMergeableState != "" && pr.GetMergeableState() != c.requireMergeableState {
		slog.Info("merge gate blocked: mergeable_state mismatch", "repo", repo.Slug(), "number", number, "state", pr.GetMergeableState(), "required", c.requireMergeableState)
		return false, nil
	}

	return true, nil
}

func (c *Client) countApprovals(ctx context.Context, repo model.RepoRef, number int) (int, error) {
	opts := &gh.ListOptions{PerPage: 100}
	approvals := 0

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, repo.Owner, repo.Name, number, opts)
		if err != nil {
			return 0, fmt.Errorf("listing reviews for %s#%d: %w", repo.Slug(), number, err)
		}
		logRateLimit(resp, repo.Slug()+"/reviews", opts.Page, len(reviews))

		for _, r := range reviews {
			if strings.ToLower(r.GetState()) == "approved" {
				approvals++
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return approvals, nil
}

// MergePullRequest applies the include/exclude repository filters and the
// merge gate, then issues PullRequests.Merge with retry on transient
// failures. It returns false, never an error, when the repository is
// filtered out, the gate blocks, or the server refuses for a non-retryable
// reason.
func (c *Client) MergePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error) {
	if !c.repoFilter(repo) {
		slog.Info("merge skipped: repository filtered out", "repo", repo.Slug(), "number", number)
		return false, nil
	}

	ok, err := c.mergeGateOK(ctx, repo, number)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	merged := false
	op := func() error {
		result, resp, err := c.gh.PullRequests.Merge(ctx, repo.Owner, repo.Name, number, "", &gh.PullRequestOptions{
			MergeMethod: c.defaultMergeMethod,
		})
		if err != nil {
			if resp != nil {
				if classified := classifyStatus("merging pull request", resp.StatusCode); isTransient(classified) {
					return classified
				}
			}
			slog.Warn("merge request refused", "repo", repo.Slug(), "number", number, "error", err)
			return backoff.Permanent(err)
		}
		merged = result.GetMerged()
		return nil
	}

	if err := retryTransient(ctx, op); err != nil {
		if isTransient(err) {
			return false, err
		}
		return false, nil
	}

	return merged, nil
}

// ClosePullRequest issues PullRequests.Edit with state "closed", retrying
// transient failures the same way MergePullRequest does.
func (c *Client) ClosePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error) {
	closed := false
	op := func() error {
		_, resp, err := c.gh.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, &gh.PullRequest{
			State: gh.Ptr("closed"),
		})
		if err != nil {
			if resp != nil {
				if classified := classifyStatus("closing pull request", resp.StatusCode); isTransient(classified) {
					return classified
				}
			}
			slog.Warn("close request refused", "repo", repo.Slug(), "number", number, "error", err)
			return backoff.Permanent(err)
		}
		closed = true
		return nil
	}

	if err := retryTransient(ctx, op); err != nil {
		if isTransient(err) {
			return false, err
		}
		return false, nil
	}

	return closed, nil
}

// ListBranches paginates Repositories.ListBranches and annotates each
// branch with its compare status against the repository's default branch.
func (c *Client) ListBranches(ctx context.Context, repo model.RepoRef) ([]model.Branch, error) {
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	var branches []model.Branch
	for {
		page, resp, err := c.gh.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing branches for %s (page %d): %w", repo.Slug(), opts.Page, err)
		}
		logRateLimit(resp, repo.Slug()+"/branches", opts.Page, len(page))

		for _, b := range page {
			branches = append(branches, model.Branch{
				Owner:   repo.Owner,
				Name:    repo.Name,
				Ref:     b.GetName(),
				LastSHA: b.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return branches, nil
}

// Compare reports base..head's compare status via Repositories.CompareCommits.
func (c *Client) Compare(ctx context.Context, repo model.RepoRef, base, head string) (model.CompareStatus, int, error) {
	cmp, resp, err := c.gh.Repositories.CompareCommits(ctx, repo.Owner, repo.Name, base, head, nil)
	if err != nil {
		return "", 0, fmt.Errorf("comparing %s...%s on %s: %w", base, head, repo.Slug(), err)
	}
	logRateLimit(resp, repo.Slug()+"/compare", 0, 0)

	var status model.CompareStatus
	switch cmp.GetStatus() {
	case "identical":
		status = model.CompareIdentical
	case "behind":
		status = model.CompareBehind
	case "ahead":
		status = model.CompareAhead
	default:
		status = model.CompareDiverged
	}

	return status, cmp.GetAheadBy(), nil
}

// DeleteBranch deletes ref via Git.DeleteRef, refusing (false, nil) when the
// branch matches a protected pattern. The ref is encoded by
// escapeRefSegment: each "/"-separated segment is passed through
// url.PathEscape, and the "/" separators themselves are sent unencoded.
func (c *Client) DeleteBranch(ctx context.Context, repo model.RepoRef, ref string) (bool, error) {
	if c.protection.IsProtected(ref) {
		slog.Info("refusing to delete protected branch", "repo", repo.Slug(), "ref", ref)
		return false, nil
	}

	gitRef := "heads/" + escapeRefSegment(ref)
	resp, err := c.gh.Git.DeleteRef(ctx, repo.Owner, repo.Name, gitRef)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("deleting branch %s on %s: %w", ref, repo.Slug(), err)
	}
	logRateLimit(resp, repo.Slug()+"/delete-ref", 0, 0)

	return true, nil
}

// escapeRefSegment percent-encodes a ref name segment by segment so that
// slashes inside branch names (e.g. "feature/foo") survive as literal path
// separators while every other reserved character is encoded.
func escapeRefSegment(ref string) string {
	segments := strings.Split(ref, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// CleanupBranches deletes every closed pull request's head branch whose
// name begins with prefix (an empty prefix matches every closed PR head),
// skipping protected branches. It lists closed pull requests directly
// (state=closed) rather than going through ListPullRequests, since that
// only ever asks for "open" or "all".
func (c *Client) CleanupBranches(ctx context.Context, repo model.RepoRef, prefix string) error {
	opts := &gh.PullRequestListOptions{
		State:       "closed",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return fmt.Errorf("listing closed pull requests for %s (page %d): %w", repo.Slug(), opts.Page, err)
		}
		logRateLimit(resp, repo.Slug()+"/pulls-closed", opts.Page, len(prs))

		for _, pr := range prs {
			head := pr.GetHead().GetRef()
			if head == "" || (prefix != "" && !strings.HasPrefix(head, prefix)) {
				continue
			}
			if _, err := c.DeleteBranch(ctx, repo, head); err != nil {
				slog.Warn("deleting closed pull request's head branch failed", "repo", repo.Slug(), "ref", head, "error", err)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return nil
}

// CloseDirtyBranches deletes every non-default branch whose compare
// against the repository's default branch is "ahead" (a branch that
// diverged and never landed), skipping protected branches.
func (c *Client) CloseDirtyBranches(ctx context.Context, repo model.RepoRef) error {
	branches, err := c.ListBranches(ctx, repo)
	if err != nil {
		return err
	}

	repoInfo, resp, err := c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return fmt.Errorf("fetching repository %s: %w", repo.Slug(), err)
	}
	logRateLimit(resp, repo.Slug()+"/repo", 0, 0)
	defaultBranch := repoInfo.GetDefaultBranch()

	for _, b := range branches {
		if b.Ref == defaultBranch {
			continue
		}
		status, _, err := c.Compare(ctx, repo, defaultBranch, b.Ref)
		if err != nil {
			slog.Warn("comparing branch failed, skipping", "repo", repo.Slug(), "ref", b.Ref, "error", err)
			continue
		}
		if status != model.CompareAhead {
			continue
		}
		if _, err := c.DeleteBranch(ctx, repo, b.Ref); err != nil {
			slog.Warn("deleting dirty branch failed", "repo", repo.Slug(), "ref", b.Ref, "error", err)
		}
	}

	return nil
}

// retryTransient retries op with exponential backoff while it returns an
// error classified as transient by isTransient; a backoff.Permanent error
// (or a non-transient error) stops retrying immediately.
func retryTransient(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxInterval = 5 * time.Second

	retrying := backoff.WithMaxRetries(bo, 4)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(retrying, ctx))
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model
// PullRequest, using GetXxx() helpers exclusively to avoid nil dereferences.
func mapPullRequest(pr *gh.PullRequest, repo model.RepoRef) model.PullRequest {
	state := model.PRStateOpen
	switch {
	case pr.GetMergedAt().Time.IsZero() == false:
		state = model.PRStateMerged
	case pr.GetState() == "closed":
		state = model.PRStateClosed
	}

	var mergeable *bool
	if pr.Mergeable != nil {
		v := pr.GetMergeable()
		mergeable = &v
	}

	approvals := 0 // Filled in by countApprovals when the merge gate needs it.

	return model.PullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Owner:          repo.Owner,
		Name:           repo.Name,
		Merged:         pr.GetMerged(),
		CreatedAt:      pr.GetCreatedAt().Time,
		UpdatedAt:      pr.GetUpdatedAt().Time,
		Draft:          pr.GetDraft(),
		State:          state,
		MergeableState: pr.GetMergeableState(),
		Mergeable:      mergeable,
		Approvals:      approvals,
		CheckState:     model.CheckStateUnknown,
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
