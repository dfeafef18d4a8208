// Package application wires the rule engine, remote client, history store,
// and hook dispatcher into the poll orchestrator: the supervisor that fans
// one task out per repository on every tick.
package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agpm-go/agpm/internal/config"
	"github.com/agpm-go/agpm/internal/domain/model"
	"github.com/agpm-go/agpm/internal/domain/port/driven"
	"github.com/agpm-go/agpm/internal/domain/rules"
	"github.com/agpm-go/agpm/internal/platform/workpool"
)

// PullRequestCallback receives the aggregated, sorted pull-request list
// after every poll tick.
type PullRequestCallback func([]model.PullRequest)

// BranchLogCallback receives, per repository, the number of branches that
// did not match the configured purge prefix.
type BranchLogCallback func(repo model.RepoRef, strayCount int)

// Orchestrator is the C6 poll supervisor: on every tick it lists
// repositories, fans one task per repository out to the work pool, applies
// the rule engine to each pull request and branch, and aggregates results
// for the configured callbacks and hook thresholds.
type Orchestrator struct {
	client  driven.RemoteClient
	pool    *workpool.Pool
	history driven.HistoryStore
	hooks   driven.HookDispatcher

	prRules     *rules.PullRequestRuleEngine
	branchRules *rules.BranchRuleEngine

	cfg    *config.Config
	logger *slog.Logger

	prCallback        PullRequestCallback
	branchLogCallback BranchLogCallback

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an Orchestrator. prCallback and branchLogCallback may be
// nil; a nil callback is simply skipped.
func New(
	client driven.RemoteClient,
	pool *workpool.Pool,
	history driven.HistoryStore,
	hooks driven.HookDispatcher,
	prRules *rules.PullRequestRuleEngine,
	branchRules *rules.BranchRuleEngine,
	cfg *config.Config,
	logger *slog.Logger,
	prCallback PullRequestCallback,
	branchLogCallback BranchLogCallback,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:            client,
		pool:              pool,
		history:           history,
		hooks:             hooks,
		prRules:           prRules,
		branchRules:       branchRules,
		cfg:               cfg,
		logger:            logger,
		prCallback:        prCallback,
		branchLogCallback: branchLogCallback,
		stopCh:            make(chan struct{}),
	}
}

// Start launches the supervisor goroutine: an immediate poll, then one
// every cfg.PollInterval until ctx is cancelled or Stop is called. A
// PollInterval of 0 disables periodic polling after the initial tick.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		o.pollOnce(ctx)
		if o.cfg.PollInterval <= 0 {
			return
		}

		ticker := time.NewTicker(o.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				o.pollOnce(ctx)
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			}
		}
	}()
}

// Stop cancels the supervisor and waits for the in-flight tick, if any, to
// finish fanning out. It does not stop the work pool; callers own that
// lifecycle separately. Idempotent.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

// repoResult collects one repository task's observations for the
// post-fan-out aggregation step.
type repoResult struct {
	repo         model.RepoRef
	pullRequests []model.PullRequest
	branchCount  int
}

func (o *Orchestrator) pollOnce(ctx context.Context) {
	repos, err := o.client.ListRepositories(ctx)
	if err != nil {
		o.logger.Error("listing repositories failed", "error", err)
		return
	}

	results := make([]*repoResult, len(repos))
	handles := make([]*workpool.Handle, len(repos))
	for i, repo := range repos {
		i, repo := i, repo
		results[i] = &repoResult{repo: repo}
		handles[i] = o.pool.Submit(repo.Slug(), func(taskCtx context.Context) error {
			return o.runRepoTask(taskCtx, repo, results[i])
		})
	}

	for i, h := range handles {
		<-h.Done()
		if info := h.Info(); info.Err != nil {
			o.logger.Error("repository poll task failed", "repo", results[i].repo.Slug(), "error", info.Err)
		}
	}

	o.finishFanOut(results)
}

// runRepoTask runs the five-step per-repository sweep in order, never
// aborting the whole poll on one repository's failure: it logs and returns
// nil so the caller's result slot still reflects whatever was gathered
// before the failure.
func (o *Orchestrator) runRepoTask(ctx context.Context, repo model.RepoRef, result *repoResult) error {
	if o.cfg.PurgeOnly {
		if err := o.client.CleanupBranches(ctx, repo, o.cfg.PurgePrefix); err != nil {
			o.logger.Error("purge-only cleanup failed", "repo", repo.Slug(), "error", err)
		}
		return nil
	}

	if !o.cfg.OnlyPollStray {
		o.sweepPullRequests(ctx, repo, result)
	}

	if !o.cfg.OnlyPollPRs {
		o.sweepBranches(ctx, repo, result)

		if o.cfg.PurgePrefix != "" {
			if err := o.client.CleanupBranches(ctx, repo, o.cfg.PurgePrefix); err != nil {
				o.logger.Error("cleanup_branches failed", "repo", repo.Slug(), "error", err)
			}
		}

		if o.cfg.RejectDirty {
			if err := o.client.CloseDirtyBranches(ctx, repo); err != nil {
				o.logger.Error("close_dirty_branches failed", "repo", repo.Slug(), "error", err)
			}
		}
	}

	return nil
}

// sweepPullRequests lists this repository's pull requests, recording every
// one to history, and applies the rule engine when auto-merge is enabled.
// perPage is 1 (the single-request optimization) when the local rate cap is
// at most one request per minute; otherwise a full paginated listing is
// used.
func (o *Orchestrator) sweepPullRequests(ctx context.Context, repo model.RepoRef, result *repoResult) {
	perPage := 100
	if o.cfg.MaxRequestRate > 0 && o.cfg.MaxRequestRate <= 1 {
		perPage = 1
	}

	prs, err := o.client.ListPullRequests(ctx, repo, o.cfg.IncludeMerged, perPage, o.cfg.PRSince)
	if err != nil {
		o.logger.Error("list_pull_requests failed", "repo", repo.Slug(), "error", err)
		return
	}

	if o.cfg.PRLimit > 0 && len(prs) > o.cfg.PRLimit {
		prs = prs[:o.cfg.PRLimit]
	}
	result.pullRequests = prs

	for _, pr := range prs {
		if err := o.history.Insert(ctx, pr.Number, pr.Title, pr.Merged); err != nil {
			o.logger.Error("history insert failed", "repo", repo.Slug(), "number", pr.Number, "error", err)
		}

		if !o.cfg.AutoMerge {
			continue
		}
		o.applyPullRequestRule(ctx, repo, pr)
	}
}

func (o *Orchestrator) applyPullRequestRule(ctx context.Context, repo model.RepoRef, pr model.PullRequest) {
	action := o.prRules.Decide(rules.PullRequestInput{
		State:          string(pr.State),
		MergeableState: pr.MergeableState,
		Draft:          pr.Draft,
		CheckState:     string(pr.CheckState),
	})

	switch action {
	case rules.PRActionMerge:
		merged, err := o.client.MergePullRequest(ctx, repo, pr.Number)
		if err != nil {
			o.logger.Error("merge_pull_request failed", "repo", repo.Slug(), "number", pr.Number, "error", err)
			return
		}
		if !merged {
			o.logger.Debug("merge_pull_request declined", "repo", repo.Slug(), "number", pr.Number)
			return
		}
		if err := o.history.UpdateMerged(ctx, pr.Number); err != nil {
			o.logger.Error("history update_merged failed", "repo", repo.Slug(), "number", pr.Number, "error", err)
		}
		o.dispatchHook("pr.merged", repo, map[string]any{"number": pr.Number, "title": pr.Title})

	case rules.PRActionClose:
		closed, err := o.client.ClosePullRequest(ctx, repo, pr.Number)
		if err != nil {
			o.logger.Error("close_pull_request failed", "repo", repo.Slug(), "number", pr.Number, "error", err)
			return
		}
		if closed {
			o.dispatchHook("pr.closed", repo, map[string]any{"number": pr.Number, "title": pr.Title})
		}

	case rules.PRActionWait:
		o.logger.Debug("pull request waiting", "repo", repo.Slug(), "number", pr.Number, "mergeable_state", pr.MergeableState)

	case rules.PRActionIgnore:
		o.logger.Debug("pull request ignored", "repo", repo.Slug(), "number", pr.Number, "state", pr.State)
	}
}

// sweepBranches lists this repository's branches, counts those that do not
// match the purge prefix as stray candidates, invokes the branch log
// callback, and — when delete_stray is enabled — runs each stray candidate
// through the branch decider and deletes the ones it marks for deletion.
func (o *Orchestrator) sweepBranches(ctx context.Context, repo model.RepoRef, result *repoResult) {
	branches, err := o.client.ListBranches(ctx, repo)
	if err != nil {
		o.logger.Error("list_branches failed", "repo", repo.Slug(), "error", err)
		return
	}
	result.branchCount = len(branches)

	strayCount := 0
	for _, b := range branches {
		stray := o.cfg.PurgePrefix == "" || !strings.HasPrefix(b.Ref, o.cfg.PurgePrefix)
		if stray {
			strayCount++
		}
		if stray && o.cfg.DeleteStray {
			o.maybeDeleteStrayBranch(ctx, repo, b)
		}
	}

	if o.branchLogCallback != nil {
		o.branchLogCallback(repo, strayCount)
	}
}

func (o *Orchestrator) maybeDeleteStrayBranch(ctx context.Context, repo model.RepoRef, b model.Branch) {
	action := o.branchRules.Decide(rules.BranchInput{Stray: true})
	if action != rules.BranchActionDelete {
		return
	}

	deleted, err := o.client.DeleteBranch(ctx, repo, b.Ref)
	if err != nil {
		o.logger.Error("delete_branch failed", "repo", repo.Slug(), "branch", b.Ref, "error", err)
		return
	}
	if deleted {
		o.dispatchHook("branch.deleted", repo, map[string]any{"branch": b.Ref})
	}
}

// finishFanOut aggregates every repository's observations from this tick,
// sorts the pull-request list, invokes the configured callback, and fires
// the threshold hook events.
func (o *Orchestrator) finishFanOut(results []*repoResult) {
	var allPRs []model.PullRequest
	totalBranches := 0
	for _, r := range results {
		allPRs = append(allPRs, r.pullRequests...)
		totalBranches += r.branchCount
	}

	sortPullRequests(allPRs, o.cfg.Sort)

	if o.prCallback != nil {
		o.prCallback(allPRs)
	}

	if o.cfg.Hook.PullThreshold > 0 && len(allPRs) > o.cfg.Hook.PullThreshold {
		o.dispatchHook("poll.pull_threshold", model.RepoRef{}, map[string]any{"count": len(allPRs)})
	}
	if o.cfg.Hook.BranchThreshold > 0 && totalBranches > o.cfg.Hook.BranchThreshold {
		o.dispatchHook("poll.branch_threshold", model.RepoRef{}, map[string]any{"count": totalBranches})
	}
}

func (o *Orchestrator) dispatchHook(name string, repo model.RepoRef, data map[string]any) {
	if o.hooks == nil {
		return
	}
	if repo.Owner != "" && repo.Name != "" {
		data["owner"] = repo.Owner
		data["repo"] = repo.Name
	}
	o.hooks.Dispatch(driven.HookEvent{Name: name, Data: data})
}
