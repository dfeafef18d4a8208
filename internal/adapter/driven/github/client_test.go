package github_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agpm-go/agpm/internal/adapter/driven/github"
	"github.com/agpm-go/agpm/internal/domain/model"
)

func newTestClient(t *testing.T, mux *http.ServeMux, cfg github.ClientConfig) *github.Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL + "/"
	cfg.Token = "test-token"
	client, err := github.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_ListPullRequests_FiltersBySince(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-10 * time.Minute)
	stale := now.Add(-3 * time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"number": 1, "title": "fresh", "state": "open", "updated_at": %q},
			{"number": 2, "title": "old", "state": "open", "updated_at": %q}
		]`, recent.Format(time.RFC3339), stale.Format(time.RFC3339))
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	prs, err := client.ListPullRequests(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, false, 100, time.Hour)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 1, prs[0].Number)
}

func TestClient_ListPullRequests_SinglePageWhenPerPageOne(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Link", `<https://example.invalid/next>; rel="next"`)
		fmt.Fprint(w, `[{"number": 1, "title": "only", "state": "open"}]`)
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	prs, err := client.ListPullRequests(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, false, 1, 0)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 1, requests, "perPage<=1 must not follow pagination links")
}

func TestClient_MergePullRequest_BlockedByRequiredMergeableState(t *testing.T) {
	mux := http.NewServeMux()
	merged := false
	mux.HandleFunc("/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 7, "mergeable_state": "dirty"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		merged = true
		fmt.Fprint(w, `{"merged": true}`)
	})

	client := newTestClient(t, mux, github.ClientConfig{RequireMergeableState: "clean"})

	ok, err := client.MergePullRequest(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, merged, "merge endpoint must not be called when the gate blocks")
}

func TestClient_MergePullRequest_SucceedsWhenGateClears(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 7, "mergeable_state": "clean"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"merged": true}`)
	})

	client := newTestClient(t, mux, github.ClientConfig{RequireMergeableState: "clean"})

	ok, err := client.MergePullRequest(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_MergePullRequest_BlockedByInsufficientApprovals(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"state": "COMMENTED"}]`)
	})

	client := newTestClient(t, mux, github.ClientConfig{RequiredApprovals: 1})

	ok, err := client.MergePullRequest(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_DeleteBranch_RefusesLiteralProtectedBranch(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/main", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{ProtectedBranches: []string{"main"}})

	ok, err := client.DeleteBranch(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, "main")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called, "protected branches must never reach the delete endpoint")
}

func TestClient_DeleteBranch_ExcludePatternOverridesRegexProtection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/release/old", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{
		ProtectedBranches: []string{"regex:^release/.*"},
		ProtectedExcludes: []string{"release/old"},
	})

	ok, err := client.DeleteBranch(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, "release/old")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_DeleteBranch_NotFoundIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Reference does not exist"}`)
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	ok, err := client.DeleteBranch(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_CleanupBranches_DeletesClosedPRHeadsByPrefix(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"number": 1, "head": {"ref": "tmp/feature"}},
			{"number": 2, "head": {"ref": "keep"}}
		]`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/tmp/feature", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, "tmp/feature")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/keep", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, "keep")
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	err := client.CleanupBranches(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, "tmp/")
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp/feature"}, deleted)
}

func TestClient_CleanupBranches_SkipsProtectedHead(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"number": 1, "head": {"ref": "tmp/protected"}}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/tmp/protected", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{ProtectedBranches: []string{"regex:^tmp/.*"}})

	err := client.CleanupBranches(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"}, "tmp/")
	require.NoError(t, err)
	assert.False(t, called, "protected branches must never reach the delete endpoint")
}

func TestClient_CloseDirtyBranches_DeletesAheadBranch(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "main"}, {"name": "feature"}]`)
	})
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/compare/main...feature", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ahead", "ahead_by": 1}`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/feature", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, "feature")
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	err := client.CloseDirtyBranches(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature"}, deleted)
}

func TestClient_CloseDirtyBranches_KeepsCleanBranch(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "main"}, {"name": "feature"}]`)
	})
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/compare/main...feature", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "identical", "ahead_by": 0}`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/feature", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{})

	err := client.CloseDirtyBranches(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	assert.False(t, called, "a clean branch must never reach the delete endpoint")
}

func TestClient_CloseDirtyBranches_SkipsProtectedBranch(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "main"}, {"name": "feature"}]`)
	})
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/compare/main...feature", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ahead", "ahead_by": 1}`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/refs/heads/feature", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, github.ClientConfig{ProtectedBranches: []string{"feature"}})

	err := client.CloseDirtyBranches(context.Background(), model.RepoRef{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	assert.False(t, called, "protected branches must never reach the delete endpoint")
}

func TestClient_ListRepositories_FiltersExcludeList(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), github.ClientConfig{
		IncludeRepos: []string{"acme/widgets", "acme/gadgets"},
		ExcludeRepos: []string{"acme/gadgets"},
	})

	repos, err := client.ListRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, model.RepoRef{Owner: "acme", Name: "widgets"}, repos[0])
}
