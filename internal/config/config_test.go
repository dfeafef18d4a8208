package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every AGPM_ env var that Load() reads.
var allConfigKeys = []string{
	"AGPM_GITHUB_TOKEN", "AGPM_API_BASE", "AGPM_USE_GRAPHQL",
	"AGPM_POLL_INTERVAL",
	"AGPM_MAX_REQUEST_RATE", "AGPM_MAX_HOURLY_REQUESTS", "AGPM_RATE_LIMIT_MARGIN",
	"AGPM_RATE_LIMIT_REFRESH_INTERVAL", "AGPM_WORKERS",
	"AGPM_HTTP_TIMEOUT", "AGPM_HTTP_RETRIES",
	"AGPM_DOWNLOAD_LIMIT", "AGPM_UPLOAD_LIMIT", "AGPM_MAX_DOWNLOAD", "AGPM_MAX_UPLOAD",
	"AGPM_HTTP_PROXY", "AGPM_HTTPS_PROXY",
	"AGPM_INCLUDE_REPOS", "AGPM_EXCLUDE_REPOS",
	"AGPM_PROTECTED_BRANCHES", "AGPM_PROTECTED_BRANCH_EXCLUDES",
	"AGPM_INCLUDE_MERGED", "AGPM_ONLY_POLL_PRS", "AGPM_ONLY_POLL_STRAY",
	"AGPM_REJECT_DIRTY", "AGPM_DELETE_STRAY", "AGPM_ALLOW_DELETE_BASE_BRANCH",
	"AGPM_AUTO_MERGE", "AGPM_REQUIRED_APPROVALS", "AGPM_REQUIRE_STATUS_SUCCESS",
	"AGPM_REQUIRE_MERGEABLE_STATE",
	"AGPM_PURGE_PREFIX", "AGPM_PURGE_ONLY",
	"AGPM_PR_LIMIT", "AGPM_PR_SINCE", "AGPM_SORT",
	"AGPM_HISTORY_DB",
	"AGPM_MCP_BIND", "AGPM_MCP_PORT", "AGPM_MCP_BACKLOG", "AGPM_MCP_MAX_CLIENTS",
	"AGPM_HOOK_ENABLED", "AGPM_HOOK_DEFAULT_ACTIONS", "AGPM_HOOK_EVENT_ACTIONS",
	"AGPM_HOOK_PULL_THRESHOLD", "AGPM_HOOK_BRANCH_THRESHOLD",
}

// isolateConfigEnv saves and unsets all AGPM_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores originals.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 0.7, cfg.RateLimitMargin)
	assert.Equal(t, "agpm.db", cfg.HistoryDB)
	assert.Equal(t, "alpha", cfg.Sort)
	assert.Equal(t, 3, cfg.HTTPRetries)
	assert.Equal(t, 16, cfg.MCPBacklog)
	assert.False(t, cfg.Hook.Enabled)
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "", cfg.GitHubToken)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGPM_POLL_INTERVAL")
}

func TestLoad_PollIntervalAsBareSeconds(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_POLL_INTERVAL", "120")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.PollInterval)
}

func TestLoad_RateLimitMarginOutOfRange(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_RATE_LIMIT_MARGIN", "1.5")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGPM_RATE_LIMIT_MARGIN")
}

func TestLoad_MutuallyExclusiveSweepScope(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_ONLY_POLL_PRS", "true")
	t.Setenv("AGPM_ONLY_POLL_STRAY", "true")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoad_InvalidSort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_SORT", "random")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGPM_SORT")
}

func TestLoad_RepoLists(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_INCLUDE_REPOS", "acme/widgets, acme/gadgets")
	t.Setenv("AGPM_EXCLUDE_REPOS", "acme/legacy")
	t.Setenv("AGPM_PROTECTED_BRANCHES", "main,regex:release/.*")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"acme/widgets", "acme/gadgets"}, cfg.IncludeRepos)
	assert.Equal(t, []string{"acme/legacy"}, cfg.ExcludeRepos)
	assert.Equal(t, []string{"main", "regex:release/.*"}, cfg.ProtectedBranches)
}

func TestLoad_HookConfig(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_HOOK_ENABLED", "true")
	t.Setenv("AGPM_HOOK_DEFAULT_ACTIONS", "command:notify|http:POST:https://example.invalid/hook")
	t.Setenv("AGPM_HOOK_EVENT_ACTIONS", "poll.pull_threshold=command:alert")
	t.Setenv("AGPM_HOOK_PULL_THRESHOLD", "25")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.Hook.Enabled)
	assert.Equal(t, []string{"command:notify", "http:POST:https://example.invalid/hook"}, cfg.Hook.DefaultActions)
	assert.Equal(t, []string{"command:alert"}, cfg.Hook.EventActions["poll.pull_threshold"])
	assert.Equal(t, 25, cfg.Hook.PullThreshold)
}

func TestLoad_HookEventActionsMalformed(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AGPM_HOOK_EVENT_ACTIONS", "not-a-valid-entry")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
}
