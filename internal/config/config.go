// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment
// variables. Field groups mirror the AGPM_* option table: governor, cache,
// remote client, sweep scope, merge gate, branch purge, history store,
// control server, and hook dispatcher.
type Config struct {
	GitHubToken string
	APIBase     string
	UseGraphQL  bool

	PollInterval time.Duration

	MaxRequestRate           int
	MaxHourlyRequests        int
	RateLimitMargin          float64
	RateLimitRefreshInterval time.Duration
	RateLimitRefreshRetries  int

	Workers int

	HTTPTimeout   time.Duration
	HTTPRetries   int
	DownloadLimit int64
	UploadLimit   int64
	MaxDownload   int64
	MaxUpload     int64
	HTTPProxy     string
	HTTPSProxy    string

	IncludeRepos []string
	ExcludeRepos []string

	ProtectedBranches       []string
	ProtectedBranchExcludes []string

	IncludeMerged bool
	OnlyPollPRs   bool
	OnlyPollStray bool

	RejectDirty           bool
	DeleteStray           bool
	AllowDeleteBaseBranch bool

	AutoMerge             bool
	RequiredApprovals     int
	RequireStatusSuccess  bool
	RequireMergeableState string

	PurgePrefix string
	PurgeOnly   bool

	PRLimit int
	PRSince time.Duration
	Sort    string

	HistoryDB string

	MCPBind       string
	MCPPort       int
	MCPBacklog    int
	MCPMaxClients int

	Hook HookConfig
}

// HookConfig collects the AGPM_HOOK_* options. DefaultActions and
// EventActions use a small delimited grammar since full configuration-file
// parsing is out of scope: an action is "command:<cmd>" or
// "http:<method>:<url>"; multiple actions for one slot are separated by
// "|"; event overrides are separated by ";" as "<event>=<actions>".
type HookConfig struct {
	Enabled         bool
	DefaultActions  []string
	EventActions    map[string][]string
	PullThreshold   int
	BranchThreshold int
}

// Load reads configuration from environment variables and returns a
// validated Config. AGPM_GITHUB_TOKEN's absence does not fail Load — the
// control server can still serve cached state — but is logged as a
// warning.
func Load() (*Config, error) {
	var cfg Config

	token, tokenSet := os.LookupEnv("AGPM_GITHUB_TOKEN")
	if !tokenSet || token == "" {
		slog.Warn("AGPM_GITHUB_TOKEN not set; remote operations will fail until configured")
	}
	cfg.GitHubToken = token

	cfg.APIBase = getString("AGPM_API_BASE", "")
	cfg.UseGraphQL = getBool("AGPM_USE_GRAPHQL", false)

	var err error
	if cfg.PollInterval, err = getDuration("AGPM_POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.MaxRequestRate, err = getInt("AGPM_MAX_REQUEST_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.MaxHourlyRequests, err = getInt("AGPM_MAX_HOURLY_REQUESTS", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitMargin, err = getFloat("AGPM_RATE_LIMIT_MARGIN", 0.7); err != nil {
		return nil, err
	}
	if cfg.RateLimitMargin < 0 || cfg.RateLimitMargin > 1 {
		return nil, fmt.Errorf("AGPM_RATE_LIMIT_MARGIN must be within [0,1], got %v", cfg.RateLimitMargin)
	}
	if cfg.RateLimitRefreshInterval, err = getDuration("AGPM_RATE_LIMIT_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitRefreshRetries, err = getInt("AGPM_HTTP_RETRIES", 3); err != nil {
		return nil, err
	}

	if cfg.Workers, err = getInt("AGPM_WORKERS", 0); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = getDuration("AGPM_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPRetries, err = getInt("AGPM_HTTP_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.DownloadLimit, err = getInt64("AGPM_DOWNLOAD_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.UploadLimit, err = getInt64("AGPM_UPLOAD_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.MaxDownload, err = getInt64("AGPM_MAX_DOWNLOAD", 0); err != nil {
		return nil, err
	}
	if cfg.MaxUpload, err = getInt64("AGPM_MAX_UPLOAD", 0); err != nil {
		return nil, err
	}
	cfg.HTTPProxy = getString("AGPM_HTTP_PROXY", "")
	cfg.HTTPSProxy = getString("AGPM_HTTPS_PROXY", "")

	cfg.IncludeRepos = getList("AGPM_INCLUDE_REPOS")
	cfg.ExcludeRepos = getList("AGPM_EXCLUDE_REPOS")

	cfg.ProtectedBranches = getList("AGPM_PROTECTED_BRANCHES")
	cfg.ProtectedBranchExcludes = getList("AGPM_PROTECTED_BRANCH_EXCLUDES")

	cfg.IncludeMerged = getBool("AGPM_INCLUDE_MERGED", false)
	cfg.OnlyPollPRs = getBool("AGPM_ONLY_POLL_PRS", false)
	cfg.OnlyPollStray = getBool("AGPM_ONLY_POLL_STRAY", false)
	if cfg.OnlyPollPRs && cfg.OnlyPollStray {
		return nil, fmt.Errorf("AGPM_ONLY_POLL_PRS and AGPM_ONLY_POLL_STRAY are mutually exclusive")
	}

	cfg.RejectDirty = getBool("AGPM_REJECT_DIRTY", false)
	cfg.DeleteStray = getBool("AGPM_DELETE_STRAY", false)
	cfg.AllowDeleteBaseBranch = getBool("AGPM_ALLOW_DELETE_BASE_BRANCH", false)

	cfg.AutoMerge = getBool("AGPM_AUTO_MERGE", false)
	if cfg.RequiredApprovals, err = getInt("AGPM_REQUIRED_APPROVALS", 0); err != nil {
		return nil, err
	}
	cfg.RequireStatusSuccess = getBool("AGPM_REQUIRE_STATUS_SUCCESS", false)
	cfg.RequireMergeableState = getString("AGPM_REQUIRE_MERGEABLE_STATE", "")

	cfg.PurgePrefix = getString("AGPM_PURGE_PREFIX", "")
	cfg.PurgeOnly = getBool("AGPM_PURGE_ONLY", false)

	if cfg.PRLimit, err = getInt("AGPM_PR_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.PRSince, err = getDuration("AGPM_PR_SINCE", 0); err != nil {
		return nil, err
	}
	cfg.Sort = getString("AGPM_SORT", "alpha")
	switch cfg.Sort {
	case "alpha", "reverse", "alphanum", "reverse-alphanum":
	default:
		return nil, fmt.Errorf("AGPM_SORT has unrecognized value %q", cfg.Sort)
	}

	cfg.HistoryDB = getString("AGPM_HISTORY_DB", "agpm.db")

	cfg.MCPBind = getString("AGPM_MCP_BIND", "127.0.0.1")
	if cfg.MCPPort, err = getInt("AGPM_MCP_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.MCPBacklog, err = getInt("AGPM_MCP_BACKLOG", 16); err != nil {
		return nil, err
	}
	if cfg.MCPMaxClients, err = getInt("AGPM_MCP_MAX_CLIENTS", 0); err != nil {
		return nil, err
	}

	hookCfg, err := loadHookConfig()
	if err != nil {
		return nil, err
	}
	cfg.Hook = hookCfg

	return &cfg, nil
}

func loadHookConfig() (HookConfig, error) {
	var hc HookConfig
	hc.Enabled = getBool("AGPM_HOOK_ENABLED", false)
	hc.DefaultActions = splitPipe(getString("AGPM_HOOK_DEFAULT_ACTIONS", ""))

	hc.EventActions = make(map[string][]string)
	for _, entry := range splitSemicolon(getString("AGPM_HOOK_EVENT_ACTIONS", "")) {
		name, actions, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return HookConfig{}, fmt.Errorf("AGPM_HOOK_EVENT_ACTIONS entry %q is malformed, expected <event>=<actions>", entry)
		}
		hc.EventActions[name] = splitPipe(actions)
	}

	var err error
	if hc.PullThreshold, err = getInt("AGPM_HOOK_PULL_THRESHOLD", 0); err != nil {
		return HookConfig{}, err
	}
	if hc.BranchThreshold, err = getInt("AGPM_HOOK_BRANCH_THRESHOLD", 0); err != nil {
		return HookConfig{}, err
	}

	return hc, nil
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid float %q: %w", key, v, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if secs, secErr := strconv.Atoi(v); secErr == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func getList(key string) []string {
	return splitComma(getString(key, ""))
}

func splitComma(v string) []string     { return splitOn(v, ",") }
func splitPipe(v string) []string      { return splitOn(v, "|") }
func splitSemicolon(v string) []string { return splitOn(v, ";") }

func splitOn(v, sep string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
