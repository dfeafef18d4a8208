package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/agpm-go/agpm/internal/adapter/driven/github"
	"github.com/agpm-go/agpm/internal/adapter/driven/hook"
	"github.com/agpm-go/agpm/internal/adapter/driven/sqlite"
	"github.com/agpm-go/agpm/internal/adapter/driving/controlserver"
	"github.com/agpm-go/agpm/internal/application"
	"github.com/agpm-go/agpm/internal/config"
	"github.com/agpm-go/agpm/internal/domain/rules"
	"github.com/agpm-go/agpm/internal/platform/workpool"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"poll_interval", cfg.PollInterval,
		"mcp_bind", cfg.MCPBind,
		"mcp_port", cfg.MCPPort,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the history store (dual reader/writer with WAL mode).
	db, err := sqlite.NewDB(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing history store", "error", closeErr)
		}
	}()
	slog.Info("history store opened", "path", cfg.HistoryDB)

	// 4. Run migrations on the writer connection.
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	historyStore := sqlite.NewHistoryRepo(db)

	// 5. Create the GitHub client: transport stack is rate limit -> cache ->
	// governor, with the merge gate and branch protection applied on top.
	client, err := github.NewClient(github.ClientConfig{
		Token:                 cfg.GitHubToken,
		BaseURL:               cfg.APIBase,
		IncludeRepos:          cfg.IncludeRepos,
		ExcludeRepos:          cfg.ExcludeRepos,
		ProtectedBranches:     cfg.ProtectedBranches,
		ProtectedExcludes:     cfg.ProtectedBranchExcludes,
		RequiredApprovals:     cfg.RequiredApprovals,
		RequireMergeableState: cfg.RequireMergeableState,
		RequireMergeable:      cfg.RequireStatusSuccess,
		MaxRequestsPerMinute:  cfg.MaxRequestRate,
		ReserveMargin:         cfg.RateLimitMargin,
		RateRefreshInterval:   cfg.RateLimitRefreshInterval,
		RateRefreshRetries:    cfg.RateLimitRefreshRetries,
		CachePath:             cfg.HistoryDB + ".httpcache",
		CacheFlushInterval:    5 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Error("error closing github client", "error", closeErr)
		}
	}()

	// 6. Build the work pool the orchestrator fans repository tasks out to,
	// and feed its outstanding-job count back into the rate governor so it
	// can widen its margin under backlog pressure.
	pool := workpool.New(cfg.Workers, 0)
	client.Governor().SetOutstandingFunc(pool.Outstanding, 4, 30*time.Second)
	defer pool.Stop(context.Background())

	// 7. Build the rule engines with their default mappings.
	prRules := rules.NewPullRequestRuleEngine()
	branchRules := rules.NewBranchRuleEngine()

	// 8. Build and start the hook dispatcher.
	hookSettings, err := hook.BuildSettings(
		cfg.Hook.Enabled,
		cfg.Hook.DefaultActions,
		cfg.Hook.EventActions,
		cfg.Hook.PullThreshold,
		cfg.Hook.BranchThreshold,
	)
	if err != nil {
		return err
	}
	hooks, err := hook.NewDispatcher(hookSettings, 64, slog.Default())
	if err != nil {
		return err
	}
	hooks.Start()
	defer hooks.Stop()

	// 9. Wire the orchestrator and start polling.
	orch := application.New(client, pool, historyStore, hooks, prRules, branchRules, cfg, slog.Default(), nil, nil)
	orch.Start(ctx)
	defer orch.Stop()

	// 10. Start the control server if a port was configured.
	if cfg.MCPPort != 0 {
		srv := controlserver.NewServer(client, controlserver.Options{
			Bind:       cfg.MCPBind,
			Port:       cfg.MCPPort,
			Backlog:    cfg.MCPBacklog,
			MaxClients: cfg.MCPMaxClients,
			Logger:     slog.Default(),
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				slog.Error("control server stopped", "error", err)
			}
		}()
		slog.Info("control server listening", "bind", cfg.MCPBind, "port", cfg.MCPPort)
	}

	slog.Info("agpm started")

	<-ctx.Done()
	slog.Info("shutting down")

	return nil
}
