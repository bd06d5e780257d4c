package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/invoker"
	"github.com/sandevgo/aizen/internal/providers/analytics"
	"github.com/sandevgo/aizen/internal/providers/chain"
	"github.com/sandevgo/aizen/internal/providers/llm"
	"github.com/sandevgo/aizen/internal/providers/mcp"
	"github.com/sandevgo/aizen/internal/providers/news"
	"github.com/sandevgo/aizen/internal/providers/social"
	"github.com/sandevgo/aizen/internal/providers/web"
	"github.com/sandevgo/aizen/internal/registry"
	"github.com/sandevgo/aizen/internal/service/agent"
	"github.com/sandevgo/aizen/internal/service/scheduler"
	"github.com/sandevgo/aizen/internal/storage/sqlite"
	"github.com/sandevgo/aizen/pkg/log"
	"github.com/sandevgo/aizen/pkg/srv"
)

func NewServices(ctx context.Context, agentPath, tasksPath string) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	if agentPath == "" {
		agentPath = appCfg.GetAgentPath()
	}
	if tasksPath == "" {
		tasksPath = appCfg.GetTasksPath()
	}

	agentCfg, err := config.LoadAgentConfig(agentPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", agentPath).Msg("failed to load agent config")
	}
	tasks, err := config.LoadTasks(tasksPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", tasksPath).Msg("failed to load tasks")
	}

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	transcripts := sqlite.NewTranscriptsRepo(db)
	runs := sqlite.NewRunsRepo(db)

	// 3. Reasoning engine
	engine, err := llm.NewEngine(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize reasoning engine")
	}

	// 4. Tools
	reg := registry.New()
	services = append(services, registerToolsets(ctx, reg, appCfg)...)
	logger.Info().Strs("tools", reg.Names()).Msg("tool registry ready")

	inv := invoker.New(reg,
		invoker.WithTimeout(appCfg.ToolTimeout),
		invoker.WithPoolSize(appCfg.WorkerPoolSize),
	)

	// 5. Agent loop and scheduler
	loop := agent.NewLoop(engine, reg, inv, agentCfg.Tools, agentCfg.MaxTurns)

	sched := scheduler.New(agentCfg, tasks, loop,
		scheduler.WithTranscripts(transcripts),
		scheduler.WithRunLog(runs),
		scheduler.WithErrorCooldown(appCfg.ErrorCooldown),
		scheduler.WithHistoryWindow(appCfg.HistoryWindowSize),
	)
	services = append(services, sched)

	return services
}

// registerToolsets fills the registry with every capability the environment
// enables. Returned services carry the cleanups of stateful providers.
func registerToolsets(ctx context.Context, reg *registry.Registry, appCfg *config.AppConfig) []srv.Service {
	logger := log.FromCtx(ctx)
	var services []srv.Service

	must := func(prefix string, err error) {
		if err != nil {
			logger.Fatal().Err(err).Str("toolset", prefix).Msg("failed to register toolset")
		}
	}

	must("blockworks", reg.RegisterToolset("blockworks", news.NewBlockworks()))
	must("theblock", reg.RegisterToolset("theblock", news.NewTheBlock()))
	must("defillama", reg.RegisterToolset("defillama", analytics.NewDefiLlama()))
	must("web", reg.RegisterToolset("web", web.NewFetch()))

	if config.IsTelegramEnabled() {
		tg, err := social.NewTelegram(config.NewTelegramConfig(ctx))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telegram publisher")
		}
		must("telegram", reg.RegisterToolset("telegram", tg))
	}

	if config.IsEthereumEnabled() {
		eth, err := chain.NewEthereum(ctx, config.NewEthereumConfig(ctx))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize ethereum client")
		}
		must("eth", reg.RegisterToolset("eth", eth))
		services = append(services, srv.NewCleanup(func() error {
			eth.Close()
			return nil
		}))

		uni, err := chain.NewUniswap(eth)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize uniswap toolset")
		}
		must("uniswap", reg.RegisterToolset("uniswap", uni))
	}

	// External MCP servers are connected before the scheduler starts so their
	// tools are resolvable from the first run.
	mgr, err := mcp.NewManager(ctx, appCfg.GetMCPConfigPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize mcp manager")
	}
	if mgr.Enabled() {
		if err := mgr.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start mcp servers")
		}
		must("mcp", reg.RegisterToolset("mcp", mgr))
		services = append(services, srv.NewCleanup(func() error {
			return mgr.Shutdown(context.Background())
		}))
	}

	return services
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
