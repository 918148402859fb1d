package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/loom/internal/agent"
	"github.com/rpggio/loom/internal/config"
	"github.com/rpggio/loom/internal/engine"
	"github.com/rpggio/loom/internal/gitops"
	"github.com/rpggio/loom/internal/maintenance"
	"github.com/rpggio/loom/internal/mcp"
	"github.com/rpggio/loom/internal/metrics"
	"github.com/rpggio/loom/internal/sqlite"
	"github.com/rpggio/loom/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := &engine.Store{
		Projects:   sqlite.NewProjectRepository(db),
		Workspaces: sqlite.NewWorkspaceRepository(db),
		Threads:    sqlite.NewThreadRepository(db),
		Entries:    sqlite.NewEntryRepository(db),
		Prompts:    sqlite.NewPromptRepository(db),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial, err := engine.Load(ctx, store, logger)
	if err != nil {
		logger.Error("failed to load state", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	broadcaster := transport.NewBroadcaster(logger)

	agentRunner, err := agent.NewProcessRunner(cfg.Agent.Command, logger)
	if err != nil {
		logger.Error("invalid agent command", "error", err)
		os.Exit(1)
	}

	runner := engine.NewEffectRunner(
		agentRunner,
		agent.RunDefaults{
			Model:         cfg.Agent.Model,
			Sandbox:       agent.SandboxMode(cfg.Agent.Sandbox),
			Approval:      agent.ApprovalPolicy(cfg.Agent.Approval),
			NetworkAccess: cfg.Agent.NetworkAccess,
			WebSearch:     cfg.Agent.WebSearch,
		},
		gitops.NewWorktreeArchiver(logger),
		gitops.NewCommandEditor(cfg.Editor.Command, logger),
		broadcaster,
		m,
		logger,
		cfg.Agent.MaxConcurrency,
	)

	eng := engine.New(initial, store, runner, broadcaster, m, logger)

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- eng.Run(ctx)
	}()

	scheduler := maintenance.NewScheduler(eng,
		cfg.Maintenance.ScanInterval, cfg.Maintenance.ArchiveAfter, logger)
	scheduler.Start(ctx)

	mcpServer := mcp.NewServer(mcp.Config{Engine: eng, Logger: logger})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewRouter(eng, broadcaster, m.Handler(), logger)
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	cancel()
	if err := <-loopDone; err != nil {
		logger.Error("command loop error", "error", err)
		os.Exit(1)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
