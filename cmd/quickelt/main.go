package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"quickelt/internal/catalog"
	"quickelt/internal/config"
	"quickelt/internal/logging"
	"quickelt/internal/metrics"
	"quickelt/internal/runner"
	"quickelt/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./configs/config.yaml)")
	serve := flag.Bool("serve", false, "start the admin API server instead of running once")
	sourceName := flag.String("source", "", "run only the named source")
	issueToken := flag.String("issue-token", "", "print an admin API bearer token for the given user and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(2)
	}

	if *issueToken != "" {
		token, err := server.NewJWTManager(cfg.Server.JWTSecret, 24*time.Hour).
			GenerateToken(*issueToken, *issueToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to issue token:", err)
			os.Exit(2)
		}
		fmt.Println(token)
		return
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	r := runner.New(cfg, logger, collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		os.Exit(runServer(cfg, logger, registry, r))
	}
	os.Exit(runOnce(ctx, logger, r, *sourceName))
}

// runOnce lands every enabled source, or just the named one, and exits
// non-zero when any run failed.
func runOnce(ctx context.Context, logger *zap.Logger, r *runner.Runner, sourceName string) int {
	if sourceName != "" {
		results, err := r.RunByName(ctx, sourceName)
		if err != nil {
			logger.Error("source could not run", zap.String("source", sourceName), zap.Error(err))
			return 1
		}
		if r.Summarize(results) > 0 {
			return 1
		}
		return 0
	}

	results, err := r.RunAll(ctx)
	r.Summarize(results)
	if err != nil {
		logger.Error("landing finished with failures", zap.Error(err))
		return 1
	}
	logger.Info("landing finished", zap.Int("runs", len(results)))
	return 0
}

// runServer starts the admin API, optionally backed by the source
// catalog database.
func runServer(cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry, r *runner.Runner) int {
	var repo catalog.SourceRepository
	if cfg.Catalog.Enabled {
		db, err := config.OpenCatalog(cfg)
		if err != nil {
			logger.Error("failed to open catalog database", zap.Error(err))
			return 1
		}
		if err := catalog.Migrate(db); err != nil {
			logger.Warn("catalog migration failed, continuing with existing schema", zap.Error(err))
		}
		repo = catalog.NewSourceRepository(db)
	}

	srv := server.New(cfg.Server, logger, registry, r, repo)
	if err := srv.Run(); err != nil {
		logger.Error("admin server exited", zap.Error(err))
		return 1
	}
	return 0
}
