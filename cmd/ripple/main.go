package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ripplefeed/ripple/internal/api"
	"github.com/ripplefeed/ripple/internal/config"
	"github.com/ripplefeed/ripple/internal/entities"
	"github.com/ripplefeed/ripple/internal/leaderboard"
	"github.com/ripplefeed/ripple/internal/likes"
	"github.com/ripplefeed/ripple/internal/ops"
	"github.com/ripplefeed/ripple/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		handleInit()
		return
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ripple %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Println("ripple - community discussion feed")
		fmt.Println()
		fmt.Println("No configuration file specified. Use --config <path> to specify config.")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  ripple init              Generate example configuration")
		fmt.Println("  ripple --version         Show version information")
		fmt.Println("  ripple --config <path>   Start with configuration file")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := ops.NewLogger(&cfg.Logging)
	logger.Info("starting ripple", "version", version, "site", cfg.Site.Title)

	st, err := store.New(ctx, &cfg.Storage, cfg.Limits)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", cfg.Storage.Driver, "path", cfg.Storage.SQLitePath)

	likeSvc := likes.NewService(st, logger.Logger)

	board := leaderboard.New(st, &cfg.Leaderboard)
	likeSvc.OnRecord(func(entities.TargetType, int64) { board.Invalidate() })
	logger.Info("leaderboard engine ready",
		"window", board.Window(),
		"cache_enabled", cfg.Leaderboard.CacheEnabled)

	server := api.New(cfg, st, likeSvc, board, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	logger.Info("all services started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down gracefully")

	if err := server.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func handleInit() {
	exampleConfig, err := config.GetExampleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(exampleConfig))
}
