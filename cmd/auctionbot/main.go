package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/auction"
	"github.com/jensholdgaard/discord-auction-bot/internal/bot"
	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/config"
	"github.com/jensholdgaard/discord-auction-bot/internal/health"
	"github.com/jensholdgaard/discord-auction-bot/internal/leader"
	"github.com/jensholdgaard/discord-auction-bot/internal/notify"
	"github.com/jensholdgaard/discord-auction-bot/internal/store"
	"github.com/jensholdgaard/discord-auction-bot/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/discord-auction-bot/internal/store/memory"
	_ "github.com/jensholdgaard/discord-auction-bot/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open the audit journal using the configured driver (postgres or memory).
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "store opened", slog.String("driver", cfg.Database.Driver))

	session, err := bot.Connect(cfg.Discord)
	if err != nil {
		return fmt.Errorf("connecting to discord: %w", err)
	}

	sender := bot.NewSender(session, cfg.Discord.ResultsChannelID)
	dispatcher := notify.NewDispatcher(sender, logger, tp.TracerProvider, cfg.Auction.NotifyBuffer)

	policy := auction.ExtensionPolicy{
		Window:    cfg.Auction.SnipeWindow,
		Increment: cfg.Auction.Extension,
	}
	registry := auction.NewRegistry(policy, repos.Events, dispatcher, logger, tp.TracerProvider, clk)
	scheduler := auction.NewScheduler(registry, cfg.Auction.SweepInterval, clk, logger)

	// Setup health checks.
	checkers := []health.Checker{}
	if repos.Ping != nil {
		checkers = append(checkers, health.Checker{Name: "database", Check: repos.Ping})
	}
	healthHandler := health.NewHandler(clk, checkers...)

	// Start HTTP server for health checks (runs on all replicas).
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	// startBot is the core work that only the leader should run.
	startBot := func(ctx context.Context) {
		dispatcher.Start(ctx)
		scheduler.Start(ctx)

		discordBot := bot.New(session, cfg.Discord, registry, logger, tp.TracerProvider)
		if botErr := discordBot.Start(ctx); botErr != nil {
			logger.ErrorContext(ctx, "starting bot failed", slog.Any("error", botErr))
			return
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctionbot is running", slog.String("version", version))

		// Block until leadership is lost or process is shutting down.
		<-ctx.Done()

		healthHandler.SetReady(false)
		if stopErr := discordBot.Stop(); stopErr != nil {
			logger.Error("bot shutdown error", slog.Any("error", stopErr))
		}

		// Let the sweeper finish its pass, then drain queued notifications.
		scheduler.Wait()
		dispatcher.Wait()
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		leaderCfg := leader.Config{
			Enabled:        cfg.LeaderElection.Enabled,
			LeaseName:      cfg.LeaderElection.LeaseName,
			LeaseNamespace: cfg.LeaderElection.LeaseNamespace,
			LeaseDuration:  cfg.LeaderElection.LeaseDuration,
			RenewDeadline:  cfg.LeaderElection.RenewDeadline,
			RetryPeriod:    cfg.LeaderElection.RetryPeriod,
		}
		if leaderErr := leader.Run(ctx, leaderCfg, logger, startBot, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		// No leader election, run directly.
		startBot(ctx)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
