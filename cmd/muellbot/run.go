package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/muellbot/muellbot/internal/config"
	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/metrics"
	"github.com/muellbot/muellbot/internal/reminder"
	"github.com/muellbot/muellbot/internal/retry"
	"github.com/muellbot/muellbot/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runWorkspace  string
	runDebug      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Müllbot reminder bot",
	Long: `Start Müllbot with the specified configuration.
This initializes the reminder store, re-arms persisted reminders, connects
to Telegram and handles graceful shutdown.`,
	Run: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	// A .env file next to the binary can supply TELEGRAM_BOT_TOKEN and
	// friends for the ${VAR} expansion in the config.
	_ = godotenv.Load()

	configPath := runConfigPath
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Printf("Configuration validation failed:\n")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	if runDebug {
		cfg.Logging.Level = "debug"
	}
	if runWorkspace != "" {
		cfg.Workspace.Path = runWorkspace
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Info("starting muellbot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path})

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		log.Error("failed to create workspace directory", err)
		os.Exit(1)
	}

	store, err := reminder.OpenStore(cfg.Workspace.Path, log)
	if err != nil {
		// A corrupt store is fatal: silently dropping reminders is worse
		// than refusing to start.
		log.Error("failed to open reminder store", err)
		os.Exit(1)
	}

	m := metrics.New()
	sched := reminder.NewScheduler(clock.New(), log)
	connector := telegram.New(cfg.Telegram, log)

	svc := reminder.NewService(store, sched, connector, m, log, reminder.ServiceConfig{
		FireHour: cfg.Reminders.FireHour,
		Location: time.Local,
		Retry: retry.Config{
			MaxAttempts:    cfg.Reminders.NotifyMaxAttempts,
			InitialBackoff: time.Duration(cfg.Reminders.NotifyBackoffSeconds) * time.Second,
		},
		SweepSchedule: cfg.Reminders.SweepSchedule,
	})
	connector.SetService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		log.Error("failed to start reminder service", err)
		os.Exit(1)
	}

	if err := connector.Start(ctx); err != nil {
		log.Error("failed to start telegram connector", err)
		svc.Stop()
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics listener started",
				logger.Field{Key: "addr", Value: cfg.Metrics.ListenAddr})
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener failed", err)
			}
		}()
	}

	log.Info("muellbot is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()})

	// Shutdown order: stop taking commands, then stop firing, then close
	// the store.
	if err := connector.Stop(); err != nil {
		log.Error("failed to stop telegram connector", err)
	}
	svc.Stop()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop metrics listener", err)
		}
		shutdownCancel()
	}

	if err := store.Close(); err != nil {
		log.Error("failed to close reminder store", err)
	}

	log.Info("muellbot stopped gracefully")
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "Path to workspace directory (overrides config)")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Enable debug logging")
}
