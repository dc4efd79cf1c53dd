package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/watchdog/internal/api"
	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/metrics"
	"github.com/goodtune/watchdog/internal/systemd"
	"github.com/goodtune/watchdog/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveDate string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop headless",
	Long: `Run the refresh loop without a terminal view. Each published snapshot is
logged, refresh health is exported on the metrics endpoint, and readiness and
watchdog pings are sent to systemd when running as a service.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDate, "date", "", "Date to follow (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting Watchdog")

	date, err := resolveDate(serveDate)
	if err != nil {
		return err
	}

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}
	underSystemd := systemd.IsSystemdService()

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Msg("Storage initialized")

	scheduler, err := usage.NewScheduler(store.UsageLogs(), nil, schedulerConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to create refresh scheduler: %w", err)
	}

	sub := scheduler.Start(date, func(snapshot usage.RankedSnapshot) {
		logSnapshot(logger, snapshot)
		if underSystemd {
			notifySnapshot(logger, snapshot)
		}
	})

	// Start metrics server, which also carries the snapshot API
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		palette, err := usage.NewPalette(cfg.Display.PaletteSize)
		if err != nil {
			sub.Stop()
			return err
		}

		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)
		api.NewSnapshotHandler(sub, palette, logger).Register(metricsServer)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			sub.Stop()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if underSystemd {
		if interval := systemd.WatchdogInterval(); interval > 0 && interval < 2*cfg.Refresh.RefreshInterval() {
			logger.Warn().
				Dur("watchdog", interval).
				Dur("refresh_interval", cfg.Refresh.RefreshInterval()).
				Msg("systemd WatchdogSec is shorter than two refresh intervals")
		}

		// Notify systemd that we're ready
		if err := systemd.NotifyReady(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
		}
	}

	logger.Info().Msg("Watchdog started successfully")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	// Signal handling loop
	for {
		sig := <-sigChan

		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, switching to today")
			sub.SetDate(time.Now())
			continue
		}

		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if underSystemd {
		if err := systemd.NotifyStopping(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
		}
	}

	sub.Stop()
	<-sub.Done()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("Watchdog stopped")

	return nil
}

// notifySnapshot pings the systemd watchdog and refreshes the status line
func notifySnapshot(logger zerolog.Logger, snapshot usage.RankedSnapshot) {
	if err := systemd.NotifyWatchdog(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd watchdog ping")
	}
	if err := systemd.NotifyStatus(snapshotStatus(snapshot)); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd status")
	}
}

// snapshotStatus is the one-line summary shown by systemctl status
func snapshotStatus(snapshot usage.RankedSnapshot) string {
	return fmt.Sprintf("%s: %d entries, %s tracked",
		usage.FormatDate(snapshot.Date), len(snapshot.Entries), usage.FormatDuration(snapshot.TotalSeconds()))
}

// logSnapshot writes one line per published snapshot
func logSnapshot(logger zerolog.Logger, snapshot usage.RankedSnapshot) {
	event := logger.Info().
		Str("date", usage.FormatDate(snapshot.Date)).
		Int("entries", len(snapshot.Entries)).
		Int64("total_seconds", snapshot.TotalSeconds())

	if len(snapshot.Entries) > 0 {
		top := snapshot.Entries[0]
		event = event.
			Str("top_window", top.WindowName).
			Str("top_executable", top.ExecutableName).
			Str("top_time", usage.FormatDuration(top.TimeSpentSeconds))
	}

	event.Msg("Snapshot published")
}
