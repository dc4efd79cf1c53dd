package main

import (
	"fmt"

	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/tui"
	"github.com/goodtune/watchdog/internal/usage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var watchDate string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live usage breakdown",
	Long:  `Show a ranked, color-coded usage breakdown for a day, refreshed continuously.`,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDate, "date", "", "Date to show (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The view owns stdout; logs go to a file or nowhere
	out, closeLog, err := openLogFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	logger := setupLogger(cfg.Logging, out)
	log.Logger = logger

	date, err := resolveDate(watchDate)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	palette, err := usage.NewPalette(cfg.Display.PaletteSize)
	if err != nil {
		return err
	}

	selection := usage.NewSelection()
	scheduler, err := usage.NewScheduler(store.UsageLogs(), selection, schedulerConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to create refresh scheduler: %w", err)
	}

	feed := tui.NewFeed()
	sub := scheduler.Start(date, feed.OnSnapshot, usage.WithErrorHandler(feed.OnError))
	defer func() {
		sub.Stop()
		<-sub.Done()
	}()

	model := tui.New(sub, feed, selection, tui.Options{
		Palette:       palette,
		TruncateWidth: cfg.Display.TruncateWidth,
	})

	return tui.Run(model)
}
