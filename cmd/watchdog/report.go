package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/goodtune/watchdog/internal/api"
	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/usage"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportDate   string
	reportLimit  int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the ranked usage for a day",
	Long:  `Run a single refresh cycle and print the ranked usage breakdown as text or JSON.`,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Date to report (YYYY-MM-DD, default today)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", -1, "Number of entries to keep (default from display.limit)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "text" && reportFormat != "json" {
		return fmt.Errorf("unsupported format: %s (expected 'text' or 'json')", reportFormat)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	log.Logger = logger

	date, err := resolveDate(reportDate)
	if err != nil {
		return err
	}

	limit := cfg.Display.Limit
	if cmd.Flags().Changed("limit") {
		limit = reportLimit
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Refresh.Timeout())
	defer cancel()

	snapshot, err := usage.Refresh(ctx, store.UsageLogs(), date, limit, logger)
	if err != nil {
		return err
	}

	palette, err := usage.NewPalette(cfg.Display.PaletteSize)
	if err != nil {
		return err
	}

	if reportFormat == "json" {
		return writeReportJSON(cmd.OutOrStdout(), snapshot, palette)
	}
	writeReportText(cmd.OutOrStdout(), snapshot, palette, cfg.Display.TruncateWidth)
	return nil
}

func writeReportJSON(w io.Writer, snapshot usage.RankedSnapshot, palette usage.Palette) error {
	data, err := sonic.ConfigStd.MarshalIndent(api.NewSnapshotView(snapshot, palette), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeReportText prints the report with a colored swatch per entry
func writeReportText(w io.Writer, snapshot usage.RankedSnapshot, palette usage.Palette, truncateWidth int) {
	cyan := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)

	r := api.NewSnapshotView(snapshot, palette)

	_, _ = cyan.Fprintf(w, "Usage for %s\n", r.Date)
	_, _ = fmt.Fprintln(w, strings.Repeat("━", 50))

	if len(r.Entries) == 0 {
		_, _ = faint.Fprintln(w, "No usage recorded")
		return
	}

	nameWidth := truncateWidth + 3
	for i, e := range r.Entries {
		red, green, blue := palette.At(i).RGB()
		swatch := color.BgRGB(int(red), int(green), int(blue)).Sprint("  ")

		_, _ = fmt.Fprintf(w, "%2d. %s %s %10s  %s\n",
			e.Rank, swatch, runewidth.FillRight(usage.Truncate(e.WindowName, truncateWidth), nameWidth), e.TimeSpent,
			faint.Sprint(orUnknown(e.ExecutableName)))
	}

	_, _ = fmt.Fprintln(w, strings.Repeat("━", 50))
	_, _ = fmt.Fprintf(w, "Total: %s\n", usage.FormatDuration(r.TotalSeconds))
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
