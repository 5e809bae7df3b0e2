package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/app"
	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/services/monitor"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	runDate      = flag.String("date", "", "Disclosure date to collect, YYYYMMDD (default: today)")
	sendTelegram = flag.Bool("telegram", false, "Dispatch Telegram notifications for collected filings")
	monitorMode  = flag.Bool("monitor", false, "Run continuously, polling during market hours")
	interval     = flag.Int("interval", 0, "Polling interval in minutes (overrides config, monitor mode)")
	outputDir    = flag.String("output", "", "Output directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	// A .version file next to the binary overrides the compiled-in version.
	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("kindwatch version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("kindwatch.toml"); err == nil {
			configFiles = append(configFiles, "kindwatch.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outputDir, *interval)

	logger = common.InitLogger(config)

	common.PrintBanner("kindwatch", common.GetFullVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("output_dir", config.Output.Dir).
		Bool("telegram", *sendTelegram).
		Msg("Application configuration loaded")

	pipeline := app.New(config, logger)

	if *monitorMode {
		runMonitor(pipeline)
		return
	}

	result, err := pipeline.Run(context.Background(), *runDate, app.Options{Notify: *sendTelegram})
	if err != nil {
		logger.Fatal().Err(err).Msg("Collection run failed")
		os.Exit(1)
	}

	// An empty day is a normal outcome, not a failure.
	if result.Discovered == 0 {
		logger.Info().Str("date", result.Date).Msg("No qualifying filings found")
		return
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("discovered", result.Discovered).
		Int("collected", result.Collected).
		Int("notified", result.Notified).
		Str("workbook", result.WorkbookPath).
		Msg("Collection run complete")
}

func runMonitor(pipeline *app.Pipeline) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(config, logger, pipeline)

	logger.Info().
		Int("interval_minutes", config.Monitor.IntervalMinutes).
		Int("start_hour", config.Monitor.ActiveStartHour).
		Int("end_hour", config.Monitor.ActiveEndHour).
		Msg("Starting monitor - Press Ctrl+C to stop")

	if err := mon.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Monitor failed")
		os.Exit(1)
	}

	logger.Info().Msg("Monitor stopped")
}
